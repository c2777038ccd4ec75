package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/logger"
)

const defaultBaseURL = "https://slack.com/api"

// Client covers the handful of Web API methods the bot needs: creating and
// archiving challenge channels, inviting the team and posting messages.
type Client struct {
	log        *logger.Logger
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(token string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		log:        log.With("component", "slack"),
		baseURL:    defaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type apiResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Channel *struct {
		ID string `json:"id"`
	} `json:"channel,omitempty"`
}

// ProvisionChannel creates a public channel and invites the members into it.
// The returned channel id is the workspace ref stored on the challenge.
func (c *Client) ProvisionChannel(ctx context.Context, name string, memberIDs []string) (string, error) {
	resp, err := c.call(ctx, "conversations.create", map[string]any{
		"name":       name,
		"is_private": false,
	})
	if err != nil {
		return "", err
	}
	if resp.Channel == nil {
		return "", fmt.Errorf("slack: conversations.create returned no channel")
	}
	channelID := resp.Channel.ID

	if len(memberIDs) > 0 {
		if _, err := c.call(ctx, "conversations.invite", map[string]any{
			"channel": channelID,
			"users":   strings.Join(memberIDs, ","),
		}); err != nil {
			// channel exists; a failed invite is recoverable by hand
			c.log.Warn("channel invite failed", "channel", channelID, "error", err)
		}
	}
	return channelID, nil
}

func (c *Client) PostMessage(ctx context.Context, channelRef, text string) error {
	_, err := c.call(ctx, "chat.postMessage", map[string]any{
		"channel": channelRef,
		"text":    text,
	})
	return err
}

func (c *Client) ArchiveChannel(ctx context.Context, channelRef string) error {
	_, err := c.call(ctx, "conversations.archive", map[string]any{
		"channel": channelRef,
	})
	return err
}

func (c *Client) call(ctx context.Context, method string, args map[string]any) (*apiResponse, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("slack: %s: %s", method, out.Error)
	}
	return &out, nil
}

// Announcer posts challenge notifications into a fixed announcement channel.
type Announcer struct {
	client  *Client
	channel string
}

func NewAnnouncer(client *Client, channel string) *Announcer {
	return &Announcer{client: client, channel: channel}
}

func (a *Announcer) Notify(ctx context.Context, challengeID, summary string) error {
	return a.client.PostMessage(ctx, a.channel, summary)
}
