package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/domain"
	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/store"
)

func (s *Service) runActivation(id domain.ChallengeID) {
	ctx, cancel := context.WithTimeout(context.Background(), s.activationTimeout)
	defer cancel()
	if err := s.Activate(ctx, id); err != nil {
		s.log.Error("activation failed", "challenge_id", id, "error", err)
	}
}

// Activate runs the fill side effects for a challenge: generate the project
// brief, provision the team channel and post the kickoff message. It is
// idempotent per challenge — the persisted workspace ref is the marker, so a
// retried or duplicate trigger does nothing once a ref exists.
func (s *Service) Activate(ctx context.Context, id domain.ChallengeID) error {
	ch, members, err := s.store.GetChallenge(ctx, id)
	if err != nil {
		return err
	}
	if ch.WorkspaceRef != "" {
		return nil
	}

	var brief string
	err = s.withRetry(ctx, "generate project", func() error {
		var genErr error
		brief, genErr = s.gen.GenerateProject(ctx, ch.Theme, string(ch.Difficulty))
		return genErr
	})
	if err != nil {
		return s.degrade(ctx, ch, err)
	}

	memberIDs := make([]string, 0, len(members))
	for _, m := range members {
		memberIDs = append(memberIDs, string(m.UserID))
	}

	var ref string
	err = s.withRetry(ctx, "provision workspace", func() error {
		var provErr error
		ref, provErr = s.ws.ProvisionChannel(ctx, "yarisma-"+short(id), memberIDs)
		return provErr
	})
	if err != nil {
		return s.degrade(ctx, ch, err)
	}

	if err := s.store.SetWorkspaceRef(ctx, id, ref); err != nil {
		if errors.Is(err, store.ErrStateConflict) {
			// a concurrent activation won; drop the extra channel
			s.log.Warn("duplicate activation lost workspace race", "challenge_id", id, "channel", ref)
			if archiveErr := s.ws.ArchiveChannel(ctx, ref); archiveErr != nil {
				s.log.Warn("could not archive duplicate channel", "channel", ref, "error", archiveErr)
			}
			return nil
		}
		return err
	}

	kickoff := fmt.Sprintf("The team is complete! Your project:\n\n%s\n\nDeadline: %s. Good luck!",
		brief, deadlineText(ch))
	if err := s.ws.PostMessage(ctx, ref, kickoff); err != nil {
		s.log.Warn("kickoff message failed", "challenge_id", id, "error", err)
	}

	s.notify(ctx, id, fmt.Sprintf("Challenge %s (%s) is underway with a full team of %d.", short(id), ch.Theme, ch.TeamSize))
	s.log.Info("challenge activated", "challenge_id", id, "channel", ref)
	return nil
}

// degrade keeps the challenge ACTIVE but flags it so participants are not
// left staring at silence when an upstream stays down.
func (s *Service) degrade(ctx context.Context, ch *domain.Challenge, cause error) error {
	// retries can outlive the activation deadline; the flag and the
	// notice must still land even when ctx is already dead
	ctx = context.WithoutCancel(ctx)
	if err := s.store.MarkDegraded(ctx, ch.ID); err != nil {
		s.log.Error("could not mark challenge degraded", "challenge_id", ch.ID, "error", err)
	}
	s.notify(ctx, ch.ID, fmt.Sprintf("Challenge %s started, but setup is incomplete (%v). An admin needs to finish it by hand.", short(ch.ID), cause))
	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, cause)
}

func (s *Service) withRetry(ctx context.Context, op string, fn func() error) error {
	delay := s.retryBase
	var err error
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		s.log.Warn("upstream call failed", "op", op, "attempt", attempt, "error", err)
		if attempt == s.retryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

func deadlineText(ch *domain.Challenge) string {
	if ch.ClosesAt != nil {
		return ch.ClosesAt.Format(time.RFC1123)
	}
	return fmt.Sprintf("%d hours from activation", ch.DurationHours)
}
