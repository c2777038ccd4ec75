package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/domain"
	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/logger"
	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/store"
)

// ErrUpstreamUnavailable is returned once retries against the project
// generator or the workspace provisioner are exhausted.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// ProjectGenerator produces a project brief for a theme and difficulty.
type ProjectGenerator interface {
	GenerateProject(ctx context.Context, theme, difficulty string) (string, error)
}

// Workspace provisions and manages the team's channel.
type Workspace interface {
	ProvisionChannel(ctx context.Context, name string, memberIDs []string) (string, error)
	PostMessage(ctx context.Context, channelRef, text string) error
	ArchiveChannel(ctx context.Context, channelRef string) error
}

// Notifier surfaces challenge events outside the team channel.
type Notifier interface {
	Notify(ctx context.Context, challengeID, summary string) error
}

// CreateLimiter bounds how often a user may create challenges.
type CreateLimiter interface {
	Allow(ctx context.Context, userID domain.UserID) error
}

type Service struct {
	store    store.ChallengeStore
	gen      ProjectGenerator
	ws       Workspace
	notifier Notifier
	limiter  CreateLimiter
	log      *logger.Logger

	now func() time.Time

	retryAttempts     int
	retryBase         time.Duration
	activationTimeout time.Duration
}

func New(st store.ChallengeStore, gen ProjectGenerator, ws Workspace, notifier Notifier, limiter CreateLimiter, log *logger.Logger) *Service {
	return &Service{
		store:    st,
		gen:      gen,
		ws:       ws,
		notifier: notifier,
		limiter:  limiter,
		log:      log.With("component", "service"),

		now: func() time.Time { return time.Now().UTC() },

		retryAttempts:     3,
		retryBase:         2 * time.Second,
		activationTimeout: 2 * time.Minute,
	}
}

// CreateChallenge validates the parameters, creates a RECRUITING challenge
// and enrolls the creator as its first member.
func (s *Service) CreateChallenge(ctx context.Context, creator domain.UserID, theme string, teamSize, durationHours int, difficulty domain.Difficulty) (*domain.Challenge, error) {
	ch, err := domain.NewChallenge(creator, theme, teamSize, durationHours, difficulty)
	if err != nil {
		return nil, err
	}

	// validated requests only; garbage must not burn window budget
	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, creator); err != nil {
			return nil, err
		}
	}

	if _, _, err := s.store.ActiveChallengeByUser(ctx, creator); err == nil {
		return nil, store.ErrAlreadyEnrolled
	} else if !errors.Is(err, store.ErrNoActiveChallenge) {
		return nil, err
	}

	if err := s.store.CreateChallenge(ctx, ch); err != nil {
		return nil, err
	}

	// enroll the creator; withdraw the challenge if that lost a race
	if _, err := s.store.JoinChallenge(ctx, ch.ID, creator); err != nil {
		if cancelErr := s.store.CancelChallenge(ctx, ch.ID, creator); cancelErr != nil {
			s.log.Error("orphaned challenge after failed creator join", "challenge_id", ch.ID, "error", cancelErr)
		}
		return nil, err
	}

	s.log.Info("challenge created", "challenge_id", ch.ID, "creator_id", creator, "theme", theme, "team_size", teamSize)
	return ch, nil
}

// Join enrolls the user. Without an explicit challenge id it targets the open
// invitation (the newest RECRUITING challenge). The join that completes the
// team triggers activation; racing joins past capacity get ErrTeamFull and
// all invariant enforcement lives in the store's transaction.
func (s *Service) Join(ctx context.Context, userID domain.UserID, challengeID domain.ChallengeID) (domain.JoinResult, error) {
	if challengeID == "" {
		id, err := s.store.LatestRecruiting(ctx)
		if err != nil {
			return domain.JoinResult{}, err
		}
		challengeID = id
	}

	filled, err := s.store.JoinChallenge(ctx, challengeID, userID)
	if err != nil {
		return domain.JoinResult{}, err
	}

	if filled {
		s.log.Info("team filled", "challenge_id", challengeID, "filled_by", userID)
		go s.runActivation(challengeID)
	}
	return domain.JoinResult{Joined: true, Filled: filled}, nil
}

// Status describes the user's current challenge.
type Status struct {
	Challenge   *domain.Challenge
	MemberCount int
}

func (s *Service) Status(ctx context.Context, userID domain.UserID) (*Status, error) {
	ch, count, err := s.store.ActiveChallengeByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Status{Challenge: ch, MemberCount: count}, nil
}

// Cancel lets the creator withdraw a challenge that is still recruiting.
func (s *Service) Cancel(ctx context.Context, userID domain.UserID, challengeID domain.ChallengeID) error {
	if err := s.store.CancelChallenge(ctx, challengeID, userID); err != nil {
		return err
	}
	s.log.Info("challenge cancelled", "challenge_id", challengeID)
	s.notify(ctx, challengeID, fmt.Sprintf("Challenge %s was cancelled by its creator before the team filled.", short(challengeID)))
	return nil
}

// CloseExpired closes every challenge past its deadline and runs the closure
// side effects for the ones this call won. Safe to invoke concurrently; each
// challenge is closed and announced exactly once because the store's
// compare-and-set picks one winner.
func (s *Service) CloseExpired(ctx context.Context) (int, error) {
	closed, err := s.store.CloseDue(ctx, s.now())
	for i := range closed {
		s.finishClosed(ctx, &closed[i])
	}
	return len(closed), err
}

func (s *Service) finishClosed(ctx context.Context, ch *domain.Challenge) {
	summary := fmt.Sprintf("Challenge %s (%s, %s) has ended after %d hours. Thanks for participating!",
		short(ch.ID), ch.Theme, ch.Difficulty, ch.DurationHours)

	if ch.WorkspaceRef != "" {
		if err := s.ws.PostMessage(ctx, ch.WorkspaceRef, summary); err != nil {
			s.log.Warn("closure message failed", "challenge_id", ch.ID, "error", err)
		}
		if err := s.ws.ArchiveChannel(ctx, ch.WorkspaceRef); err != nil {
			s.log.Warn("channel archive failed", "challenge_id", ch.ID, "channel", ch.WorkspaceRef, "error", err)
		}
	}
	s.notify(ctx, ch.ID, summary)
	s.log.Info("challenge closed", "challenge_id", ch.ID)
}

func (s *Service) notify(ctx context.Context, id domain.ChallengeID, summary string) {
	if err := s.notifier.Notify(ctx, string(id), summary); err != nil {
		s.log.Warn("notification failed", "challenge_id", id, "error", err)
	}
}

func short(id domain.ChallengeID) string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}
