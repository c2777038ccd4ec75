package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/domain"
)

// Memory is an in-process backend with the same transactional contract as
// Postgres. A single mutex serializes every operation, which trivially gives
// the per-challenge isolation the join and close protocols need. Used for
// local runs and for tests that exercise the engine's race behavior.
type Memory struct {
	mu         sync.Mutex
	challenges map[domain.ChallengeID]*domain.Challenge
	members    map[domain.ChallengeID][]domain.Membership
}

func NewMemory() *Memory {
	return &Memory{
		challenges: make(map[domain.ChallengeID]*domain.Challenge),
		members:    make(map[domain.ChallengeID][]domain.Membership),
	}
}

func (s *Memory) CreateChallenge(_ context.Context, ch *domain.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ch
	s.challenges[ch.ID] = &cp
	return nil
}

func (s *Memory) GetChallenge(_ context.Context, id domain.ChallengeID) (*domain.Challenge, []domain.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	cp := *ch
	members := append([]domain.Membership(nil), s.members[id]...)
	return &cp, members, nil
}

func (s *Memory) ActiveChallengeByUser(_ context.Context, userID domain.UserID) (*domain.Challenge, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.activeChallengeOf(userID)
	if !ok {
		return nil, 0, ErrNoActiveChallenge
	}
	cp := *s.challenges[id]
	return &cp, len(s.members[id]), nil
}

func (s *Memory) LatestRecruiting(_ context.Context) (domain.ChallengeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var open []*domain.Challenge
	for _, ch := range s.challenges {
		if ch.State == domain.StateRecruiting {
			open = append(open, ch)
		}
	}
	if len(open) == 0 {
		return "", ErrNoActiveChallenge
	}
	sort.Slice(open, func(i, j int) bool { return open[i].CreatedAt.After(open[j].CreatedAt) })
	return open[0].ID, nil
}

func (s *Memory) JoinChallenge(_ context.Context, id domain.ChallengeID, userID domain.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[id]
	if !ok {
		return false, ErrNotFound
	}

	if existing, ok := s.activeChallengeOf(userID); ok {
		if existing == id {
			return false, ErrDuplicateMembership
		}
		return false, ErrAlreadyEnrolled
	}
	if ch.State != domain.StateRecruiting {
		return false, ErrNotJoinable
	}
	if len(s.members[id]) >= ch.TeamSize {
		return false, ErrTeamFull
	}

	s.members[id] = append(s.members[id], domain.Membership{
		ChallengeID: id,
		UserID:      userID,
		JoinedAt:    time.Now().UTC(),
	})

	if len(s.members[id]) == ch.TeamSize {
		activatedAt := time.Now().UTC()
		closesAt := ch.Deadline(activatedAt)
		ch.State = domain.StateActive
		ch.ActivatedAt = &activatedAt
		ch.ClosesAt = &closesAt
		return true, nil
	}
	return false, nil
}

func (s *Memory) SetWorkspaceRef(_ context.Context, id domain.ChallengeID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[id]
	if !ok {
		return ErrNotFound
	}
	if ch.WorkspaceRef != "" {
		return ErrStateConflict
	}
	ch.WorkspaceRef = ref
	return nil
}

func (s *Memory) MarkDegraded(_ context.Context, id domain.ChallengeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[id]
	if !ok {
		return ErrNotFound
	}
	ch.Degraded = true
	return nil
}

func (s *Memory) CloseDue(_ context.Context, now time.Time) ([]domain.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var closed []domain.Challenge
	for _, ch := range s.challenges {
		if ch.State != domain.StateActive || ch.ClosesAt == nil || ch.ClosesAt.After(now) {
			continue
		}
		closedAt := now
		ch.State = domain.StateClosed
		ch.ClosedAt = &closedAt
		closed = append(closed, *ch)
	}
	return closed, nil
}

func (s *Memory) CancelChallenge(_ context.Context, id domain.ChallengeID, requester domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[id]
	if !ok {
		return ErrNotFound
	}
	if ch.CreatorID != requester {
		return ErrForbidden
	}
	if ch.State != domain.StateRecruiting {
		return ErrNotCancellable
	}
	closedAt := time.Now().UTC()
	ch.State = domain.StateCancelled
	ch.ClosedAt = &closedAt
	return nil
}

// caller must hold s.mu
func (s *Memory) activeChallengeOf(userID domain.UserID) (domain.ChallengeID, bool) {
	for id, members := range s.members {
		ch := s.challenges[id]
		if ch == nil || (ch.State != domain.StateRecruiting && ch.State != domain.StateActive) {
			continue
		}
		for _, m := range members {
			if m.UserID == userID {
				return id, true
			}
		}
	}
	return "", false
}
