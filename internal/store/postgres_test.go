package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/domain"
	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/logger"
)

func connectTestStore(t *testing.T) *Postgres {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	s, err := NewPostgres(url, logger.NewNop())
	if err != nil {
		t.Fatalf("failed to connect to DB: %v", err)
	}
	t.Cleanup(func() { s.DB().Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "schema.sql"))
	if err != nil {
		t.Fatalf("failed to read schema: %v", err)
	}
	if _, err := s.DB().Exec(string(schema)); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := s.DB().Exec(`TRUNCATE TABLE memberships, challenges CASCADE`); err != nil {
		t.Fatalf("failed to reset DB: %v", err)
	}
	return s
}

func TestPostgresJoinRaceOnLastSlot(t *testing.T) {
	s := connectTestStore(t)
	ctx := context.Background()

	const teamSize = 2
	const racers = 6

	ch, err := domain.NewChallenge("creator", "AI Chatbot", teamSize, 48, domain.DifficultyIntermediate)
	if err != nil {
		t.Fatalf("new challenge: %v", err)
	}
	if err := s.CreateChallenge(ctx, ch); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	joined, filled, rejected := 0, 0, 0

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			f, err := s.JoinChallenge(ctx, ch.ID, domain.UserID(fmt.Sprintf("pg-racer-%d", n)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				joined++
				if f {
					filled++
				}
			case errors.Is(err, ErrTeamFull), errors.Is(err, ErrNotJoinable):
				rejected++
			default:
				t.Errorf("unexpected join error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if joined != teamSize || filled != 1 || rejected != racers-teamSize {
		t.Fatalf("joined=%d filled=%d rejected=%d", joined, filled, rejected)
	}

	got, members, err := s.GetChallenge(ctx, ch.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(members) != teamSize {
		t.Fatalf("overfill: %d members", len(members))
	}
	if got.State != domain.StateActive || got.ClosesAt == nil {
		t.Fatalf("expected activated challenge, got state=%s", got.State)
	}
}

func TestPostgresDuplicateAndCrossChallenge(t *testing.T) {
	s := connectTestStore(t)
	ctx := context.Background()

	ch, err := domain.NewChallenge("creator", "Web App", 3, 48, domain.DifficultyBeginner)
	if err != nil {
		t.Fatalf("new challenge: %v", err)
	}
	if err := s.CreateChallenge(ctx, ch); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.JoinChallenge(ctx, ch.ID, "u1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := s.JoinChallenge(ctx, ch.ID, "u1"); !errors.Is(err, ErrDuplicateMembership) {
		t.Fatalf("expected ErrDuplicateMembership, got %v", err)
	}

	other, err := domain.NewChallenge("creator2", "Game", 2, 48, domain.DifficultyAdvanced)
	if err != nil {
		t.Fatalf("new challenge: %v", err)
	}
	if err := s.CreateChallenge(ctx, other); err != nil {
		t.Fatalf("create other: %v", err)
	}
	if _, err := s.JoinChallenge(ctx, other.ID, "u1"); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("expected ErrAlreadyEnrolled, got %v", err)
	}
}

func TestPostgresCloseDueConcurrentSweeps(t *testing.T) {
	s := connectTestStore(t)
	ctx := context.Background()

	ch, err := domain.NewChallenge("creator", "Data Pipeline", 2, 12, domain.DifficultyIntermediate)
	if err != nil {
		t.Fatalf("new challenge: %v", err)
	}
	if err := s.CreateChallenge(ctx, ch); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, u := range []domain.UserID{"u1", "u2"} {
		if _, err := s.JoinChallenge(ctx, ch.ID, u); err != nil {
			t.Fatalf("join %s: %v", u, err)
		}
	}

	future := time.Now().UTC().Add(13 * time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			closed, err := s.CloseDue(ctx, future)
			if err != nil {
				t.Errorf("close due: %v", err)
				return
			}
			mu.Lock()
			total += len(closed)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total != 1 {
		t.Fatalf("expected exactly one closure, got %d", total)
	}
}

func TestPostgresWorkspaceRefCAS(t *testing.T) {
	s := connectTestStore(t)
	ctx := context.Background()

	ch, err := domain.NewChallenge("creator", "Mobile App", 2, 48, domain.DifficultyIntermediate)
	if err != nil {
		t.Fatalf("new challenge: %v", err)
	}
	if err := s.CreateChallenge(ctx, ch); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.SetWorkspaceRef(ctx, ch.ID, "C1"); err != nil {
		t.Fatalf("set ref: %v", err)
	}
	if err := s.SetWorkspaceRef(ctx, ch.ID, "C2"); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}
	if err := s.SetWorkspaceRef(ctx, "missing", "C3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
