package store

import (
	"context"
	"errors"
	"time"

	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrNoActiveChallenge = errors.New("no active challenge")

	ErrAlreadyEnrolled     = errors.New("user already enrolled in another challenge")
	ErrDuplicateMembership = errors.New("user already joined this challenge")
	ErrNotJoinable         = errors.New("challenge is not recruiting")
	ErrTeamFull            = errors.New("team is full")

	ErrNotCancellable = errors.New("challenge can no longer be cancelled")
	ErrForbidden      = errors.New("not the challenge creator")

	// ErrStateConflict means a compare-and-set lost a race. It is the
	// expected outcome for every concurrent transition attempt but one,
	// so callers treat it as a no-op and never surface it to users.
	ErrStateConflict = errors.New("state conflict")
)

// ChallengeStore is the transactional contract the engine relies on. Both
// backends guarantee that the join protocol and the state transitions are
// serialized per challenge, so the fill and close transitions happen exactly
// once no matter how many callers race.
type ChallengeStore interface {
	CreateChallenge(ctx context.Context, ch *domain.Challenge) error
	GetChallenge(ctx context.Context, id domain.ChallengeID) (*domain.Challenge, []domain.Membership, error)

	// ActiveChallengeByUser returns the single RECRUITING or ACTIVE
	// challenge the user is a member of, with its member count, or
	// ErrNoActiveChallenge.
	ActiveChallengeByUser(ctx context.Context, userID domain.UserID) (*domain.Challenge, int, error)

	// LatestRecruiting resolves the open invitation a bare join targets:
	// the most recently created RECRUITING challenge.
	LatestRecruiting(ctx context.Context) (domain.ChallengeID, error)

	// JoinChallenge runs the whole join protocol in one transaction:
	// precondition checks in order (ErrAlreadyEnrolled,
	// ErrDuplicateMembership, ErrNotJoinable, ErrTeamFull), membership
	// insert, post-insert count, and — when the insert completes the
	// team — the RECRUITING→ACTIVE transition with activated_at and
	// closes_at. Filled is true only for the join that performed that
	// transition.
	JoinChallenge(ctx context.Context, id domain.ChallengeID, userID domain.UserID) (filled bool, err error)

	// SetWorkspaceRef stores the provisioned workspace, only if none is
	// set yet; ErrStateConflict when another activation got there first.
	SetWorkspaceRef(ctx context.Context, id domain.ChallengeID, ref string) error

	MarkDegraded(ctx context.Context, id domain.ChallengeID) error

	// CloseDue transitions every ACTIVE challenge with closes_at <= now
	// to CLOSED and returns the challenges this call actually closed.
	// Concurrent sweeps converge on one winner per challenge.
	CloseDue(ctx context.Context, now time.Time) ([]domain.Challenge, error)

	// CancelChallenge moves a RECRUITING challenge to CANCELLED. Only the
	// creator may cancel.
	CancelChallenge(ctx context.Context, id domain.ChallengeID, requester domain.UserID) error
}
