package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ChallengeID string

type State string

const (
	StateRecruiting State = "RECRUITING"
	StateActive     State = "ACTIVE"
	StateClosed     State = "CLOSED"
	StateCancelled  State = "CANCELLED"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

const (
	MinTeamSize = 2
	MaxTeamSize = 6

	MinDurationHours     = 12
	MaxDurationHours     = 168
	DefaultDurationHours = 48
)

var ErrInvalidParameters = errors.New("invalid parameters")

// Themes is the fixed set of challenge topics the bot announces.
var Themes = map[string]bool{
	"AI Chatbot":     true,
	"Web App":        true,
	"Mobile App":     true,
	"Data Pipeline":  true,
	"Game":           true,
	"DevOps Tooling": true,
}

type Challenge struct {
	ID            ChallengeID `db:"challenge_id" json:"challenge_id"`
	CreatorID     UserID      `db:"creator_id" json:"creator_id"`
	Theme         string      `db:"theme" json:"theme"`
	TeamSize      int         `db:"team_size" json:"team_size"`
	DurationHours int         `db:"duration_hours" json:"duration_hours"`
	Difficulty    Difficulty  `db:"difficulty" json:"difficulty"`
	State         State       `db:"state" json:"state"`
	Degraded      bool        `db:"degraded" json:"degraded,omitempty"`
	WorkspaceRef  string      `db:"workspace_ref" json:"workspace_ref,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	ActivatedAt   *time.Time  `db:"activated_at" json:"activated_at,omitempty"`
	ClosesAt      *time.Time  `db:"closes_at" json:"closes_at,omitempty"`
	ClosedAt      *time.Time  `db:"closed_at" json:"closed_at,omitempty"`
}

// NewChallenge validates the creation parameters and builds a RECRUITING
// challenge. Zero durationHours and empty difficulty get the defaults.
func NewChallenge(creator UserID, theme string, teamSize, durationHours int, difficulty Difficulty) (*Challenge, error) {
	if creator == "" {
		return nil, fmt.Errorf("%w: creator_id required", ErrInvalidParameters)
	}
	if !Themes[theme] {
		return nil, fmt.Errorf("%w: unknown theme %q", ErrInvalidParameters, theme)
	}
	if teamSize < MinTeamSize || teamSize > MaxTeamSize {
		return nil, fmt.Errorf("%w: team_size must be %d..%d", ErrInvalidParameters, MinTeamSize, MaxTeamSize)
	}
	if durationHours == 0 {
		durationHours = DefaultDurationHours
	}
	if durationHours < MinDurationHours || durationHours > MaxDurationHours {
		return nil, fmt.Errorf("%w: duration_hours must be %d..%d", ErrInvalidParameters, MinDurationHours, MaxDurationHours)
	}
	if difficulty == "" {
		difficulty = DifficultyIntermediate
	}
	switch difficulty {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
	default:
		return nil, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidParameters, difficulty)
	}

	return &Challenge{
		ID:            ChallengeID(uuid.NewString()),
		CreatorID:     creator,
		Theme:         theme,
		TeamSize:      teamSize,
		DurationHours: durationHours,
		Difficulty:    difficulty,
		State:         StateRecruiting,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Deadline is the closure time implied by an activation at the given moment.
func (c *Challenge) Deadline(activatedAt time.Time) time.Time {
	return activatedAt.Add(time.Duration(c.DurationHours) * time.Hour)
}
