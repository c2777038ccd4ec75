package domain

import "time"

// Membership records that a user joined a challenge. Rows are kept after
// closure as the historical record.
type Membership struct {
	ChallengeID ChallengeID `db:"challenge_id" json:"challenge_id"`
	UserID      UserID      `db:"user_id" json:"user_id"`
	JoinedAt    time.Time   `db:"joined_at" json:"joined_at"`
}

// JoinResult is what a join attempt reports back. Filled is true for exactly
// the one join that completed the team; it is consumed internally to decide
// who triggers activation and is never shown to the user.
type JoinResult struct {
	Joined bool `json:"joined"`
	Filled bool `json:"-"`
}
