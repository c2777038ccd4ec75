package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewChallengeDefaults(t *testing.T) {
	ch, err := NewChallenge("u1", "AI Chatbot", 4, 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.DurationHours != DefaultDurationHours {
		t.Fatalf("expected default duration %d, got %d", DefaultDurationHours, ch.DurationHours)
	}
	if ch.Difficulty != DifficultyIntermediate {
		t.Fatalf("expected default difficulty, got %s", ch.Difficulty)
	}
	if ch.State != StateRecruiting {
		t.Fatalf("expected RECRUITING, got %s", ch.State)
	}
	if ch.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestNewChallengeValidation(t *testing.T) {
	cases := []struct {
		name          string
		creator       UserID
		theme         string
		teamSize      int
		durationHours int
		difficulty    Difficulty
	}{
		{"missing creator", "", "AI Chatbot", 4, 48, DifficultyBeginner},
		{"unknown theme", "u1", "Knitting", 4, 48, DifficultyBeginner},
		{"team too small", "u1", "AI Chatbot", 1, 48, DifficultyBeginner},
		{"team too big", "u1", "AI Chatbot", 7, 48, DifficultyBeginner},
		{"duration too short", "u1", "AI Chatbot", 4, 11, DifficultyBeginner},
		{"duration too long", "u1", "AI Chatbot", 4, 169, DifficultyBeginner},
		{"unknown difficulty", "u1", "AI Chatbot", 4, 48, "impossible"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewChallenge(tc.creator, tc.theme, tc.teamSize, tc.durationHours, tc.difficulty)
			if !errors.Is(err, ErrInvalidParameters) {
				t.Fatalf("expected ErrInvalidParameters, got %v", err)
			}
		})
	}
}

func TestNewChallengeBounds(t *testing.T) {
	for _, size := range []int{MinTeamSize, MaxTeamSize} {
		if _, err := NewChallenge("u1", "Web App", size, MinDurationHours, DifficultyAdvanced); err != nil {
			t.Fatalf("team size %d should be valid: %v", size, err)
		}
	}
	if _, err := NewChallenge("u1", "Web App", 3, MaxDurationHours, DifficultyBeginner); err != nil {
		t.Fatalf("max duration should be valid: %v", err)
	}
}

func TestDeadline(t *testing.T) {
	ch, err := NewChallenge("u1", "Game", 2, 48, DifficultyIntermediate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	want := at.Add(48 * time.Hour)
	if got := ch.Deadline(at); !got.Equal(want) {
		t.Fatalf("expected deadline %v, got %v", want, got)
	}
}
