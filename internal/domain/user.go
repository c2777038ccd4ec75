package domain

// UserID is the chat-platform identity of a participant. The bot keeps no
// user table of its own; the one-active-challenge rule is derived from
// membership rows.
type UserID string
