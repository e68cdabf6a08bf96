package domain

import "time"

// AuthEvent is one persisted auth lifecycle record.
type AuthEvent struct {
	ID         string
	Type       string
	UserID     string
	SessionID  string
	Path       string
	Reason     string
	Payload    map[string]any
	OccurredAt time.Time
}
