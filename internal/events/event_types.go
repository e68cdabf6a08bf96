package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionLogin       EventType = "session_login"
	EventSessionLogout      EventType = "session_logout"
	EventTokenRefreshed     EventType = "token_refreshed"
	EventTokenRefreshFailed EventType = "token_refresh_failed"
	EventLoginRedirect      EventType = "login_redirect"
	EventAccessDenied       EventType = "access_denied"
)

// AllTypes lists every event type in publication order of a typical session.
var AllTypes = []EventType{
	EventSessionLogin,
	EventTokenRefreshed,
	EventTokenRefreshFailed,
	EventAccessDenied,
	EventLoginRedirect,
	EventSessionLogout,
}

// Event represents an auth lifecycle event emitted by the web tier.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	UserID    string         `json:"user_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Path      string         `json:"path,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// New stamps an event of the given type with a fresh id and the current time.
func New(eventType EventType) Event {
	now := time.Now().UTC()
	return Event{ID: NewID(now), Type: eventType, Timestamp: now}
}

// LoginPayload is attached to session_login events.
func LoginPayload(remember bool) map[string]any {
	scope := "temporary"
	if remember {
		scope = "remembered"
	}
	return map[string]any{"scope": scope}
}

// RefreshPayload is attached to refresh events.
func RefreshPayload(followers int) map[string]any {
	return map[string]any{"followers": followers}
}
