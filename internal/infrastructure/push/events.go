// Package push provides the websocket client for the manager's real-time
// channel. Incoming messages are decoded into typed payloads and fanned out
// through the in-process event bus.
package push

import (
	"encoding/json"
	"time"

	"github.com/lancache-tools/lancachectl/internal/domain/session"
)

// Event names delivered by the manager. Unknown names are ignored.
const (
	EventUserSessionCreated             = "UserSessionCreated"
	EventUserSessionRevoked             = "UserSessionRevoked"
	EventUserSessionDeleted             = "UserSessionDeleted"
	EventUserSessionsCleared            = "UserSessionsCleared"
	EventSessionLastSeenUpdated         = "SessionLastSeenUpdated"
	EventUserPreferencesReset           = "UserPreferencesReset"
	EventGuestPrefillPermissionChanged  = "GuestPrefillPermissionChanged"
	EventDefaultGuestPreferencesChanged = "DefaultGuestPreferencesChanged"
	EventAllowedTimeFormatsChanged      = "AllowedTimeFormatsChanged"
	EventGuestPrefillConfigChanged      = "GuestPrefillConfigChanged"
	EventEpicGuestPrefillConfigChanged  = "EpicGuestPrefillConfigChanged"
	EventGuestRefreshRateUpdated        = "GuestRefreshRateUpdated"
)

// envelope is the wire shape of a push message.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SessionRef identifies the session a lifecycle event targets.
type SessionRef struct {
	SessionID string `json:"sessionId"`
}

// SessionCreated announces a new session. The list reloads rather than
// patching, so the payload is informational.
type SessionCreated struct {
	Session session.Session `json:"session"`
}

// SessionsCleared announces a bulk guest clear.
type SessionsCleared struct {
	Count int `json:"count"`
}

// LastSeenUpdated carries a heartbeat tick for one session.
type LastSeenUpdated struct {
	SessionID  string    `json:"sessionId"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// PreferencesReset announces a bulk reset of all session preferences.
type PreferencesReset struct {
	Count int `json:"count"`
}

// PrefillPermissionChanged announces a per-service grant change on one
// session. When the server includes the session's fresh preference bundle it
// replaces the cached one wholesale.
type PrefillPermissionChanged struct {
	SessionID   string               `json:"sessionId"`
	Service     session.Service      `json:"service"`
	Enabled     bool                 `json:"enabled"`
	ExpiresAt   *time.Time           `json:"expiresAt,omitempty"`
	Preferences *session.Preferences `json:"preferences,omitempty"`
}

// AllowedTimeFormatsChanged announces a new default time format set.
type AllowedTimeFormatsChanged struct {
	AllowedTimeFormats []string `json:"allowedTimeFormats"`
}

// GuestRefreshRateUpdated announces a change to the guest refresh rate
// default and its lock flag.
type GuestRefreshRateUpdated struct {
	RefreshRate string `json:"refreshRate"`
	Locked      bool   `json:"locked"`
}

// decodePayload maps an envelope to its typed payload. A nil return with
// ok=true means the event carries no payload; ok=false means the event type
// is unknown and should be skipped.
func decodePayload(env *envelope) (payload any, ok bool) {
	switch env.Type {
	case EventUserSessionCreated:
		return decodeAs[SessionCreated](env.Data)
	case EventUserSessionRevoked, EventUserSessionDeleted:
		return decodeAs[SessionRef](env.Data)
	case EventUserSessionsCleared:
		return decodeAs[SessionsCleared](env.Data)
	case EventSessionLastSeenUpdated:
		return decodeAs[LastSeenUpdated](env.Data)
	case EventUserPreferencesReset:
		return decodeAs[PreferencesReset](env.Data)
	case EventGuestPrefillPermissionChanged:
		return decodeAs[PrefillPermissionChanged](env.Data)
	case EventDefaultGuestPreferencesChanged:
		return decodeAs[session.GuestDefaults](env.Data)
	case EventAllowedTimeFormatsChanged:
		return decodeAs[AllowedTimeFormatsChanged](env.Data)
	case EventGuestPrefillConfigChanged, EventEpicGuestPrefillConfigChanged:
		return decodeAs[session.PrefillConfig](env.Data)
	case EventGuestRefreshRateUpdated:
		return decodeAs[GuestRefreshRateUpdated](env.Data)
	default:
		return nil, false
	}
}

func decodeAs[T any](data json.RawMessage) (any, bool) {
	var v T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, false
		}
	}
	return v, true
}
