// Package sessions implements the client-side state layer for manager
// sessions: the paginated list reconciler, the per-session preference cache,
// the edit buffer, and the bulk action coordinator. All shared state is
// mutated exclusively through these types.
package sessions

import (
	"context"

	"github.com/lancache-tools/lancachectl/internal/domain/session"
	"github.com/lancache-tools/lancachectl/internal/infrastructure/api"
)

// SessionLister loads pages of the session list.
type SessionLister interface {
	ListSessions(ctx context.Context, page, pageSize int) (*api.SessionPage, error)
}

// PreferenceAPI reads and writes per-session preference bundles.
type PreferenceAPI interface {
	GetPreferences(ctx context.Context, id string) (*session.Preferences, error)
	PutPreferences(ctx context.Context, id string, prefs session.Preferences) error
}

// PrefillAPI toggles per-service prefill grants on a session.
type PrefillAPI interface {
	SetSessionPrefill(ctx context.Context, id string, service session.Service, enabled bool) error
}

// BulkAPI runs the two bulk operations.
type BulkAPI interface {
	ResetAllPreferences(ctx context.Context) (int, error)
	ClearGuestSessions(ctx context.Context) (int, error)
}

// NotifyKind classifies a toast message.
type NotifyKind string

const (
	NotifySuccess NotifyKind = "success"
	NotifyError   NotifyKind = "error"
	NotifyWarning NotifyKind = "warning"
)

// Notifier is the toast sink. Implementations render or log the message;
// this layer only emits kind/message pairs.
type Notifier interface {
	Notify(kind NotifyKind, message string)
}

// ActivityTracker reports whether this client is actively being used. The
// liveness classifier trusts it for the caller's own session.
type ActivityTracker interface {
	Active() bool
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(NotifyKind, string) {}
