package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/lancache-tools/lancachectl/internal/domain/session"
	"github.com/lancache-tools/lancachectl/internal/infrastructure/api"
	"github.com/lancache-tools/lancachectl/internal/infrastructure/pubsub"
	"github.com/lancache-tools/lancachectl/internal/infrastructure/push"
	apperrors "github.com/lancache-tools/lancachectl/internal/shared/errors"
	"github.com/lancache-tools/lancachectl/internal/shared/logger"
)

// Reconciler owns the in-memory paginated session list and keeps it
// consistent with both explicit page loads and push events.
//
// Creation, revocation, and mass clears reload the current page because
// they move pagination totals in ways a local patch cannot reflect.
// Heartbeat ticks are patched in place (they are high-frequency and a
// reload per tick would be jittery), and deletions are removed locally.
// Events apply in receipt order; when two patches hit the same session the
// later one wins for any field both touch.
type Reconciler struct {
	lister           SessionLister
	notifier         Notifier
	log              logger.Interface
	currentSessionID string

	mu         sync.RWMutex
	sessions   []session.Session
	pagination api.Pagination
	pageSize   int
	loadedOnce bool
}

// NewReconciler creates an empty reconciler. currentSessionID may be empty
// when the bearer token carries no session id; no row is then marked as the
// caller's own.
func NewReconciler(lister SessionLister, notifier Notifier, log logger.Interface, currentSessionID string) *Reconciler {
	return &Reconciler{
		lister:           lister,
		notifier:         notifier,
		log:              log.Named("reconciler"),
		currentSessionID: currentSessionID,
	}
}

// LoadPage replaces the in-memory list with the requested page. Pagination
// metadata comes from the server, never from local arithmetic. On failure
// the previous list stays untouched and a transient notification is
// emitted.
func (r *Reconciler) LoadPage(ctx context.Context, page, pageSize int) error {
	result, err := r.lister.ListSessions(ctx, page, pageSize)
	if err != nil {
		r.log.Warnw("session page load failed", "page", page, "error", err)
		r.notifier.Notify(NotifyError, apperrors.UserMessage(err))
		return err
	}

	r.mu.Lock()
	r.sessions = make([]session.Session, len(result.Sessions))
	for i := range result.Sessions {
		r.sessions[i] = result.Sessions[i].Clone()
		if r.currentSessionID != "" && r.sessions[i].ID == r.currentSessionID {
			r.sessions[i].IsCurrentSession = true
		}
	}
	r.pagination = result.Pagination
	r.pageSize = pageSize
	r.loadedOnce = true
	r.mu.Unlock()

	return nil
}

// Reload fetches the current page again. Before the first LoadPage it is a
// no-op.
func (r *Reconciler) Reload(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loadedOnce
	page := r.pagination.Page
	pageSize := r.pageSize
	r.mu.RUnlock()

	if !loaded {
		return nil
	}
	return r.LoadPage(ctx, page, pageSize)
}

// Snapshot returns a deep copy of the list and its pagination metadata for
// rendering.
func (r *Reconciler) Snapshot() ([]session.Session, api.Pagination) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]session.Session, len(r.sessions))
	for i := range r.sessions {
		out[i] = r.sessions[i].Clone()
	}
	return out, r.pagination
}

// ApplyLastSeenUpdated patches the heartbeat timestamp of one session in
// place. Every other field and the list order are left untouched; an
// unknown id is ignored.
func (r *Reconciler) ApplyLastSeenUpdated(id string, lastSeen time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.sessions {
		if r.sessions[i].ID == id {
			ts := lastSeen
			r.sessions[i].LastSeenAt = &ts
			return
		}
	}
}

// ApplyDeleted removes a session from the in-memory list without a reload.
// The pagination total may briefly disagree until the next page load; what
// remains visible is still correct.
func (r *Reconciler) ApplyDeleted(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.sessions {
		if r.sessions[i].ID == id {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			return
		}
	}
}

// Bind subscribes the reconciler to push events and returns a teardown
// function. Reloads triggered by push events use the given context.
func (r *Reconciler) Bind(ctx context.Context, bus *pubsub.Bus) func() {
	reload := func(reason string) {
		if err := r.Reload(ctx); err != nil {
			r.log.Warnw("push-triggered reload failed", "reason", reason, "error", err)
		}
	}

	unsubs := []func(){
		bus.Subscribe(push.EventUserSessionCreated, func(any) {
			reload("session created")
		}),
		bus.Subscribe(push.EventUserSessionRevoked, func(any) {
			reload("session revoked")
		}),
		bus.Subscribe(push.EventUserSessionsCleared, func(any) {
			reload("sessions cleared")
		}),
		bus.Subscribe(push.EventSessionLastSeenUpdated, func(p any) {
			if ev, ok := p.(push.LastSeenUpdated); ok {
				r.ApplyLastSeenUpdated(ev.SessionID, ev.LastSeenAt)
			}
		}),
		bus.Subscribe(push.EventUserSessionDeleted, func(p any) {
			if ev, ok := p.(push.SessionRef); ok {
				r.ApplyDeleted(ev.SessionID)
			}
		}),
	}

	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
