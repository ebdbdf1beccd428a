package sessions

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/lancache-tools/lancachectl/internal/domain/session"
	apperrors "github.com/lancache-tools/lancachectl/internal/shared/errors"
	"github.com/lancache-tools/lancachectl/internal/shared/logger"
)

// EditAPI is what the edit buffer needs from the API client.
type EditAPI interface {
	PreferenceAPI
	PrefillAPI
}

// SaveResult reports the outcome of a Save. When the main preference write
// succeeded but one or more per-service toggle calls failed, the bundle is
// already committed server-side; PartialFailures names the services left in
// their previous state so the caller can surface a "partially saved"
// outcome instead of hiding it.
type SaveResult struct {
	PartialFailures map[session.Service]error
}

// Partial reports whether any secondary call failed.
func (r *SaveResult) Partial() bool {
	return len(r.PartialFailures) > 0
}

// EditBuffer is the transient draft behind one open edit dialog: a mutable
// copy of a session's preferences plus pending per-service prefill
// overrides, committed atomically on Save and discarded on Cancel.
//
// Only one buffer instance is ever open at a time; the zero value is
// closed.
type EditBuffer struct {
	api      EditAPI
	notifier Notifier
	log      logger.Interface
	validate *validator.Validate

	// applyLocal is invoked with the saved bundle when the edited session
	// is the caller's own, so locally observable settings take effect
	// immediately. Optional.
	applyLocal func(session.Preferences)

	mu         sync.Mutex
	open       bool
	generation uint64
	sess       session.Session
	draft      session.Preferences
	pending    map[session.Service]session.Override[bool]
}

// NewEditBuffer creates a closed edit buffer.
func NewEditBuffer(api EditAPI, notifier Notifier, log logger.Interface) *EditBuffer {
	return &EditBuffer{
		api:      api,
		notifier: notifier,
		log:      log.Named("editbuffer"),
		validate: validator.New(),
	}
}

// OnOwnSessionSaved registers a callback applied after saving the caller's
// own session.
func (b *EditBuffer) OnOwnSessionSaved(fn func(session.Preferences)) {
	b.mu.Lock()
	b.applyLocal = fn
	b.mu.Unlock()
}

// Open fetches a fresh preference snapshot for the session and seeds the
// draft from it. The fetch is deliberately independent of the preference
// cache so the editor never shows a stale bundle. When the server has no
// bundle (or the fetch fails) the draft seeds from the defaults so the
// editor is always usable.
//
// A snapshot arriving after the buffer was closed again is discarded.
func (b *EditBuffer) Open(ctx context.Context, sess session.Session) error {
	b.mu.Lock()
	b.generation++
	gen := b.generation
	b.open = true
	b.sess = sess.Clone()
	b.draft = session.DefaultPreferences()
	b.pending = make(map[session.Service]session.Override[bool])
	b.mu.Unlock()

	prefs, err := b.api.GetPreferences(ctx, sess.ID)
	if err != nil {
		if !apperrors.IsNotFoundError(err) {
			b.log.Warnw("preference snapshot failed, seeding defaults",
				"session_id", sess.ID, "error", err)
		}
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open || b.generation != gen {
		// The dialog closed while the fetch was in flight.
		return nil
	}
	b.draft = prefs.Clone()
	return nil
}

// IsOpen reports whether the buffer holds a draft.
func (b *EditBuffer) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Session returns the session being edited.
func (b *EditBuffer) Session() session.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sess.Clone()
}

// Draft returns a copy of the current draft bundle.
func (b *EditBuffer) Draft() session.Preferences {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draft.Clone()
}

// Update mutates the draft. The underlying session and caches stay
// untouched until Save.
func (b *EditBuffer) Update(fn func(*session.Preferences)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return
	}
	fn(&b.draft)
}

// SetPrefill stages a per-service prefill grant or revocation. Nothing is
// sent until Save.
func (b *EditBuffer) SetPrefill(service session.Service, enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return
	}
	b.pending[service] = session.Pending(enabled)
}

// ClearPrefill drops a staged prefill change, reverting the display to the
// session's current server value.
func (b *EditBuffer) ClearPrefill(service session.Service) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, service)
}

// PendingPrefill returns the staged override for a service. The inherit
// state means "no pending change, show the current server value".
func (b *EditBuffer) PendingPrefill(service session.Service) session.Override[bool] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.pending[service]; ok {
		return o
	}
	return session.Inherit[bool]()
}

// EffectivePrefill is the value the dialog displays: the staged override if
// one exists, otherwise the session's current grant.
func (b *EditBuffer) EffectivePrefill(service session.Service) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.pending[service]
	return o.Or(b.sess.PrefillFor(service).Enabled)
}

// Save validates the draft, writes the whole bundle in one PUT, and only
// after that succeeds issues the staged per-service toggle calls in
// parallel (they target disjoint services, so order does not matter). A
// failed PUT leaves the buffer open with the draft intact. Toggle failures
// after a committed PUT are not rolled back; they are reported through the
// SaveResult and a warning notification.
func (b *EditBuffer) Save(ctx context.Context) (*SaveResult, error) {
	b.mu.Lock()
	if !b.open {
		b.mu.Unlock()
		return nil, apperrors.NewValidationError("no edit in progress")
	}
	gen := b.generation
	sess := b.sess.Clone()
	draft := b.draft.Clone()
	pending := make(map[session.Service]bool, len(b.pending))
	for svc, o := range b.pending {
		if v, ok := o.Value(); ok {
			pending[svc] = v
		}
	}
	applyLocal := b.applyLocal
	b.mu.Unlock()

	if err := b.validate.Struct(draft); err != nil {
		return nil, apperrors.NewValidationError("invalid preferences", err.Error())
	}

	if err := b.api.PutPreferences(ctx, sess.ID, draft); err != nil {
		b.notifier.Notify(NotifyError, apperrors.UserMessage(err))
		return nil, err
	}

	result := &SaveResult{PartialFailures: make(map[session.Service]error)}
	var resultMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for svc, enabled := range pending {
		g.Go(func() error {
			if err := b.api.SetSessionPrefill(gctx, sess.ID, svc, enabled); err != nil {
				resultMu.Lock()
				result.PartialFailures[svc] = err
				resultMu.Unlock()
			}
			// Secondary failures are collected, not propagated: the main
			// bundle is already committed.
			return nil
		})
	}
	_ = g.Wait()

	if sess.IsCurrentSession && applyLocal != nil {
		applyLocal(draft.Clone())
	}

	b.mu.Lock()
	if b.open && b.generation == gen {
		b.open = false
		b.pending = nil
	}
	b.mu.Unlock()

	if result.Partial() {
		for svc, err := range result.PartialFailures {
			b.log.Warnw("prefill toggle failed after save",
				"session_id", sess.ID, "service", svc, "error", err)
		}
		b.notifier.Notify(NotifyWarning,
			fmt.Sprintf("preferences saved, but %d prefill change(s) failed", len(result.PartialFailures)))
	} else {
		b.notifier.Notify(NotifySuccess, "preferences saved")
	}

	return result, nil
}

// Cancel discards the draft and every staged change without touching the
// network, the session list, or the preference cache.
func (b *EditBuffer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.generation++
	b.draft = session.Preferences{}
	b.pending = nil
}

// Close is Cancel under the name dialogs use.
func (b *EditBuffer) Close() {
	b.Cancel()
}
