package sessions

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/lancache-tools/lancachectl/internal/shared/errors"
	"github.com/lancache-tools/lancachectl/internal/shared/logger"
)

// ErrBulkActionRunning is returned when a bulk action is requested while
// another one is still in flight.
var ErrBulkActionRunning = apperrors.NewValidationError("another bulk action is still running")

// BulkCoordinator serializes the two fleet-wide actions: resetting every
// session's preferences and clearing all guest sessions. At most one bulk
// action runs at a time; a second request while one is in flight is
// rejected rather than queued.
//
// After a successful action the coordinator reloads the session list and
// drops every cached preference bundle, since both actions invalidate
// state across the whole fleet.
type BulkCoordinator struct {
	api        BulkAPI
	reconciler *Reconciler
	cache      *PreferenceCache
	notifier   Notifier
	log        logger.Interface

	mu      sync.Mutex
	running bool
}

// NewBulkCoordinator wires the coordinator to the list and cache it must
// refresh after each action.
func NewBulkCoordinator(api BulkAPI, reconciler *Reconciler, cache *PreferenceCache, notifier Notifier, log logger.Interface) *BulkCoordinator {
	return &BulkCoordinator{
		api:        api,
		reconciler: reconciler,
		cache:      cache,
		notifier:   notifier,
		log:        log.Named("bulk"),
	}
}

// Running reports whether a bulk action is in flight.
func (b *BulkCoordinator) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// ResetAllPreferences resets every session's preference bundle to the
// defaults and reports how many sessions the server touched.
func (b *BulkCoordinator) ResetAllPreferences(ctx context.Context) (int, error) {
	return b.run(ctx, "reset preferences", b.api.ResetAllPreferences,
		func(count int) string {
			return fmt.Sprintf("Reset preferences for %d session(s)", count)
		})
}

// ClearGuestSessions revokes and removes every guest session and reports
// how many the server cleared.
func (b *BulkCoordinator) ClearGuestSessions(ctx context.Context) (int, error) {
	return b.run(ctx, "clear guests", b.api.ClearGuestSessions,
		func(count int) string {
			return fmt.Sprintf("Cleared %d guest session(s)", count)
		})
}

func (b *BulkCoordinator) run(ctx context.Context, name string, action func(context.Context) (int, error), message func(int) string) (int, error) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return 0, ErrBulkActionRunning
	}
	b.running = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	count, err := action(ctx)
	if err != nil {
		// List and cache stay untouched; the action can simply be retried.
		b.log.Warnw("bulk action failed", "action", name, "error", err)
		b.notifier.Notify(NotifyError, apperrors.UserMessage(err))
		return 0, err
	}

	b.cache.InvalidateAll()
	if err := b.reconciler.Reload(ctx); err != nil {
		b.log.Warnw("post-action reload failed", "action", name, "error", err)
	}

	b.notifier.Notify(NotifySuccess, message(count))
	return count, nil
}
