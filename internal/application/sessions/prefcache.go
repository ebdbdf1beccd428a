package sessions

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/lancache-tools/lancachectl/internal/domain/session"
	"github.com/lancache-tools/lancachectl/internal/infrastructure/pubsub"
	"github.com/lancache-tools/lancachectl/internal/infrastructure/push"
	"github.com/lancache-tools/lancachectl/internal/shared/logger"
)

// PreferenceCache is the single point of truth for per-session preference
// bundles: what is cached, and whether a fetch is already in flight.
//
// A failed fetch leaves the id not loaded so the next caller retries;
// errors are never cached. Push-delivered bundles overwrite unconditionally
// (last write wins, no merge).
type PreferenceCache struct {
	api PreferenceAPI
	log logger.Interface

	group singleflight.Group

	mu      sync.RWMutex
	loaded  map[string]session.Preferences
	loading map[string]struct{}
}

// NewPreferenceCache creates an empty cache.
func NewPreferenceCache(api PreferenceAPI, log logger.Interface) *PreferenceCache {
	return &PreferenceCache{
		api:     api,
		log:     log.Named("prefcache"),
		loaded:  make(map[string]session.Preferences),
		loading: make(map[string]struct{}),
	}
}

// Get returns the cached bundle for a session, without ever blocking.
func (c *PreferenceCache) Get(id string) (session.Preferences, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	prefs, ok := c.loaded[id]
	if !ok {
		return session.Preferences{}, false
	}
	return prefs.Clone(), true
}

// IsLoaded reports whether the bundle for a session is cached.
func (c *PreferenceCache) IsLoaded(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.loaded[id]
	return ok
}

// IsLoading reports whether a fetch for a session is in flight.
func (c *PreferenceCache) IsLoading(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.loading[id]
	return ok
}

// EnsureLoaded fetches and caches the bundle for a session. It is
// idempotent: a cached id is a no-op, and concurrent callers for the same
// uncached id share a single fetch and its outcome.
func (c *PreferenceCache) EnsureLoaded(ctx context.Context, id string) (session.Preferences, error) {
	if prefs, ok := c.Get(id); ok {
		return prefs, nil
	}

	result, err, _ := c.group.Do(id, func() (any, error) {
		// Re-check under the flight: a push may have populated the id
		// between the fast path and here.
		if prefs, ok := c.Get(id); ok {
			return prefs, nil
		}

		c.mu.Lock()
		c.loading[id] = struct{}{}
		c.mu.Unlock()

		prefs, err := c.api.GetPreferences(ctx, id)

		c.mu.Lock()
		delete(c.loading, id)
		if err == nil {
			c.loaded[id] = prefs.Clone()
		}
		c.mu.Unlock()

		if err != nil {
			c.log.Warnw("preference fetch failed", "session_id", id, "error", err)
			return session.Preferences{}, err
		}
		return prefs.Clone(), nil
	})
	if err != nil {
		return session.Preferences{}, err
	}
	return result.(session.Preferences), nil
}

// ApplyPush overwrites the cached bundle for a session with a fresher one
// delivered over the push channel.
func (c *PreferenceCache) ApplyPush(id string, prefs session.Preferences) {
	c.mu.Lock()
	c.loaded[id] = prefs.Clone()
	c.mu.Unlock()
}

// Invalidate drops the cached bundle for one session.
func (c *PreferenceCache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.loaded, id)
	c.mu.Unlock()
}

// InvalidateAll drops every cached bundle.
func (c *PreferenceCache) InvalidateAll() {
	c.mu.Lock()
	c.loaded = make(map[string]session.Preferences)
	c.mu.Unlock()
}

// Bind subscribes the cache to push events and returns a teardown function
// that removes every subscription.
func (c *PreferenceCache) Bind(bus *pubsub.Bus) func() {
	unsubPermission := bus.Subscribe(push.EventGuestPrefillPermissionChanged, func(p any) {
		ev, ok := p.(push.PrefillPermissionChanged)
		if !ok {
			return
		}
		if ev.Preferences != nil {
			c.ApplyPush(ev.SessionID, *ev.Preferences)
			return
		}
		// No bundle on the event; drop the stale one so the next read
		// refetches.
		c.Invalidate(ev.SessionID)
	})

	unsubReset := bus.Subscribe(push.EventUserPreferencesReset, func(any) {
		c.InvalidateAll()
	})

	return func() {
		unsubPermission()
		unsubReset()
	}
}
