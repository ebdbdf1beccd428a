package sessions

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lancache-tools/lancachectl/internal/domain/session"
	"github.com/lancache-tools/lancachectl/internal/infrastructure/pubsub"
	"github.com/lancache-tools/lancachectl/internal/infrastructure/push"
	apperrors "github.com/lancache-tools/lancachectl/internal/shared/errors"
)

func strPtr(s string) *string { return &s }

func TestPreferenceCacheEnsureLoaded(t *testing.T) {
	fake := newFakeAPI()
	fake.prefs["s1"] = session.Preferences{Theme: strPtr("dark")}

	cache := NewPreferenceCache(fake, testLogger())

	prefs, err := cache.EnsureLoaded(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, prefs.Theme)
	assert.Equal(t, "dark", *prefs.Theme)
	assert.True(t, cache.IsLoaded("s1"))

	// Second call is served from the cache.
	_, err = cache.EnsureLoaded(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.getCalls())
}

func TestPreferenceCacheConcurrentEnsureLoadedSharesOneFetch(t *testing.T) {
	fake := newFakeAPI()
	fake.prefs["s1"] = session.Preferences{Theme: strPtr("dark")}
	fake.getStarted = make(chan struct{}, 1)
	fake.getRelease = make(chan struct{})

	cache := NewPreferenceCache(fake, testLogger())

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = cache.EnsureLoaded(context.Background(), "s1")
		}()
	}

	// Wait for the single fetch to start, then let it finish.
	<-fake.getStarted
	close(fake.getRelease)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fake.getCalls())
	assert.True(t, cache.IsLoaded("s1"))
}

func TestPreferenceCacheFailedFetchIsRetryable(t *testing.T) {
	fake := newFakeAPI()
	fake.getErr = apperrors.NewTransientError("connection refused")

	cache := NewPreferenceCache(fake, testLogger())

	_, err := cache.EnsureLoaded(context.Background(), "s1")
	require.Error(t, err)
	assert.False(t, cache.IsLoaded("s1"))
	assert.False(t, cache.IsLoading("s1"))

	// Clearing the fault makes the next call succeed with a fresh fetch.
	fake.mu.Lock()
	fake.getErr = nil
	fake.prefs["s1"] = session.Preferences{Theme: strPtr("light")}
	fake.mu.Unlock()

	prefs, err := cache.EnsureLoaded(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, prefs.Theme)
	assert.Equal(t, "light", *prefs.Theme)
	assert.Equal(t, 2, fake.getCalls())
}

func TestPreferenceCacheApplyPushOverwrites(t *testing.T) {
	fake := newFakeAPI()
	fake.prefs["s1"] = session.Preferences{Theme: strPtr("dark"), Use24HourFormat: true}

	cache := NewPreferenceCache(fake, testLogger())
	_, err := cache.EnsureLoaded(context.Background(), "s1")
	require.NoError(t, err)

	// The pushed bundle replaces the cached one wholesale.
	cache.ApplyPush("s1", session.Preferences{Theme: strPtr("light")})

	prefs, ok := cache.Get("s1")
	require.True(t, ok)
	require.NotNil(t, prefs.Theme)
	assert.Equal(t, "light", *prefs.Theme)
	assert.False(t, prefs.Use24HourFormat)
}

func TestPreferenceCacheGetReturnsCopy(t *testing.T) {
	cache := NewPreferenceCache(newFakeAPI(), testLogger())
	cache.ApplyPush("s1", session.Preferences{Theme: strPtr("dark")})

	prefs, ok := cache.Get("s1")
	require.True(t, ok)
	*prefs.Theme = "mutated"

	again, ok := cache.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "dark", *again.Theme)
}

func TestPreferenceCacheBind(t *testing.T) {
	fake := newFakeAPI()
	cache := NewPreferenceCache(fake, testLogger())
	bus := pubsub.NewBus(testLogger())
	unbind := cache.Bind(bus)
	defer unbind()

	cache.ApplyPush("s1", session.Preferences{Theme: strPtr("dark")})
	cache.ApplyPush("s2", session.Preferences{Theme: strPtr("dark")})

	// Permission event carrying a bundle overwrites that session only.
	bus.Publish(push.EventGuestPrefillPermissionChanged, push.PrefillPermissionChanged{
		SessionID:   "s1",
		Service:     session.ServiceSteam,
		Enabled:     true,
		Preferences: &session.Preferences{Theme: strPtr("light")},
	})
	prefs, ok := cache.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "light", *prefs.Theme)
	_, ok = cache.Get("s2")
	assert.True(t, ok)

	// Permission event without a bundle drops the entry instead.
	bus.Publish(push.EventGuestPrefillPermissionChanged, push.PrefillPermissionChanged{
		SessionID: "s2",
		Service:   session.ServiceEpic,
	})
	_, ok = cache.Get("s2")
	assert.False(t, ok)

	// Fleet-wide reset empties the cache.
	bus.Publish(push.EventUserPreferencesReset, push.PreferencesReset{Count: 3})
	_, ok = cache.Get("s1")
	assert.False(t, ok)
}
