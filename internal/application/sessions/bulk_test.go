package sessions

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lancache-tools/lancachectl/internal/domain/session"
	apperrors "github.com/lancache-tools/lancachectl/internal/shared/errors"
)

func newBulkFixture(t *testing.T) (*fakeAPI, *Reconciler, *PreferenceCache, *recordingNotifier, *BulkCoordinator) {
	t.Helper()
	fake := newFakeAPI()
	fake.pages[1] = testPage(1, 1, 2,
		testSession("s1", session.TypeAdmin),
		testSession("s2", session.TypeGuest),
	)

	notifier := &recordingNotifier{}
	reconciler := NewReconciler(fake, notifier, testLogger(), "")
	require.NoError(t, reconciler.LoadPage(context.Background(), 1, 10))

	cache := NewPreferenceCache(fake, testLogger())
	coordinator := NewBulkCoordinator(fake, reconciler, cache, notifier, testLogger())
	return fake, reconciler, cache, notifier, coordinator
}

func TestBulkResetAllPreferences(t *testing.T) {
	fake, _, cache, notifier, coordinator := newBulkFixture(t)
	fake.resetCount = 7
	cache.ApplyPush("s2", session.Preferences{Use24HourFormat: true})

	listCalls := fake.listCalls()
	count, err := coordinator.ResetAllPreferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, count)

	// Cached bundles are gone and the list was reloaded.
	assert.False(t, cache.IsLoaded("s2"))
	assert.Equal(t, listCalls+1, fake.listCalls())

	kind, msg := notifier.last()
	assert.Equal(t, NotifySuccess, kind)
	assert.Contains(t, msg, "7")
}

func TestBulkClearGuestSessions(t *testing.T) {
	fake, _, _, notifier, coordinator := newBulkFixture(t)
	fake.clearCount = 3

	count, err := coordinator.ClearGuestSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	kind, msg := notifier.last()
	assert.Equal(t, NotifySuccess, kind)
	assert.Contains(t, msg, "3")
}

func TestBulkFailureLeavesStateUntouched(t *testing.T) {
	fake, reconciler, cache, notifier, coordinator := newBulkFixture(t)
	fake.clearErr = apperrors.NewTransientError("connection refused")
	cache.ApplyPush("s2", session.Preferences{Use24HourFormat: true})

	listCalls := fake.listCalls()
	_, err := coordinator.ClearGuestSessions(context.Background())
	require.Error(t, err)

	// No reload, no cache invalidation, an error toast, and the action can
	// be retried immediately.
	assert.Equal(t, listCalls, fake.listCalls())
	assert.True(t, cache.IsLoaded("s2"))
	list, _ := reconciler.Snapshot()
	assert.Len(t, list, 2)
	kind, _ := notifier.last()
	assert.Equal(t, NotifyError, kind)
	assert.False(t, coordinator.Running())

	fake.mu.Lock()
	fake.clearErr = nil
	fake.clearCount = 2
	fake.mu.Unlock()
	count, err := coordinator.ClearGuestSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestBulkActionsAreMutuallyExclusive(t *testing.T) {
	_, _, _, _, coordinator := newBulkFixture(t)

	started := make(chan struct{})
	release := make(chan struct{})

	// Hold the first action open by blocking its API call.
	blockingAPI := &blockingBulkAPI{started: started, release: release}
	coordinator.api = blockingAPI

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = coordinator.ResetAllPreferences(context.Background())
	}()

	<-started
	assert.True(t, coordinator.Running())

	_, err := coordinator.ClearGuestSessions(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))

	close(release)
	wg.Wait()
	assert.False(t, coordinator.Running())
}

// blockingBulkAPI parks the first call until released.
type blockingBulkAPI struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingBulkAPI) block() {
	b.once.Do(func() { close(b.started) })
	<-b.release
}

func (b *blockingBulkAPI) ResetAllPreferences(context.Context) (int, error) {
	b.block()
	return 1, nil
}

func (b *blockingBulkAPI) ClearGuestSessions(context.Context) (int, error) {
	b.block()
	return 1, nil
}
