package sessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalActivityTracker(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewLocalActivityTracker(0)
	tracker.now = func() time.Time { return now }

	// No interaction recorded yet.
	assert.False(t, tracker.Active())

	tracker.Touch()
	assert.True(t, tracker.Active())

	now = now.Add(DefaultActivityWindow)
	assert.True(t, tracker.Active())

	now = now.Add(time.Second)
	assert.False(t, tracker.Active())

	tracker.Touch()
	assert.True(t, tracker.Active())
}
