package sessions

import (
	"sync"
	"time"
)

// DefaultActivityWindow is how long after the last local interaction the
// client still counts as active.
const DefaultActivityWindow = 60 * time.Second

// LocalActivityTracker remembers the last local interaction and reports the
// client active while it falls inside the window.
type LocalActivityTracker struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewLocalActivityTracker creates a tracker with the given window. A zero
// window falls back to DefaultActivityWindow.
func NewLocalActivityTracker(window time.Duration) *LocalActivityTracker {
	if window <= 0 {
		window = DefaultActivityWindow
	}
	return &LocalActivityTracker{
		window: window,
		now:    time.Now,
	}
}

// Touch records a local interaction.
func (t *LocalActivityTracker) Touch() {
	t.mu.Lock()
	t.last = t.now()
	t.mu.Unlock()
}

// Active reports whether the last interaction is inside the window.
func (t *LocalActivityTracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last.IsZero() {
		return false
	}
	return t.now().Sub(t.last) <= t.window
}
