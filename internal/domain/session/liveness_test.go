package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify_RevokedOrExpiredAlwaysInactive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Second)

	tests := []struct {
		name    string
		session Session
	}{
		{"revoked", Session{IsRevoked: true, LastSeenAt: &recent}},
		{"expired", Session{IsExpired: true, LastSeenAt: &recent}},
		{"revoked and expired", Session{IsRevoked: true, IsExpired: true, LastSeenAt: &recent}},
		{"revoked current session with local activity", Session{IsRevoked: true, IsCurrentSession: true, LastSeenAt: &recent}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, LivenessInactive, Classify(&tt.session, true, now))
		})
	}
}

func TestClassify_CurrentSessionTrustsLocalActivity(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stale := now.Add(-time.Hour)

	s := Session{IsCurrentSession: true, LastSeenAt: &stale}

	assert.Equal(t, LivenessActive, Classify(&s, true, now))
	// Without local activity the stale heartbeat decides.
	assert.Equal(t, LivenessInactive, Classify(&s, false, now))
}

func TestClassify_NilLastSeenIsInactive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, LivenessInactive, Classify(&Session{}, false, now))
}

func TestClassify_Thresholds(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ago  time.Duration
		want Liveness
	}{
		{"59s is active", 59 * time.Second, LivenessActive},
		{"exactly 60s is active", 60 * time.Second, LivenessActive},
		{"61s is away", 61 * time.Second, LivenessAway},
		{"exactly 600s is away", 600 * time.Second, LivenessAway},
		{"601s is inactive", 601 * time.Second, LivenessInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lastSeen := now.Add(-tt.ago)
			s := Session{LastSeenAt: &lastSeen}
			assert.Equal(t, tt.want, Classify(&s, false, now))
		})
	}
}
