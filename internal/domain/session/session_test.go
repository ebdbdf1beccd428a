package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_UnmarshalLegacyType(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Type
	}{
		{"current shape", `{"id":"s1","sessionType":"guest"}`, TypeGuest},
		{"legacy authenticated", `{"id":"s1","type":"authenticated"}`, TypeAdmin},
		{"legacy guest", `{"id":"s1","type":"guest"}`, TypeGuest},
		{"sessionType wins over legacy", `{"id":"s1","sessionType":"admin","type":"guest"}`, TypeAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Session
			require.NoError(t, json.Unmarshal([]byte(tt.body), &s))
			assert.Equal(t, tt.want, s.SessionType)
		})
	}
}

func TestSession_IsActive(t *testing.T) {
	assert.True(t, (&Session{}).IsActive())
	assert.False(t, (&Session{IsRevoked: true}).IsActive())
	assert.False(t, (&Session{IsExpired: true}).IsActive())
	assert.False(t, (&Session{IsRevoked: true, IsExpired: true}).IsActive())
}

func TestSession_PrefillFor(t *testing.T) {
	exp := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	s := Session{
		SteamPrefill: &PrefillGrant{Enabled: true, ExpiresAt: &exp},
		Prefill:      &PrefillGrant{Enabled: false},
	}

	steam := s.PrefillFor(ServiceSteam)
	assert.True(t, steam.Enabled)
	require.NotNil(t, steam.ExpiresAt)
	assert.Equal(t, exp, *steam.ExpiresAt)

	// No per-service grant for epic, legacy unified field applies.
	epic := s.PrefillFor(ServiceEpic)
	assert.False(t, epic.Enabled)

	// Neither field present.
	assert.Equal(t, PrefillGrant{}, (&Session{}).PrefillFor(ServiceEpic))
}

func TestSession_CloneIsIndependent(t *testing.T) {
	seen := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	s := Session{
		ID:           "s1",
		LastSeenAt:   &seen,
		SteamPrefill: &PrefillGrant{Enabled: true},
	}

	c := s.Clone()
	*c.LastSeenAt = c.LastSeenAt.Add(time.Hour)
	c.SteamPrefill.Enabled = false

	assert.Equal(t, seen, *s.LastSeenAt)
	assert.True(t, s.SteamPrefill.Enabled)
}

func TestPreferences_CloneIsIndependent(t *testing.T) {
	theme := "dark"
	locked := true
	p := Preferences{
		Theme:              &theme,
		RefreshRateLocked:  &locked,
		AllowedTimeFormats: []string{"relative", "absolute"},
	}

	c := p.Clone()
	*c.Theme = "light"
	*c.RefreshRateLocked = false
	c.AllowedTimeFormats[0] = "24h"

	assert.Equal(t, "dark", *p.Theme)
	assert.True(t, *p.RefreshRateLocked)
	assert.Equal(t, "relative", p.AllowedTimeFormats[0])
}
