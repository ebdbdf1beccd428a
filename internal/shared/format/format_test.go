package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCleanIP(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain ipv4", "192.168.1.10", "192.168.1.10"},
		{"ipv4 with port", "192.168.1.10:54321", "192.168.1.10"},
		{"mapped ipv4", "::ffff:10.0.0.5", "10.0.0.5"},
		{"mapped ipv4 uppercase", "::FFFF:10.0.0.5", "10.0.0.5"},
		{"ipv6 with brackets and port", "[2001:db8::1]:443", "2001:db8::1"},
		{"plain ipv6", "2001:db8::1", "2001:db8::1"},
		{"whitespace", "  127.0.0.1 ", "127.0.0.1"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanIP(tt.in))
		})
	}
}

func TestParseUserAgent(t *testing.T) {
	const chrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	d := ParseUserAgent(chrome)
	assert.Contains(t, d.Browser, "Chrome")
	assert.Contains(t, d.OperatingSystem, "Windows")
	assert.NotEmpty(t, d.Name)
}

func TestParseUserAgent_Empty(t *testing.T) {
	assert.Equal(t, Device{}, ParseUserAgent(""))
}

func TestBytes(t *testing.T) {
	assert.Equal(t, "0 B", Bytes(0))
	assert.Equal(t, "1.0 kB", Bytes(1000))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "5 minutes ago", RelativeTime(now.Add(-5*time.Minute), now))
	assert.Equal(t, "1 hour from now", RelativeTime(now.Add(time.Hour), now))
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, "Jun 1 15:30", Timestamp(ts, false, true, false))
	assert.Equal(t, "Jun 1, 2025 3:30 PM", Timestamp(ts, false, false, true))
}
