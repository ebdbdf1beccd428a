// Package format provides pure display helpers for session fields: address
// cleanup, user-agent parsing, byte sizes, and relative timestamps.
package format

import (
	"net"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mssola/useragent"
)

// CleanIP normalizes an address reported by the server for display. It
// removes a port suffix and the IPv6-mapped IPv4 prefix.
func CleanIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.Trim(s, "[]")
	if len(s) > 7 && strings.EqualFold(s[:7], "::ffff:") {
		s = s[7:]
	}
	return s
}

// Device describes a parsed user agent.
type Device struct {
	Name            string
	OperatingSystem string
	Browser         string
}

// ParseUserAgent extracts device name, operating system, and browser from a
// raw user-agent string. Unknown agents yield empty fields rather than
// placeholders.
func ParseUserAgent(raw string) Device {
	if raw == "" {
		return Device{}
	}
	ua := useragent.New(raw)

	name, version := ua.Browser()
	browser := name
	if version != "" {
		browser = name + " " + version
	}

	deviceName := ua.Platform()
	if ua.Mobile() {
		deviceName = ua.Model()
		if deviceName == "" {
			deviceName = ua.Platform()
		}
	}

	return Device{
		Name:            deviceName,
		OperatingSystem: ua.OSInfo().FullName,
		Browser:         browser,
	}
}

// Bytes renders a byte count for display.
func Bytes(n uint64) string {
	return humanize.Bytes(n)
}

// RelativeTime renders a timestamp relative to now.
func RelativeTime(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// Timestamp renders an absolute timestamp, optionally in the local timezone
// and 24-hour format, matching the display preferences a session carries.
func Timestamp(t time.Time, useLocal, use24Hour, showYear bool) string {
	if useLocal {
		t = t.Local()
	} else {
		t = t.UTC()
	}
	date := "Jan 2"
	if showYear {
		date = "Jan 2, 2006"
	}
	clock := "3:04 PM"
	if use24Hour {
		clock = "15:04"
	}
	return t.Format(date + " " + clock)
}
