package session

// RefreshRate values accepted by the manager.
const (
	RefreshRateOff           = "off"
	RefreshRate15s           = "15s"
	RefreshRate30s           = "30s"
	RefreshRate1m            = "1m"
	RefreshRate5m            = "5m"
	DefaultGuestRefreshRate  = RefreshRate30s
	DefaultGuestPrefillHours = 24
)

// Preferences is a per-session bundle of display and behavior settings.
// Nil pointer fields mean "inherit the global default"; they are distinct
// from an explicit false/zero override.
type Preferences struct {
	Theme *string `json:"theme"`

	SharpCorners               bool `json:"sharpCorners"`
	DisableFocusOutlines       bool `json:"disableFocusOutlines"`
	DisableTooltips            bool `json:"disableTooltips"`
	PicsAlwaysVisible          bool `json:"picsAlwaysVisible"`
	DisableStickyNotifications bool `json:"disableStickyNotifications"`
	ShowDatasourceLabels       bool `json:"showDatasourceLabels"`
	UseLocalTimezone           bool `json:"useLocalTimezone"`
	Use24HourFormat            bool `json:"use24HourFormat"`
	ShowYearInDates            bool `json:"showYearInDates"`

	RefreshRate       *string `json:"refreshRate" validate:"omitempty,oneof=off 15s 30s 1m 5m"`
	RefreshRateLocked *bool   `json:"refreshRateLocked"`

	AllowedTimeFormats []string `json:"allowedTimeFormats" validate:"omitempty,dive,oneof=relative absolute 24h 12h"`
	MaxThreadCount     *int     `json:"maxThreadCount" validate:"omitempty,gte=1,lte=32"`
}

// DefaultPreferences returns the bundle used to seed an editor when the
// server has nothing stored for a session yet.
func DefaultPreferences() Preferences {
	return Preferences{}
}

// Clone returns a deep copy of the bundle.
func (p Preferences) Clone() Preferences {
	out := p
	out.Theme = cloneString(p.Theme)
	out.RefreshRate = cloneString(p.RefreshRate)
	out.RefreshRateLocked = cloneBool(p.RefreshRateLocked)
	out.MaxThreadCount = cloneInt(p.MaxThreadCount)
	if p.AllowedTimeFormats != nil {
		out.AllowedTimeFormats = append([]string(nil), p.AllowedTimeFormats...)
	}
	return out
}

// GuestDefaults is the process-wide default preference bundle applied to new
// guest sessions, mirrored from the server.
type GuestDefaults struct {
	Theme              *string  `json:"theme"`
	RefreshRate        string   `json:"refreshRate"`
	RefreshRateLocked  bool     `json:"refreshRateLocked"`
	AllowedTimeFormats []string `json:"allowedTimeFormats"`
}

// PrefillConfig is the per-service prefill default configuration.
type PrefillConfig struct {
	Service          Service `json:"service"`
	EnabledByDefault bool    `json:"enabledByDefault"`
	DurationHours    int     `json:"durationHours" validate:"gte=1,lte=720"`
	MaxThreadCount   int     `json:"maxThreadCount" validate:"gte=1,lte=32"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
