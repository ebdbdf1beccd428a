// Package session holds the client-side model of manager sessions and their
// preference bundles, plus the pure liveness classification over them.
package session

import (
	"encoding/json"
	"time"
)

// Type classifies a session.
type Type string

const (
	TypeAdmin Type = "admin"
	TypeGuest Type = "guest"
)

// Service names a prefill-capable external service.
type Service string

const (
	ServiceSteam Service = "steam"
	ServiceEpic  Service = "epic"
)

// Services lists the supported prefill services in display order.
var Services = []Service{ServiceSteam, ServiceEpic}

// PrefillGrant is a per-service prefill entitlement on a guest session.
type PrefillGrant struct {
	Enabled   bool       `json:"enabled"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Session mirrors one admin or guest session known to the server. All
// mutation happens server-side; the client only observes via list loads and
// push events.
type Session struct {
	ID          string `json:"id"`
	SessionType Type   `json:"sessionType"`

	IPAddress       string `json:"ipAddress,omitempty"`
	UserAgent       string `json:"userAgent,omitempty"`
	DeviceName      string `json:"deviceName,omitempty"`
	OperatingSystem string `json:"operatingSystem,omitempty"`
	Browser         string `json:"browser,omitempty"`

	CreatedAt  time.Time  `json:"createdAt"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
	// ExpiresAt is meaningful for guest sessions while IsExpired is false.
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`

	IsExpired        bool `json:"isExpired"`
	IsRevoked        bool `json:"isRevoked"`
	IsCurrentSession bool `json:"isCurrentSession"`

	SteamPrefill *PrefillGrant `json:"steamPrefill,omitempty"`
	EpicPrefill  *PrefillGrant `json:"epicPrefill,omitempty"`
	// Prefill is the legacy unified grant predating per-service fields.
	Prefill *PrefillGrant `json:"prefill,omitempty"`
}

// sessionAlias avoids recursion in UnmarshalJSON.
type sessionAlias Session

type sessionWire struct {
	sessionAlias
	// LegacyType is the older classification field ("authenticated"/"guest").
	LegacyType string `json:"type,omitempty"`
}

// UnmarshalJSON accepts both the current wire shape and the older variant
// that carried `type` instead of `sessionType`.
func (s *Session) UnmarshalJSON(data []byte) error {
	var w sessionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Session(w.sessionAlias)
	if s.SessionType == "" {
		switch w.LegacyType {
		case "authenticated":
			s.SessionType = TypeAdmin
		case "guest":
			s.SessionType = TypeGuest
		}
	}
	return nil
}

// IsActive reports whether the session belongs in the primary list.
// Revocation and expiry are independent flags; either one retires it.
func (s *Session) IsActive() bool {
	return !s.IsRevoked && !s.IsExpired
}

// PrefillFor returns the effective grant for a service, falling back to the
// legacy unified grant when no per-service field is present.
func (s *Session) PrefillFor(service Service) PrefillGrant {
	var g *PrefillGrant
	switch service {
	case ServiceSteam:
		g = s.SteamPrefill
	case ServiceEpic:
		g = s.EpicPrefill
	}
	if g == nil {
		g = s.Prefill
	}
	if g == nil {
		return PrefillGrant{}
	}
	return *g
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() Session {
	out := *s
	out.LastSeenAt = cloneTime(s.LastSeenAt)
	out.ExpiresAt = cloneTime(s.ExpiresAt)
	out.RevokedAt = cloneTime(s.RevokedAt)
	out.SteamPrefill = cloneGrant(s.SteamPrefill)
	out.EpicPrefill = cloneGrant(s.EpicPrefill)
	out.Prefill = cloneGrant(s.Prefill)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneGrant(g *PrefillGrant) *PrefillGrant {
	if g == nil {
		return nil
	}
	c := *g
	c.ExpiresAt = cloneTime(g.ExpiresAt)
	return &c
}
