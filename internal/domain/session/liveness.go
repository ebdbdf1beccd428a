package session

import "time"

// Liveness is the derived activity classification of a session.
type Liveness string

const (
	LivenessActive   Liveness = "active"
	LivenessAway     Liveness = "away"
	LivenessInactive Liveness = "inactive"
)

const (
	// activeWindow is the maximum heartbeat age still considered active.
	activeWindow = 60 * time.Second
	// awayWindow is the maximum heartbeat age still considered away.
	awayWindow = 600 * time.Second
)

// Classify maps a session, the local activity signal, and the current time
// to a liveness state. It is pure and safe to call on every render.
//
// Revoked or expired sessions are inactive regardless of anything else. The
// caller's own session trusts the local activity tracker over server
// timestamps. Otherwise the heartbeat age decides, with both boundaries
// inclusive on the fresher branch: exactly 60s is active, exactly 600s is
// away.
func Classify(s *Session, locallyActive bool, now time.Time) Liveness {
	if s.IsRevoked || s.IsExpired {
		return LivenessInactive
	}
	if s.IsCurrentSession && locallyActive {
		return LivenessActive
	}
	if s.LastSeenAt == nil {
		return LivenessInactive
	}
	elapsed := now.Sub(*s.LastSeenAt)
	switch {
	case elapsed <= activeWindow:
		return LivenessActive
	case elapsed <= awayWindow:
		return LivenessAway
	default:
		return LivenessInactive
	}
}
