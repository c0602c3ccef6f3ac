// Package domain contains core concepts of the relay.
// This file defines the Session entity and its mute state.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"sync"
	"time"
)

// Session is the server-side record of one admitted, live connection.
// It is created by the registry on a successful join and destroyed on
// disconnect or forced termination.
type Session struct {
	ConnID   string
	Identity string
	Origin   string
	Elevated bool

	// muteExpiry is guarded by its own lock because the sweeper and the
	// connection worker touch it concurrently. A zero or past expiry
	// means the session is not muted.
	mu         sync.Mutex
	muteExpiry time.Time
}

func NewSession(connID, identity, origin string, elevated bool) *Session {
	return &Session{ConnID: connID, Identity: identity, Origin: origin, Elevated: elevated}
}

// Mute sets the expiry of the session's mute restriction.
func (s *Session) Mute(until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muteExpiry = until
}

// Unmute clears the restriction entirely.
func (s *Session) Unmute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muteExpiry = time.Time{}
}

// IsMuted reports whether the mute restriction is active at now.
// An expiry at or before now counts as absent, which keeps the lazy
// check and the sweep check identical.
func (s *Session) IsMuted(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muteExpiry.After(now)
}

// MuteRemaining returns the time left on an active mute, zero otherwise.
func (s *Session) MuteRemaining(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.muteExpiry.After(now) {
		return 0
	}
	return s.muteExpiry.Sub(now)
}

// MuteExpiredAt reports whether a previously set mute has lapsed by now.
// Used by the sweep to distinguish "expired" from "never muted".
func (s *Session) MuteExpiredAt(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.muteExpiry.IsZero() && !s.muteExpiry.After(now)
}
