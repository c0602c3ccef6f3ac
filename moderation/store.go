// Package moderation owns restriction state: banned identities,
// banned origins, and the content censor. Ban and mute lifecycle data
// lives here independently of any single session's existence.
package moderation

import (
	"log/slog"
	"sync"
	"time"

	"chat-relay/domain"
)

// Store holds the ban sets. Identity bans are permanent once issued;
// origin bans carry an expiry (a far-future one encodes "permanent").
type Store struct {
	mu           sync.Mutex
	log          *slog.Logger
	identityBans map[string]struct{}
	originBans   map[string]domain.OriginBan
}

func NewStore(log *slog.Logger) *Store {
	return &Store{
		log:          log,
		identityBans: make(map[string]struct{}),
		originBans:   make(map[string]domain.OriginBan),
	}
}

func (s *Store) IsIdentityBanned(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, banned := s.identityBans[identity]
	return banned
}

// IsOriginBanned checks lazily against now, so a just-expired ban
// never blocks a reconnect even if the sweep hasn't run yet.
func (s *Store) IsOriginBanned(origin string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ban, ok := s.originBans[origin]
	if !ok {
		return false
	}
	return !ban.ExpiredAt(now)
}

// BanIdentity adds the identity to the permanent set. Idempotent;
// there is no removal path.
func (s *Store) BanIdentity(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identityBans[identity] = struct{}{}
	s.log.Info("identity banned", "identity", identity)
}

// BanOrigin bans a network origin for the given duration in minutes,
// overwriting any existing ban for that origin. Zero means permanent.
func (s *Store) BanOrigin(origin string, minutes int, now time.Time) {
	expiry := domain.RestrictionExpiry(now, minutes)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.originBans[origin] = domain.OriginBan{Origin: origin, ExpiresAt: expiry}
	s.log.Info("origin banned", "origin", origin, "expires_at", expiry)
}

// MuteSession sets the session's mute expiry with the same
// zero-means-permanent convention as origin bans.
func (s *Store) MuteSession(session *domain.Session, minutes int, now time.Time) {
	session.Mute(domain.RestrictionExpiry(now, minutes))
	s.log.Info("session muted", "identity", session.Identity, "minutes", minutes)
}

// SweepExpired removes origin bans whose expiry has passed and returns
// the lifted origins. Mute expiry on live sessions is swept by the
// sweep worker, which owns the notification side effects.
func (s *Store) SweepExpired(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lifted []string
	for origin, ban := range s.originBans {
		if ban.ExpiredAt(now) {
			delete(s.originBans, origin)
			lifted = append(lifted, origin)
		}
	}
	if len(lifted) > 0 {
		s.log.Info("origin bans lifted", "count", len(lifted))
	}
	return lifted
}
