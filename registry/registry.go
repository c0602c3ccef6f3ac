// Package registry maintains the set of admitted, live sessions and
// enforces identity uniqueness.
package registry

import (
	"log/slog"
	"sync"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
)

// BanChecker is the slice of the moderation store the registry needs
// at admission time.
type BanChecker interface {
	IsIdentityBanned(identity string) bool
}

type entry struct {
	session *domain.Session
	sink    contract.EventSink
}

// Registry owns the live sessions. It keeps two indices in lockstep:
// connID -> session and identity -> connID, so the uniqueness
// invariant is checkable in one step instead of a linear scan.
type Registry struct {
	mu         sync.RWMutex
	log        *slog.Logger
	bans       BanChecker
	conns      map[string]entry
	identities map[string]string
}

func New(log *slog.Logger, bans BanChecker) *Registry {
	return &Registry{
		log:        log,
		bans:       bans,
		conns:      make(map[string]entry),
		identities: make(map[string]string),
	}
}

// Admit creates a session for a connection that passed the transport
// checks. It fails when the identity is banned or already held by a
// live session. Elevated must already be server-verified by the caller.
func (r *Registry) Admit(connID, identity, origin string, elevated bool, sink contract.EventSink) (*domain.Session, error) {
	if r.bans != nil && r.bans.IsIdentityBanned(identity) {
		return nil, errors.ErrIdentityBanned
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.identities[identity]; taken {
		return nil, errors.ErrIdentityTaken
	}

	session := domain.NewSession(connID, identity, origin, elevated)
	r.conns[connID] = entry{session: session, sink: sink}
	r.identities[identity] = connID

	r.log.Info("session admitted",
		"identity", identity,
		"origin", origin,
		"elevated", elevated,
		"live_sessions", len(r.conns))
	return session, nil
}

// Remove drops the session for a connection. Idempotent: removing an
// unknown connection is a no-op. Returns the removed session, if any.
func (r *Registry) Remove(connID string) *domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return nil
	}
	delete(r.conns, connID)
	delete(r.identities, e.session.Identity)

	r.log.Info("session removed",
		"identity", e.session.Identity,
		"live_sessions", len(r.conns))
	return e.session
}

// Find resolves a moderation target by identity.
func (r *Registry) Find(identity string) (*domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connID, ok := r.identities[identity]
	if !ok {
		return nil, false
	}
	e, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// SinkFor returns the delivery sink of a live session.
func (r *Registry) SinkFor(connID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return e.sink, true
}

// Sinks returns the sinks of every live session except the excluded
// connection. Pass an empty string to address everyone.
func (r *Registry) Sinks(excludeConnID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]contract.EventSink, 0, len(r.conns))
	for connID, e := range r.conns {
		if connID == excludeConnID {
			continue
		}
		sinks = append(sinks, e.sink)
	}
	return sinks
}

// Sessions returns every live session. The sweeper walks this to lift
// expired mutes.
func (r *Registry) Sessions() []*domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*domain.Session, 0, len(r.conns))
	for _, e := range r.conns {
		sessions = append(sessions, e.session)
	}
	return sessions
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Info is one row of the participant snapshot. IsMuted is computed
// against the clock at snapshot time, not stored.
type Info struct {
	Identity string
	Elevated bool
	IsMuted  bool
}

// Snapshot lists the live participants in no particular order.
func (r *Registry) Snapshot(now time.Time) []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.conns))
	for _, e := range r.conns {
		infos = append(infos, Info{
			Identity: e.session.Identity,
			Elevated: e.session.Elevated,
			IsMuted:  e.session.IsMuted(now),
		})
	}
	return infos
}
