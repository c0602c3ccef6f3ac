// Package runtime wires the relay core together: channel histories,
// broadcast fan-out, and the per-connection event dispatcher. It
// orchestrates without containing wire-format or transport logic.
package runtime

import (
	"log/slog"
	"sort"
	"sync"

	"chat-relay/domain"
	"chat-relay/errors"
)

// ChannelStore owns every channel and its bounded history. Coarse
// single-lock discipline: message volumes make per-channel locks an
// optimization, not a need, and it keeps the append order guarantee
// trivially true.
type ChannelStore struct {
	mu       sync.RWMutex
	log      *slog.Logger
	channels map[string]*domain.Channel
}

func NewChannelStore(log *slog.Logger, names ...string) *ChannelStore {
	s := &ChannelStore{log: log, channels: make(map[string]*domain.Channel)}
	for _, name := range names {
		s.channels[name] = domain.NewChannel(name)
	}
	return s
}

// Create adds a channel. Strict on the write side: duplicates and
// empty names are errors.
func (s *ChannelStore) Create(name string) error {
	if name == "" {
		return errors.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[name]; ok {
		return errors.ErrChannelExists
	}
	s.channels[name] = domain.NewChannel(name)
	s.log.Info("channel created", "channel", name)
	return nil
}

// Post appends an event to the channel's history; the channel evicts
// its single oldest entry beyond the bound.
func (s *ChannelStore) Post(name string, evt domain.ChatEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[name]
	if !ok {
		return errors.ErrChannelNotFound
	}
	ch.Append(evt)
	return nil
}

// History is forgiving on the read side: unknown channels yield an
// empty sequence, not an error.
func (s *ChannelStore) History(name string) []domain.ChatEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[name]
	if !ok {
		return nil
	}
	return ch.History()
}

// Clear empties a channel's history in place without removing the
// channel itself.
func (s *ChannelStore) Clear(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[name]
	if !ok {
		return errors.ErrChannelNotFound
	}
	ch.Clear()
	s.log.Info("channel cleared", "channel", name)
	return nil
}

func (s *ChannelStore) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.channels[name]
	return ok
}

// Names lists the channels sorted for stable payloads.
func (s *ChannelStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *ChannelStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channels)
}
