// Package projection builds local timelines from received effects.
// Handles ordering, deduplication, and history replacement.
// Does not emit events or interact with the transport directly.
package projection

import (
	"github.com/google/uuid"

	"chat-relay/domain"
)

// Timeline holds a simple local timeline per channel.
type Timeline struct {
	seen     map[uuid.UUID]struct{}
	channels map[string][]domain.ChatEvent
}

func NewTimeline() *Timeline {
	return &Timeline{
		seen:     make(map[uuid.UUID]struct{}),
		channels: make(map[string][]domain.ChatEvent),
	}
}

// Consume appends a received message to its channel's timeline.
// Returns false when the event was already seen.
func (t *Timeline) Consume(evt domain.ChatEvent) bool {
	if _, dup := t.seen[evt.ID]; dup {
		return false
	}
	t.seen[evt.ID] = struct{}{}
	t.channels[evt.Channel] = append(t.channels[evt.Channel], evt)
	return true
}

// ReplaceHistory swaps a channel's local view for a server snapshot.
// Sent after a history request or an admin clear; the snapshot wins
// over anything accumulated locally.
func (t *Timeline) ReplaceHistory(channel string, events []domain.ChatEvent) {
	for _, evt := range t.channels[channel] {
		delete(t.seen, evt.ID)
	}
	t.channels[channel] = nil
	for _, evt := range events {
		t.Consume(evt)
	}
}

// Channel returns the local timeline of one channel in arrival order.
func (t *Timeline) Channel(name string) []domain.ChatEvent {
	events := t.channels[name]
	out := make([]domain.ChatEvent, len(events))
	copy(out, events)
	return out
}

// Len counts events across all channels.
func (t *Timeline) Len() int {
	return len(t.seen)
}
