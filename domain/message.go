// Package domain contains core concepts of the relay.
// This file defines the ChatEvent record.
// ChatEvents are immutable once constructed.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatEvent is one relayed message: created by the dispatcher on a
// valid post, appended to the owning channel's history, never mutated.
// Elevated records the author's authorization level at posting time.
type ChatEvent struct {
	ID        uuid.UUID `json:"id"`
	Author    string    `json:"author"`
	Channel   string    `json:"channel"`
	Text      string    `json:"text"`
	Lang      string    `json:"lang,omitempty"`
	Elevated  bool      `json:"elevated"`
	CreatedAt time.Time `json:"createdAt"`
}
