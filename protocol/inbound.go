// Package protocol defines the JSON wire format: the channel-agnostic
// inbound envelope and the outbound effect shapes.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"chat-relay/errors"
)

type EventType string

const (
	EventJoin       EventType = "join"
	EventMessage    EventType = "message"
	EventGetHistory EventType = "getHistory"
	EventTyping     EventType = "typing"
	EventAdminKick  EventType = "admin_kick"
	EventAdminMute  EventType = "admin_mute"
	EventAdminBan   EventType = "admin_ban"
	EventAdminClear EventType = "admin_clear"
)

// AdminEvents gates the dispatcher's authorization check.
var AdminEvents = map[EventType]bool{
	EventAdminKick:  true,
	EventAdminMute:  true,
	EventAdminBan:   true,
	EventAdminClear: true,
}

// Envelope carries the event type plus the raw payload; the dispatcher
// decodes the payload once it knows which handler applies.
type Envelope struct {
	Type EventType
	Raw  json.RawMessage
}

// ParseEnvelope decodes the outer envelope. A malformed frame is a
// transport-boundary parse error, never an uncaught fault.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}
	if head.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", errors.ErrInvalidInput)
	}
	return Envelope{Type: head.Type, Raw: raw}, nil
}

var validate = validator.New()

// Decode unmarshals and validates a type-specific payload.
func Decode[T any](env Envelope) (T, error) {
	var payload T
	if err := json.Unmarshal(env.Raw, &payload); err != nil {
		return payload, fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}
	if err := validate.Struct(payload); err != nil {
		return payload, fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}
	return payload, nil
}

// JoinEvent asks for admission under an identity. Elevation is granted
// only when Token is a valid server-issued credential carrying the
// admin role; a client cannot elevate itself by assertion.
type JoinEvent struct {
	Identity string `json:"identity" validate:"required,max=64"`
	Token    string `json:"token"`
}

type MessageEvent struct {
	Channel string `json:"channel" validate:"required"`
	Text    string `json:"text" validate:"required"`
}

type HistoryRequest struct {
	Channel string `json:"channel" validate:"required"`
}

type TypingEvent struct {
	Channel  string `json:"channel" validate:"required"`
	IsTyping bool   `json:"isTyping"`
}

type KickEvent struct {
	TargetIdentity string `json:"targetIdentity" validate:"required"`
}

type MuteEvent struct {
	TargetIdentity  string `json:"targetIdentity" validate:"required"`
	DurationMinutes int    `json:"durationMinutes" validate:"min=0"`
}

// Ban scopes: identity bans are permanent regardless of duration,
// origin bans honor the requested duration.
const (
	BanScopeIdentity = "identity"
	BanScopeOrigin   = "origin"
)

type BanEvent struct {
	TargetIdentity  string `json:"targetIdentity" validate:"required"`
	DurationMinutes int    `json:"durationMinutes" validate:"min=0"`
	BanScope        string `json:"banScope" validate:"required"`
}

type ClearEvent struct {
	Channel string `json:"channel" validate:"required"`
}
