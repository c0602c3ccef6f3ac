package protocol

import "chat-relay/domain"

// Outbound effect shapes. Every effect carries its own type tag so
// clients can switch on a single field.
const (
	TypeConnected    = "connected"
	TypeJoined       = "joined"
	TypeUserList     = "userList"
	TypeMessage      = "message"
	TypeHistory      = "history"
	TypeTyping       = "typing"
	TypeMuted        = "muted"
	TypeAdminConfirm = "admin_confirm"
	TypeError        = "error"
)

type ConnectedEffect struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewConnected(message string) ConnectedEffect {
	return ConnectedEffect{Type: TypeConnected, Message: message}
}

type JoinedEffect struct {
	Type     string   `json:"type"`
	Identity string   `json:"identity"`
	Channels []string `json:"channels"`
}

func NewJoined(identity string, channels []string) JoinedEffect {
	return JoinedEffect{Type: TypeJoined, Identity: identity, Channels: channels}
}

type UserEntry struct {
	Identity string `json:"identity"`
	IsAdmin  bool   `json:"isAdmin"`
	IsMuted  bool   `json:"isMuted"`
}

type UserListEffect struct {
	Type  string      `json:"type"`
	Users []UserEntry `json:"users"`
}

func NewUserList(users []UserEntry) UserListEffect {
	return UserListEffect{Type: TypeUserList, Users: users}
}

type MessageEffect struct {
	Type  string           `json:"type"`
	Event domain.ChatEvent `json:"event"`
}

func NewMessage(evt domain.ChatEvent) MessageEffect {
	return MessageEffect{Type: TypeMessage, Event: evt}
}

type HistoryEffect struct {
	Type    string             `json:"type"`
	Channel string             `json:"channel"`
	Events  []domain.ChatEvent `json:"events"`
}

func NewHistory(channel string, events []domain.ChatEvent) HistoryEffect {
	if events == nil {
		events = []domain.ChatEvent{}
	}
	return HistoryEffect{Type: TypeHistory, Channel: channel, Events: events}
}

type TypingEffect struct {
	Type     string `json:"type"`
	Identity string `json:"identity"`
	Channel  string `json:"channel"`
	IsTyping bool   `json:"isTyping"`
}

func NewTyping(identity, channel string, isTyping bool) TypingEffect {
	return TypingEffect{Type: TypeTyping, Identity: identity, Channel: channel, IsTyping: isTyping}
}

type MutedEffect struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func NewMuted(reason string) MutedEffect {
	return MutedEffect{Type: TypeMuted, Reason: reason}
}

type AdminConfirmEffect struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewAdminConfirm(message string) AdminConfirmEffect {
	return AdminConfirmEffect{Type: TypeAdminConfirm, Message: message}
}

// ErrorEffect reports a rejection to the caller. Kick tells the client
// to tear down its own connection state proactively instead of waiting
// for the transport to notice.
type ErrorEffect struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Kick    bool   `json:"kick,omitempty"`
}

func NewError(message string, kick bool) ErrorEffect {
	return ErrorEffect{Type: TypeError, Message: message, Kick: kick}
}
