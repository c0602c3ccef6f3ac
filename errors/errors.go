package errors

import "fmt"

// Join-time rejections. Each one is paired with a kick signal so the
// client can render a reason before the transport closes.
var (
	ErrIdentityTaken  = fmt.Errorf("identity already in use")
	ErrIdentityBanned = fmt.Errorf("identity is banned")
	ErrOriginBanned   = fmt.Errorf("origin address is banned")
)

// Event-level failures. Terminal for the triggering event only.
var (
	ErrUnauthorized    = fmt.Errorf("admin privileges required")
	ErrTargetNotFound  = fmt.Errorf("target not found")
	ErrMuted           = fmt.Errorf("session is muted")
	ErrInvalidScope    = fmt.Errorf("invalid ban scope")
	ErrInvalidInput    = fmt.Errorf("invalid event payload")
	ErrChannelNotFound = fmt.Errorf("channel not found")
	ErrChannelExists   = fmt.Errorf("channel already exists")
)

// Account and token errors.
var (
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
)

var (
	ErrWorkerPanic   = fmt.Errorf("worker panic")
	ErrEmptyWordList = fmt.Errorf("no censored words have been found")
)
