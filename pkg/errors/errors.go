// Package errors provides standardized error definitions for the song-request engine.
package errors

import "fmt"

// Kind classifies an error for propagation policy purposes.
type Kind int

const (
	// KindRejection is an expected, user-facing policy rejection. It always
	// carries a specific reason and is never logged as an error.
	KindRejection Kind = iota
	// KindUpstream is a failure of an external collaborator (catalog,
	// playback transport). Recovered locally, surfaced once to the user.
	KindUpstream
	// KindInternal is a programming defect. The triggering operation is
	// aborted and the prior consistent state retained.
	KindInternal
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindRejection:
		return "rejection"
	case KindUpstream:
		return "upstream"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error represents a structured application error.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Kind    Kind   `json:"-"`
	Err     error  `json:"-"` // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithError returns a copy wrapping another error.
func (e *Error) WithError(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Kind: e.Kind, Err: err}
}

// New creates a new Error.
func New(code, message string, kind Kind) *Error {
	return &Error{Code: code, Message: message, Kind: kind}
}

// Error codes
const (
	// Policy rejection codes
	CodeInsufficientPermission = "INSUFFICIENT_PERMISSION"
	CodeRequestsPaused         = "REQUESTS_PAUSED"
	CodeNotFound               = "NOT_FOUND"
	CodeBlacklisted            = "BLACKLISTED"
	CodeTooLong                = "TOO_LONG"
	CodeOnCooldown             = "ON_COOLDOWN"
	CodeDuplicate              = "DUPLICATE"
	CodeUserLimitReached       = "USER_LIMIT_REACHED"
	CodeQueueFull              = "QUEUE_FULL"

	// Upstream failure codes
	CodeUpstream     = "UPSTREAM_ERROR"
	CodeDeviceAbsent = "DEVICE_ABSENT"
	CodeTimeout      = "TIMEOUT"

	// Internal codes
	CodeInternal  = "INTERNAL_ERROR"
	CodeInvariant = "INVARIANT_VIOLATION"
)

// Predefined policy rejections
var (
	ErrInsufficientPermission = New(CodeInsufficientPermission, "You don't have permission to use this command", KindRejection)
	ErrRequestsPaused         = New(CodeRequestsPaused, "Song requests are currently paused", KindRejection)
	ErrNotFound               = New(CodeNotFound, "No matching track was found", KindRejection)
	ErrBlacklisted            = New(CodeBlacklisted, "That track is not allowed on this channel", KindRejection)
	ErrTooLong                = New(CodeTooLong, "That track exceeds the maximum allowed length", KindRejection)
	ErrOnCooldown             = New(CodeOnCooldown, "On cooldown, try again later", KindRejection)
	ErrDuplicate              = New(CodeDuplicate, "That track is already in the queue", KindRejection)
	ErrUserLimitReached       = New(CodeUserLimitReached, "You already have the maximum number of requests queued", KindRejection)
	ErrQueueFull              = New(CodeQueueFull, "The queue is full", KindRejection)
)

// Predefined upstream failures
var (
	ErrUpstream     = New(CodeUpstream, "Service temporarily unavailable", KindUpstream)
	ErrDeviceAbsent = New(CodeDeviceAbsent, "No active playback device", KindUpstream)
	ErrTimeout      = New(CodeTimeout, "Request to upstream service timed out", KindUpstream)
)

// Predefined internal errors
var (
	ErrInternal  = New(CodeInternal, "Internal error", KindInternal)
	ErrInvariant = New(CodeInvariant, "Internal state invariant violated", KindInternal)
)

// IsError checks if an error is a specific application error by code.
func IsError(err error, target *Error) bool {
	if err == nil {
		return false
	}
	appErr, ok := err.(*Error)
	if !ok {
		return false
	}
	return appErr.Code == target.Code
}

// IsRejection reports whether err is an expected policy rejection.
func IsRejection(err error) bool {
	appErr, ok := err.(*Error)
	return ok && appErr.Kind == KindRejection
}

// IsUpstream reports whether err is an upstream collaborator failure.
func IsUpstream(err error) bool {
	appErr, ok := err.(*Error)
	return ok && appErr.Kind == KindUpstream
}

// GetCode returns the error code for an error.
// If the error is not an *Error, returns INTERNAL_ERROR.
func GetCode(err error) string {
	if err == nil {
		return ""
	}
	appErr, ok := err.(*Error)
	if !ok {
		return CodeInternal
	}
	return appErr.Code
}
