package domain

import (
	"errors"
	"fmt"
)

// Failure kinds observed during launch. Each is handled and logged where it
// is produced; none of them aborts the launch.
var (
	ErrSettingsRead     = errors.New("feedship: settings read failed")
	ErrSettingsWrite    = errors.New("feedship: settings write failed")
	ErrTokenRefresh     = errors.New("feedship: token refresh failed")
	ErrCredentialClear  = errors.New("feedship: credential clear failed")
	ErrSessionCheck     = errors.New("feedship: session check failed")
	ErrFeedIDResolution = errors.New("feedship: feed id resolution failed")
	ErrUpload           = errors.New("feedship: upload failed")
)

// Collaborator conditions.
var (
	// ErrNoCredential is returned when a refresh is requested without a stored credential.
	ErrNoCredential = errors.New("feedship: no stored credential")

	// ErrNotLoggedIn is returned when a session-bound operation runs without a session.
	ErrNotLoggedIn = errors.New("feedship: not logged in")

	// ErrCacheMiss is returned by caches that hold no usable entry.
	ErrCacheMiss = errors.New("feedship: cache miss")
)

// Instance lifecycle errors.
var (
	ErrAlreadyRunning  = errors.New("feedship: already running")
	ErrNotRunning      = errors.New("feedship: not running")
	ErrShutdownTimeout = errors.New("feedship: shutdown timeout")
	ErrInvalidConfig   = errors.New("feedship: invalid configuration")
)

// OpError records the operation and failure kind of an underlying error.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

// NewOpError tags err with an operation name and failure kind.
// It returns nil when err is nil.
func NewOpError(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Kind: kind, Err: err}
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *OpError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
