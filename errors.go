package waycore

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a waycore.Error by origin, matching the taxonomy
// this module's error-handling design enumerates: protocol errors
// (client misuse), resource errors (allocation/fd exhaustion), backend
// errors (commit/render failure), and fatal errors (loss of all outputs).
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeProtocol
	ErrCodeResource
	ErrCodeBackend
	ErrCodeFatal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeProtocol:
		return "protocol"
	case ErrCodeResource:
		return "resource"
	case ErrCodeBackend:
		return "backend"
	case ErrCodeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is the structured error type returned by SetScale, Frame,
// ImportBuffer and Output.Render; ErrRoleConflict and ErrSurfaceDestroyed
// below are plain sentinel errors instead. It carries enough context (operation, object id, code)
// for a caller to decide whether to disconnect a client, retry, or shut
// down, without parsing an error string.
type Error struct {
	Op     string
	Object uint32
	Code   ErrorCode
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("waycore: %s (object=%d, code=%s): %v", e.Op, e.Object, e.Code, e.Err)
	}
	return fmt.Sprintf("waycore: %s (object=%d, code=%s)", e.Op, e.Object, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError constructs an Error with no wrapped cause.
func NewError(op string, object uint32, code ErrorCode) *Error {
	return &Error{Op: op, Object: object, Code: code}
}

// WrapError constructs an Error wrapping an existing cause.
func WrapError(op string, object uint32, code ErrorCode, err error) *Error {
	return &Error{Op: op, Object: object, Code: code, Err: err}
}

// IsCode reports whether err is a *Error (directly or via errors.As) with
// the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// ErrRoleConflict is returned by Surface.SetRole when the surface already
// has a different, non-None role assigned.
var ErrRoleConflict = errors.New("waycore: role conflict")

// ErrSurfaceDestroyed is returned by operations attempted on a surface
// that has already been destroyed by the compositor.
var ErrSurfaceDestroyed = errors.New("waycore: surface destroyed")
