package errs

import (
	"errors"
	"fmt"
)

// Kind tags an Error with the domain condition it reports.
type Kind int

const (
	// ConfigInvalid effective configuration unusable
	ConfigInvalid Kind = iota
	// ConnectionFailed directory server unreachable or timed out
	ConnectionFailed
	// InvalidCredentials simple bind rejected
	InvalidCredentials
	// UserNotFound no entry matched the login
	UserNotFound
	// KeyInvalid candidate key failed structural validation
	KeyInvalid
	// KeyAlreadyExists same key material already on the entry
	KeyAlreadyExists
	// KeyNotFound key value absent at removal time
	KeyNotFound
	// SchemaAttributeUndefined public-key attribute missing from server schema
	SchemaAttributeUndefined
)

// Exit-code classes reported at the process boundary.
const (
	ExitData = 1 // configuration or data error
	ExitAuth = 2 // authentication or lookup error
	ExitConn = 3 // connectivity error
)

func (k Kind) String() string {
	switch k {
	case ConfigInvalid:
		return "configuration-invalid"
	case ConnectionFailed:
		return "connection-failed"
	case InvalidCredentials:
		return "invalid-credentials"
	case UserNotFound:
		return "user-not-found"
	case KeyInvalid:
		return "key-invalid"
	case KeyAlreadyExists:
		return "key-already-exists"
	case KeyNotFound:
		return "key-not-found"
	case SchemaAttributeUndefined:
		return "schema-attribute-undefined"
	default:
		return "unknown"
	}
}

// Error is a tagged domain error. Kind selects the variant, Message is the
// human-readable description, cause optionally preserves the underlying
// failure for the error chain.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Cause implements the pkg/errors causer interface.
func (e *Error) Cause() error {
	return e.cause
}

// ExitCode maps the variant to its exit-code class.
func (e *Error) ExitCode() int {
	switch e.Kind {
	case InvalidCredentials, UserNotFound:
		return ExitAuth
	case ConnectionFailed:
		return ExitConn
	default:
		return ExitData
	}
}

// New returns a domain error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns a domain error of the given kind wrapping cause.
func Wrap(cause error, kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// GetKind extracts the kind from err when err is, or wraps, a domain error.
func GetKind(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is, or wraps, a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := GetKind(err)
	return ok && k == kind
}

// ExitCode returns the exit-code class for err. Errors that carry no domain
// variant report as data errors.
func ExitCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.ExitCode()
	}
	return ExitData
}
