package wings

import "fmt"

// ErrorKind classifies an agent failure. Callers branch on the kind to
// pick the user-facing error code, so the mapping from upstream status
// codes is fixed and must not change.
type ErrorKind string

const (
	ErrKindInvalidConfig ErrorKind = "INVALID_SERVER_CONFIG" // agent returned 400
	ErrKindUnauthorized  ErrorKind = "WINGS_UNAUTHORIZED"    // agent returned 401
	ErrKindForbidden     ErrorKind = "WINGS_FORBIDDEN"       // agent returned 403
	ErrKindInvalidData   ErrorKind = "INVALID_SERVER_DATA"   // agent returned 422
	ErrKindAgent         ErrorKind = "WINGS_ERROR"           // any other non-2xx, or transport failure
)

// Error is the failure arm of an agent call. Transport errors are folded
// into it with StatusCode 500 so raw network errors never reach callers.
type Error struct {
	StatusCode int
	Kind       ErrorKind
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("wings: %s (%d): %s", e.Kind, e.StatusCode, e.Message)
}

// classify maps an upstream HTTP status to the fixed error taxonomy.
func classify(statusCode int, message string) *Error {
	kind := ErrKindAgent
	switch statusCode {
	case 400:
		kind = ErrKindInvalidConfig
	case 401:
		kind = ErrKindUnauthorized
	case 403:
		kind = ErrKindForbidden
	case 422:
		kind = ErrKindInvalidData
	}
	if message == "" {
		message = "Unknown error"
	}
	return &Error{StatusCode: statusCode, Kind: kind, Message: message}
}

// transportError wraps a network or timeout failure as a generic agent
// error with status 500.
func transportError(err error) *Error {
	return &Error{StatusCode: 500, Kind: ErrKindAgent, Message: err.Error()}
}
