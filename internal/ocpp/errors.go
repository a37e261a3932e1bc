// Package ocpp holds the wire-level types shared by every protocol binding:
// the OCPP-J frame shapes, the typed error taxonomy, and the version-agnostic
// dispatch interfaces that internal/ocpp16 and internal/ocpp201 implement.
package ocpp

import "fmt"

// ErrorCode is one of the CALLERROR codes defined by OCPP-J.
type ErrorCode string

const (
	ErrGenericError                  ErrorCode = "GenericError"
	ErrInternalError                 ErrorCode = "InternalError"
	ErrNotImplemented                ErrorCode = "NotImplemented"
	ErrNotSupported                  ErrorCode = "NotSupported"
	ErrProtocolError                 ErrorCode = "ProtocolError"
	ErrSecurityError                 ErrorCode = "SecurityError"
	ErrFormationViolation            ErrorCode = "FormationViolation"
	ErrPropertyConstraintViolation   ErrorCode = "PropertyConstraintViolation"
	ErrOccurrenceConstraintViolation ErrorCode = "OccurrenceConstraintViolation"
	ErrTypeConstraintViolation       ErrorCode = "TypeConstraintViolation"
)

// Error is the typed CALLERROR payload. It always surfaces to the
// counterparty as a CALLERROR frame, or rejects a pending request when
// received as one.
type Error struct {
	Code        ErrorCode `json:"errorCode"`
	Description string    `json:"errorDescription"`
	Details     any       `json:"errorDetails,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// New builds an *Error with the given code and description.
func New(code ErrorCode, description string) *Error {
	return &Error{Code: code, Description: description}
}

// WithDetails returns a copy of the error carrying additional detail.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Description: e.Description, Details: details}
}

// NotImplemented is returned for any inbound CALL whose action has no
// registered handler in the dispatch table.
func NotImplemented(action string) *Error {
	return New(ErrNotImplemented, fmt.Sprintf("no handler registered for action %q", action))
}

// ErrTimeout is a local, non-wire error: a pending request's deadline fired
// before a correlated CALLRESULT/CALLERROR arrived.
var ErrTimeout = fmt.Errorf("ocpp: request timed out")
