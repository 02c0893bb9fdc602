// Package apperr defines the error taxonomy shared by the workflow services
// and the HTTP layer. Every error a service returns to a handler is either an
// *Error or is treated as Internal.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into one of the response families.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Machine-readable codes carried next to the human message.
const (
	CodeInvalidInput           = "INVALID_INPUT"
	CodeInvalidStatus          = "INVALID_STATUS"
	CodeInvalidActor           = "INVALID_ACTOR"
	CodeUnauthenticated        = "UNAUTHENTICATED"
	CodeForbidden              = "FORBIDDEN"
	CodeForbiddenNotAdmin      = "FORBIDDEN_NOT_ADMIN"
	CodePolicyDisabled         = "POLICY_DISABLED"
	CodeNotFound               = "NOT_FOUND"
	CodePatientNotFound        = "PATIENT_NOT_FOUND"
	CodeAlreadyDecided         = "ALREADY_DECIDED"
	CodeAlreadyLinked          = "ALREADY_LINKED"
	CodeAlreadyLinkedElsewhere = "ALREADY_LINKED_ELSEWHERE"
	CodeAmbiguousEmailMatch    = "AMBIGUOUS_EMAIL_MATCH"
	CodeConcurrentLinkLostRace = "CONCURRENT_LINK_LOST_RACE"
	CodePendingRequestExists   = "PENDING_REQUEST_EXISTS"
	CodeInternal               = "INTERNAL"
)

// Error is the application error type.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two *Error values by Kind and Code so callers can compare
// against the sentinel-like constructors below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// HTTPStatus maps the kind to its response status code.
func (e *Error) HTTPStatus() int {
	return StatusFor(e.Kind)
}

// StatusFor returns the HTTP status associated with a kind.
func StatusFor(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func newErr(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Validation(code, msg string) *Error { return newErr(KindValidation, code, msg) }
func Unauthenticated(msg string) *Error { return newErr(KindAuthentication, CodeUnauthenticated, msg) }
func Forbidden(code, msg string) *Error { return newErr(KindAuthorization, code, msg) }
func NotFound(code, msg string) *Error { return newErr(KindNotFound, code, msg) }
func Conflict(code, msg string) *Error { return newErr(KindConflict, code, msg) }

// Internal wraps an unexpected failure. The message is safe to show; the
// wrapped error is only logged.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: msg, Err: err}
}

// Wrap keeps an existing *Error untouched and classifies anything else as
// Internal with the given message.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return Internal(msg, err)
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal when it is not an *Error.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}

// CodeOf returns the code of err, CodeInternal when it is not an *Error.
func CodeOf(err error) string {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return CodeInternal
}
