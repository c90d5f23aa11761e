// Package errs contains the error taxonomy shared by services and handlers.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for status mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindInput
	KindAuth
	KindAccessDenied
	KindNotFound
	KindUpstream
)

// Stable machine-readable codes carried in the error envelope.
const (
	CodeInvalidInput       = "invalid_input"
	CodeMissingFields      = "missing_fields"
	CodeUnauthorized       = "unauthorized"
	CodeAccessDenied       = "access_denied"
	CodeInvalidToken       = "invalid_token"
	CodeShareInactive      = "share_inactive"
	CodeShareExpired       = "share_expired"
	CodeShareNotFound      = "share_not_found"
	CodeUploadsDisabled    = "uploads_disabled"
	CodeFileTooLarge       = "file_too_large"
	CodeUploadLimitReached = "upload_limit_reached"
	CodeNotFound           = "not_found"
	CodeUpstream           = "upstream_error"
	CodeInternal           = "internal_error"
)

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrInput        = &Error{Kind: KindInput}
	ErrAuth         = &Error{Kind: KindAuth}
	ErrAccessDenied = &Error{Kind: KindAccessDenied}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrUpstream     = &Error{Kind: KindUpstream}
)

// Error is a classified error with a user-facing message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind and, when the target carries one, by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

func newError(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Input reports missing or malformed input.
func Input(code, format string, args ...any) *Error {
	return newError(KindInput, code, format, args...)
}

// Auth reports a missing or unparseable credential.
func Auth(format string, args ...any) *Error {
	return newError(KindAuth, CodeUnauthorized, format, args...)
}

// Denied reports an authorization, ownership or quota failure.
func Denied(code, format string, args ...any) *Error {
	return newError(KindAccessDenied, code, format, args...)
}

// NotFound reports a missing share, gallery or object.
func NotFound(code, format string, args ...any) *Error {
	return newError(KindNotFound, code, format, args...)
}

// Upstream wraps a failed datastore or object-store call. The original
// message stays attached for diagnostics.
func Upstream(op string, err error) *Error {
	return &Error{Kind: KindUpstream, Code: CodeUpstream, Message: op + " failed", Err: err}
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal error", Err: err}
}

// As returns the classified error in err's chain, or an InternalError
// wrapping err when none is present.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// KindOf returns the kind of err.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	return As(err).Kind
}

// CodeOf returns the envelope code of err.
func CodeOf(err error) string {
	e := As(err)
	if e == nil {
		return ""
	}
	return e.Code
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInput:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindAccessDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
