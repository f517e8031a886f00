// Package apperr holds the error taxonomy shared by the catalog server and its clients.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication error")
	ErrAuthorization  = errors.New("authorization error")
	ErrUpload         = errors.New("upload error")
	ErrNotFound       = errors.New("not found")
	ErrUnavailable    = errors.New("backend unavailable")
)

// Wire codes.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeAuthentication = "AUTHENTICATION_FAILED"
	CodeAuthorization  = "UNAUTHORIZED"
	CodeUpload         = "UPLOAD_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeUnavailable    = "SERVICE_UNAVAILABLE"
	CodeInternal       = "INTERNAL_ERROR"
)

var kinds = []struct {
	kind error
	code string
}{
	{ErrValidation, CodeValidation},
	{ErrAuthentication, CodeAuthentication},
	{ErrAuthorization, CodeAuthorization},
	{ErrUpload, CodeUpload},
	{ErrNotFound, CodeNotFound},
	{ErrUnavailable, CodeUnavailable},
}

// Error is a classified failure carrying a short message safe to show the caller.
// Cause, when present, is for logs only.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newError(kind error, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Validation reports a missing or malformed field. No mutation has happened.
func Validation(format string, args ...any) error {
	return newError(ErrValidation, nil, format, args...)
}

// Authentication is the single generic login failure; it never says which field was wrong.
func Authentication() error {
	return newError(ErrAuthentication, nil, "invalid credentials")
}

// Authorization reports a missing or invalid capability on a mutating call.
func Authorization() error {
	return newError(ErrAuthorization, nil, "unauthorized")
}

// Upload reports a decode or storage failure in the asset pipeline.
func Upload(cause error, format string, args ...any) error {
	return newError(ErrUpload, cause, format, args...)
}

// NotFound reports a delete of an unknown id.
func NotFound(format string, args ...any) error {
	return newError(ErrNotFound, nil, format, args...)
}

// Unavailable reports a transport failure talking to the remote catalog.
func Unavailable(cause error) error {
	return newError(ErrUnavailable, cause, "catalog backend unavailable")
}

// Code returns the wire code for err, or CodeInternal when it is unclassified.
func Code(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.code
		}
	}
	return CodeInternal
}

// FromCode rebuilds a classified error from a wire code and message.
// Unknown codes come back as plain errors carrying the message.
func FromCode(code, message string) error {
	for _, k := range kinds {
		if k.code == code {
			return &Error{Kind: k.kind, Message: message}
		}
	}
	if message == "" {
		message = code
	}
	return errors.New(message)
}
