package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Type categorizes application errors so transport layers can map them to
// status codes without inspecting messages.
type Type string

const (
	// TypeValidation: the input is malformed or unsupported; the caller must correct it.
	TypeValidation Type = "validation"
	// TypeNotFound: the referenced document, file, or page does not exist.
	TypeNotFound Type = "not_found"
	// TypeFormat: the uploaded archive is not a valid ZIP container.
	TypeFormat Type = "format"
	// TypeStorage: an I/O failure while reading or writing stored bytes.
	TypeStorage Type = "storage"
	// TypeInternal: anything else.
	TypeInternal Type = "internal"
)

// Error is a typed application error optionally wrapping a cause.
type Error struct {
	Type    Type
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// StatusCode maps the error type to its HTTP equivalent.
func (e *Error) StatusCode() int {
	switch e.Type {
	case TypeValidation, TypeFormat:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func Validation(message string) *Error {
	return &Error{Type: TypeValidation, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Type: TypeNotFound, Message: message}
}

func Format(message string, cause error) *Error {
	return &Error{Type: TypeFormat, Message: message, Cause: cause}
}

func Storage(message string, cause error) *Error {
	return &Error{Type: TypeStorage, Message: message, Cause: cause}
}

func Internal(message string, cause error) *Error {
	return &Error{Type: TypeInternal, Message: message, Cause: cause}
}

// As extracts an *Error from err's chain, or nil.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// IsType reports whether err is an application error of the given type.
func IsType(err error, t Type) bool {
	if e := As(err); e != nil {
		return e.Type == t
	}
	return false
}
