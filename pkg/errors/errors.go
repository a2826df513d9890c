// Package errors is the storefront's error taxonomy. Every error that reaches
// a handler is mapped onto one Code, which fixes the HTTP status and whether
// the caller may see the message and details.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation  Code = "VALIDATION_ERROR"
	CodeNotFound    Code = "NOT_FOUND"
	CodeIdempotency Code = "IDEMPOTENCY_KEY_REUSED"
	CodeStorage     Code = "STORAGE_ERROR"
	CodeInternal    Code = "INTERNAL_ERROR"
	CodeDependency  Code = "DEPENDENCY_ERROR"
)

// Metadata is the HTTP face of a Code. Nothing in the storefront retries, so
// there is no retry hint.
type Metadata struct {
	HTTPStatus     int
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:  {http.StatusBadRequest, "validation failed", true},
	CodeNotFound:    {http.StatusNotFound, "resource not found", false},
	CodeIdempotency: {http.StatusConflict, "idempotency key reused", true},
	// storage failures carry the driver message in details
	CodeStorage:    {http.StatusInternalServerError, "storage failure", true},
	CodeInternal:   {http.StatusInternalServerError, "internal server error", false},
	CodeDependency: {http.StatusServiceUnavailable, "dependency unavailable", true},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// Storage wraps an unexpected persistence failure and exposes the cause message.
func Storage(err error, message string) *Error {
	wrapped := Wrap(CodeStorage, err, message)
	if err != nil {
		wrapped.details = map[string]any{"cause": err.Error()}
	}
	return wrapped
}

// Required is the validation error for a missing mandatory field.
func Required(field string) *Error {
	return Invalid(field, "is required")
}

// Invalid reports a bad field value as "<field> <problem>".
func Invalid(field, problem string) *Error {
	return New(CodeValidation, fmt.Sprintf("%s %s", field, problem)).
		WithDetails(map[string]string{field: problem})
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the provided code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
