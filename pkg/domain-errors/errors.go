// Package domainerrors defines the coded error type shared by all domain
// services. Stores surface sentinel errors; services wrap them here so the
// transport layer can translate codes into HTTP statuses without inspecting
// error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a category of domain failure. Codes are part of the API
// contract: handlers serialize them verbatim in error envelopes.
type Code string

const (
	CodeNotFound         Code = "not_found"
	CodeDuplicateTitle   Code = "duplicate_title"
	CodeIncompleteSet    Code = "incomplete_set"
	CodeCrossSectionMove Code = "cross_section_move"
	CodeEmptySelection   Code = "empty_selection"
	CodeIncompleteReview Code = "incomplete_review"

	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not originate in a domain service.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain code onto an HTTP status. Binding warnings are
// not errors and never pass through here; they travel as confirmation
// payloads instead.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateTitle, CodeConflict:
		return http.StatusConflict
	case CodeIncompleteSet, CodeCrossSectionMove, CodeEmptySelection, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeIncompleteReview, CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
