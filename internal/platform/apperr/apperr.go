package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeNotFound        Code = "NOT_FOUND"
	CodeBusinessRule    Code = "BUSINESS_RULE"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeInternal        Code = "INTERNAL"
)

// Error is the domain error shared by every service package.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func NotFound(msg string) *Error     { return &Error{Code: CodeNotFound, Message: msg} }
func BusinessRule(msg string) *Error { return &Error{Code: CodeBusinessRule, Message: msg} }
func Invalid(msg string) *Error      { return &Error{Code: CodeInvalidArgument, Message: msg} }
func Internal(msg string) *Error     { return &Error{Code: CodeInternal, Message: msg} }

// HTTPStatus maps a domain error to its transport status.
// Anything that is not an *Error is an unclassified internal failure.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		switch e.Code {
		case CodeNotFound:
			return http.StatusNotFound
		case CodeBusinessRule, CodeInvalidArgument:
			return http.StatusBadRequest
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// IsCode reports whether err carries the given domain code.
func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
