package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in the JSON error envelope.
const (
	CodeValidation   = "VALIDATION_FAILED"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Rule maps a sentinel error onto an envelope code and status.
type Rule struct {
	Target error
	Code   string
	Status int
}

// Mapper converts arbitrary errors into DomainErrors using its rules in order.
type Mapper struct {
	rules []Rule
}

// NewMapper builds a Mapper.
func NewMapper(rules ...Rule) *Mapper {
	return &Mapper{rules: rules}
}

// ToDomainError returns err as a DomainError. DomainErrors pass through,
// sentinels matched by a rule keep the wrapped message, anything else is internal.
func (m *Mapper) ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if m != nil {
		for _, rule := range m.rules {
			if errors.Is(err, rule.Target) {
				return &DomainError{Code: rule.Code, Message: err.Error(), HTTPStatus: rule.Status, Err: err}
			}
		}
	}
	return NewInternalError(err).(*DomainError)
}

// ToDomainError converts err without sentinel rules.
func ToDomainError(err error) *DomainError {
	var m *Mapper
	return m.ToDomainError(err)
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
