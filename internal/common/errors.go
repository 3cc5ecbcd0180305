package common

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeValidation             Code = "validation_failed"
	CodeOutOfScope             Code = "out_of_scope"
	CodeInvalidTransition      Code = "invalid_transition"
	CodeRequisitionClosed      Code = "requisition_closed"
	CodeConcurrentModification Code = "concurrent_modification"
	CodeTemplateInconsistency  Code = "template_inconsistency"
	CodeNotFound               Code = "not_found"
	CodeForbidden              Code = "forbidden"
	CodeUnauthorized           Code = "unauthorized"
	CodeBadRequest             Code = "bad_request"
	CodeRateLimited            Code = "rate_limited"
	CodeInternal               Code = "internal"
)

// Violation is a single field-level problem. Validation always reports the
// complete list so callers can render every issue at once.
type Violation struct {
	SectionID string `json:"section_id"`
	Field     string `json:"field"`
	Reason    string `json:"reason"`
}

// Reasons carried by Violation.
const (
	ReasonMissingRequired   = "missing_required"
	ReasonInvalidOption     = "invalid_option"
	ReasonInvalidNumber     = "invalid_number"
	ReasonInvalidType       = "invalid_type"
	ReasonInvalidValue      = "invalid_value"
	ReasonDuplicateField    = "duplicate_field"
	ReasonDuplicatePosition = "duplicate_position"
	ReasonDuplicateSection  = "duplicate_section"
	ReasonMissingOptions    = "missing_options"
)

type Error struct {
	Code       Code
	Message    string
	Err        error
	Violations []Violation
	// Current and Target are set for invalid transitions.
	Current string
	Target  string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func NewValidationError(message string, violations []Violation) *Error {
	return &Error{Code: CodeValidation, Message: message, Violations: violations}
}

func NewInvalidTransition(current, target string) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", current, target),
		Current: current,
		Target:  target,
	}
}

func NewRequisitionClosed(status string) *Error {
	return &Error{
		Code:    CodeRequisitionClosed,
		Message: fmt.Sprintf("requisition is %s and can no longer be modified", status),
		Current: status,
	}
}

func NewConcurrentModification(message string) *Error {
	return &Error{Code: CodeConcurrentModification, Message: message}
}

// As extracts the *Error from an error chain.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
