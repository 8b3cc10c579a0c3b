package core

import (
	"errors"
	"fmt"
)

// Error is the canonical error envelope used across the engine. Code is a
// stable machine-readable identifier; Details carries structured context for
// logs and API responses.
type Error struct {
	Err     error          `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a stable code and structured details.
func NewError(err error, code string, details map[string]any) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Err:     err,
		Code:    code,
		Message: msg,
		Details: details,
	}
}

// CodeOf extracts the engine error code from err, or "" when err is not an
// engine error.
func CodeOf(err error) string {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Code
	}
	return ""
}
