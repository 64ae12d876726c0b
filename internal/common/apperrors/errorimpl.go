package apperrors

import (
	"errors"
	"strings"
)

// appError is the concrete Error. Every setter returns a copy so package-level
// errors are never mutated.
type appError struct {
	msg         string
	base        error
	causes      []error
	statuscode  int
	expandError bool
}

// Error returns the message of this link in the chain.
func (e *appError) Error() string {
	return e.msg
}

// ErrorAll appends the attached causes when expansion is on; otherwise it
// matches Error.
func (e *appError) ErrorAll() string {
	if !e.expandError {
		return e.msg
	}
	var b strings.Builder
	b.WriteString(e.msg)
	for _, err := range e.causes {
		if err == nil {
			continue
		}
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap returns the parent error so errors.Is matches catalog errors.
func (e *appError) Unwrap() error {
	return e.base
}

// UnwrapAll returns the attached causes in the order they were added.
func (e *appError) UnwrapAll() []error {
	return e.causes
}

// New derives a child error with a fresh message and no causes. The status
// code is inherited.
func (e *appError) New(msg string) Error {
	return &appError{
		msg:         msg,
		base:        e,
		statuscode:  e.statuscode,
		expandError: e.expandError,
	}
}

// Msg derives a child error with a new message, keeping causes and status code.
func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:         msg,
		base:        e,
		causes:      e.causes,
		statuscode:  e.statuscode,
		expandError: e.expandError,
	}
}

// MsgErr derives a child error with a new message and extra causes.
func (e *appError) MsgErr(msg string, errs ...error) Error {
	return &appError{
		msg:         msg,
		base:        e,
		causes:      append(append([]error{}, e.causes...), errs...),
		statuscode:  e.statuscode,
		expandError: e.expandError,
	}
}

// Err attaches causes while keeping the current message.
func (e *appError) Err(errs ...error) Error {
	return e.MsgErr(e.msg, errs...)
}

// SetExpandError returns a copy that includes causes in ErrorAll when flag is set.
func (e *appError) SetExpandError(flag bool) Error {
	cp := *e
	cp.expandError = flag
	return &cp
}

// SetStatusCode returns a copy carrying the HTTP status code.
func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statuscode = code
	return &cp
}

// StatusCode returns the HTTP status code, zero when unset.
func (e *appError) StatusCode() int {
	return e.statuscode
}

// Fields collects the validation errors attached anywhere in the cause list.
func (e *appError) Fields() ValidationErrors {
	var out ValidationErrors
	for _, err := range e.causes {
		var ves ValidationErrors
		if errors.As(err, &ves) {
			out = append(out, ves...)
			continue
		}
		var ve ValidationError
		if errors.As(err, &ve) {
			out = append(out, ve)
		}
	}
	return out
}

// Is matches the base chain and every attached cause.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.causes {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// New creates a root error.
func New(msg string) Error {
	return &appError{msg: msg}
}
