// Package apperrors provides the error type shared by the console packages. Errors
// form a chain rooted at a per-package base error, carry the HTTP status used when
// they cross the console's HTTP boundary, and can hold a list of field-level
// validation failures.
package apperrors

// Error is the application error interface. Every derivation method returns a new
// value so package-level catalog errors are never mutated.
type Error interface {
	error
	Unwrap() error

	New(msg string) Error                  // derive a child error with its own message
	Msg(msg string) Error                  // replace the message, keep the chain
	MsgErr(msg string, err ...error) Error // replace the message and attach causes
	Err(err ...error) Error                // attach causes, keep the message
	SetExpandError(bool) Error             // include causes in ErrorAll
	SetStatusCode(int) Error               // HTTP status used by httpx
	StatusCode() int
	ErrorAll() string  // message followed by attached causes when expansion is on
	UnwrapAll() []error // attached causes in order
	Fields() ValidationErrors
}
