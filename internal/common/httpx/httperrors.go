package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tansive/vaultconsole/internal/common/apperrors"
)

// Error is an HTTP error with a status code.
type Error struct {
	Description string                     `json:"description"`
	StatusCode  int                        `json:"http_status_code"`
	Fields      apperrors.ValidationErrors `json:"fields,omitempty"`
	Notice      *Notice                    `json:"notice,omitempty"`
}

type errorRsp struct {
	Status int                        `json:"status"`
	Error  string                     `json:"error"`
	Fields apperrors.ValidationErrors `json:"fields,omitempty"`
	Notice *Notice                    `json:"notice,omitempty"`
}

// Failure is the status value carried by every error body.
const Failure int = 0

// Send writes the error as a JSON envelope with its status code.
func (e *Error) Send(w http.ResponseWriter) {
	if w == nil {
		return
	}
	rspJson, err := json.Marshal(&errorRsp{
		Status: Failure,
		Error:  e.Description,
		Fields: e.Fields,
		Notice: e.Notice,
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Unable to parse error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	w.Write(rspJson)
}

// Error returns the description.
func (e *Error) Error() string {
	return e.Description
}

// SendError sends an application error, defaulting to 500 when it has no status.
func SendError(w http.ResponseWriter, err apperrors.Error) {
	if err == nil {
		return
	}
	fromAppError(err).Send(w)
}

func fromAppError(err apperrors.Error) *Error {
	statusCode := err.StatusCode()
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	return &Error{
		StatusCode:  statusCode,
		Description: err.ErrorAll(),
		Fields:      err.Fields(),
	}
}

// ErrReqMethodNotSupported is returned for unsupported HTTP methods.
func ErrReqMethodNotSupported() *Error {
	return &Error{
		Description: "request method not supported",
		StatusCode:  http.StatusMethodNotAllowed,
	}
}

// ErrUnableToParseReqData is returned when the request body is not valid JSON.
func ErrUnableToParseReqData() *Error {
	return &Error{
		Description: "unable to parse request data",
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrUnableToReadRequest is returned when the request body cannot be read.
func ErrUnableToReadRequest() *Error {
	return &Error{
		Description: "unable to read request data",
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrApplicationError is a 500 with an optional message.
func ErrApplicationError(err ...string) *Error {
	s := "unable to process request"
	if len(err) > 0 {
		s = err[0]
	}
	return &Error{
		Description: s,
		StatusCode:  http.StatusInternalServerError,
	}
}

// ErrInvalidRequest is a 400 with an optional message.
func ErrInvalidRequest(str ...string) *Error {
	s := "invalid request data or empty request values"
	if len(str) > 0 {
		s = str[0]
	}
	return &Error{
		Description: s,
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrNotFound is a 404 with an optional message.
func ErrNotFound(str ...string) *Error {
	s := "not found"
	if len(str) > 0 {
		s = str[0]
	}
	return &Error{
		Description: s,
		StatusCode:  http.StatusNotFound,
	}
}

// ErrRequestTimeout is returned when a handler exceeds its deadline.
func ErrRequestTimeout() *Error {
	return &Error{
		Description: "request timed out",
		StatusCode:  http.StatusRequestTimeout,
	}
}

// ErrRequestTooLarge is returned when the body exceeds limit bytes.
func ErrRequestTooLarge(limit int64) *Error {
	return &Error{
		Description: fmt.Sprintf("request body too large (limit: %d bytes)", limit),
		StatusCode:  http.StatusRequestEntityTooLarge,
	}
}
