// Package httpx adapts console handlers to net/http. Handlers return a Response
// or an error; WrapHttpRsp turns both into the console's JSON envelope, or into
// a file attachment for exports and downloads.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/tansive/vaultconsole/internal/common/apperrors"
)

// MaxRequestBody bounds JSON request bodies.
const MaxRequestBody = 1 << 20

// GetRequestData decodes a JSON request body into data.
func GetRequestData(r *http.Request, data any) error {
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil {
		log.Ctx(r.Context()).Error().Msg("empty request body")
		return ErrUnableToParseReqData()
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBody+1))
	if err != nil {
		return ErrUnableToReadRequest()
	}
	if len(body) > MaxRequestBody {
		return ErrRequestTooLarge(MaxRequestBody)
	}
	if err := json.Unmarshal(body, data); err != nil {
		return ErrUnableToParseReqData()
	}
	return nil
}

// Notice is the toast shown next to a form or file action.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

const (
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Response is what a RequestHandler returns on success. A non-empty Attachment
// sends Body as a download instead of the JSON envelope.
type Response struct {
	StatusCode  int
	Message     string
	Notice      *Notice
	Response    any
	ContentType string
	Attachment  string
	Body        []byte
}

// RequestHandler is the console handler signature.
type RequestHandler func(r *http.Request) (*Response, error)

// envelope mirrors the backend's {status, message, data} shape so the console
// speaks one response dialect.
type envelope struct {
	Status  int     `json:"status"`
	Message string  `json:"message,omitempty"`
	Notice  *Notice `json:"notice,omitempty"`
	Data    any     `json:"data"`
}

// WrapHttpRsp converts a RequestHandler into an http.HandlerFunc.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			SendErr(w, err)
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		if rsp.StatusCode == 0 {
			rsp.StatusCode = http.StatusOK
		}
		if rsp.Attachment != "" {
			ct := rsp.ContentType
			if ct == "" {
				ct = "application/octet-stream"
			}
			w.Header().Set("Content-Type", ct)
			w.Header().Set("Content-Disposition", `attachment; filename="`+rsp.Attachment+`"`)
			w.Header().Set("Content-Length", strconv.Itoa(len(rsp.Body)))
			w.WriteHeader(rsp.StatusCode)
			if _, err := w.Write(rsp.Body); err != nil {
				log.Ctx(r.Context()).Error().Err(err).Msg("unable to write attachment")
			}
			return
		}
		SendJsonRsp(r, w, rsp.StatusCode, &envelope{
			Status:  rsp.StatusCode,
			Message: rsp.Message,
			Notice:  rsp.Notice,
			Data:    rsp.Response,
		})
	}
}

// SendErr writes err in the error dialect, honouring *Error and apperrors.Error
// status codes.
func SendErr(w http.ResponseWriter, err error) {
	AsError(err).Send(w)
}

// AsError converts any error to an *Error.
func AsError(err error) *Error {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		return httpErr
	}
	var appErr apperrors.Error
	if errors.As(err, &appErr) {
		return fromAppError(appErr)
	}
	return ErrApplicationError(err.Error())
}

// WrapNoticeRsp is WrapHttpRsp for actions the user sees a notice for. Errors
// carry an error notice and a successful response without a notice gets a
// success notice built from its message.
func WrapNoticeRsp(handler RequestHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			e := *AsError(err)
			e.Notice = &Notice{Level: NoticeError, Message: e.Description}
			log.Ctx(r.Context()).Info().Int("status", e.StatusCode).Str("notice", e.Description).Msg("action failed")
			e.Send(w)
			return
		}
		if rsp != nil && rsp.Notice == nil && rsp.Message != "" {
			rsp.Notice = &Notice{Level: NoticeSuccess, Message: rsp.Message}
		}
		WrapHttpRsp(func(*http.Request) (*Response, error) { return rsp, nil })(w, r)
	}
}
