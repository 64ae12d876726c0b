package vaultapi

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Result is the backend's {status, message, data} envelope.
type Result struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// IsSuccessful is the single success predicate for envelope statuses. The
// backend reports either an HTTP-like 2xx code or a bare 1.
func IsSuccessful(status int) bool {
	return status == 1 || (status >= 200 && status < 300)
}

// parseEnvelope reads the envelope out of body. A body that is not a JSON object
// with a numeric status is treated as an unavailable backend.
func parseEnvelope(body []byte) (*Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrBackendUnavailable.Msg("backend returned a non-JSON response")
	}
	doc := gjson.ParseBytes(body)
	status := doc.Get("status")
	if !doc.IsObject() || status.Type != gjson.Number {
		return nil, ErrBackendUnavailable.Msg("backend response has no status")
	}
	res := &Result{
		Status:  int(status.Int()),
		Message: doc.Get("message").String(),
	}
	if data := doc.Get("data"); data.Exists() {
		res.Data = json.RawMessage(data.Raw)
	}
	return res, nil
}

// check turns a non-success envelope into ErrRejected.
func (r *Result) check(fallback string) error {
	if IsSuccessful(r.Status) {
		return nil
	}
	msg := r.Message
	if msg == "" {
		msg = fallback
	}
	return ErrRejected.Msg(msg)
}
