// Package vaultapi is the typed client for the metadata backend's REST contract.
// Every entity path exposes the same list, test, create, update and column
// discovery endpoints; responses share one {status, message, data} envelope.
package vaultapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tansive/vaultconsole/internal/common/httpclient"
	"github.com/tansive/vaultconsole/internal/metadata"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Client calls the backend through a bearer-token HTTP client.
type Client struct {
	http       httpclient.Doer
	filePrefix string
}

// Option configures a Client.
type Option func(*Client)

// WithFilePrefix changes the path prefix of the file management endpoints.
func WithFilePrefix(prefix string) Option {
	return func(c *Client) { c.filePrefix = prefix }
}

// DefaultFilePrefix is where the backend serves file management.
const DefaultFilePrefix = "api/file-management"

// New returns a backend client sending requests through doer.
func New(doer httpclient.Doer, opts ...Option) *Client {
	c := &Client{http: doer, filePrefix: DefaultFilePrefix}
	for _, o := range opts {
		o(c)
	}
	return c
}

// call sends one request and returns its checked envelope.
func (c *Client) call(ctx context.Context, opts httpclient.RequestOptions, fallback string) (*Result, error) {
	body, err := c.http.DoRequest(ctx, opts)
	if err != nil {
		return nil, translate(err)
	}
	res, err := parseEnvelope(body)
	if err != nil {
		return nil, err
	}
	if err := res.check(fallback); err != nil {
		log.Ctx(ctx).Debug().Str("path", opts.Path).Int("status", res.Status).Msg(res.Message)
		return res, err
	}
	return res, nil
}

func translate(err error) error {
	if errors.Is(err, httpclient.ErrTokenExpired) {
		return ErrUnauthorized.Msg(err.Error())
	}
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden:
			return ErrUnauthorized.Msg(httpErr.Message)
		case httpErr.StatusCode >= 500:
			return ErrBackendUnavailable.Msg(httpErr.Message)
		}
		return ErrRejected.Msg(httpErr.Message)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrBackendUnavailable.MsgErr("backend request did not complete", err)
	}
	return ErrBackendUnavailable.Err(err)
}

// List fetches the full collection of kind k.
func (c *Client) List(ctx context.Context, k metadata.Kind) ([]metadata.Record, error) {
	if !k.Valid() {
		return nil, metadata.ErrUnknownKind.Msg("unknown record kind: " + string(k))
	}
	res, err := c.call(ctx, httpclient.RequestOptions{
		Method: http.MethodGet,
		Path:   k.Path() + "/all",
	}, "unable to load "+k.Label())
	if err != nil {
		return nil, err
	}
	if len(res.Data) == 0 {
		return []metadata.Record{}, nil
	}
	recs, err := metadata.DecodeList(k, res.Data)
	if err != nil {
		return nil, ErrBackendUnavailable.MsgErr("unexpected "+k.Label()+" list shape", err)
	}
	return recs, nil
}

func (c *Client) send(ctx context.Context, rec metadata.Record, op, method, fallback string) (*Result, error) {
	k := rec.Kind()
	if !k.IsComponent() {
		return nil, ErrNotAComponent
	}
	body, err := metadata.Payload(rec)
	if err != nil {
		return nil, err
	}
	return c.call(ctx, httpclient.RequestOptions{
		Method: method,
		Path:   k.Path() + "/" + op,
		Body:   body,
	}, fallback)
}

// Test asks the backend to validate a candidate record without storing it.
func (c *Client) Test(ctx context.Context, rec metadata.Record) (*Result, error) {
	return c.send(ctx, rec, "test", http.MethodPost, "validation failed")
}

// Create stores a candidate record.
func (c *Client) Create(ctx context.Context, rec metadata.Record) (*Result, error) {
	return c.send(ctx, rec, "create", http.MethodPost, "unable to create "+rec.Kind().Label())
}

// Update sends a partial record for id.
func (c *Client) Update(ctx context.Context, k metadata.Kind, id int64, body []byte) (*Result, error) {
	if !k.IsComponent() {
		return nil, ErrNotAComponent
	}
	return c.call(ctx, httpclient.RequestOptions{
		Method: http.MethodPut,
		Path:   fmt.Sprintf("%s/update/%d", k.Path(), id),
		Body:   body,
	}, "unable to update "+k.Label())
}

// UpdateRecord derives rec's computed fields and sends the fields named in
// changed, or the whole payload when changed is empty.
func (c *Client) UpdateRecord(ctx context.Context, rec metadata.Record, changed []string) (*Result, error) {
	if rec.RecordID() == 0 {
		return nil, ErrRejected.Msg("record has no id")
	}
	body, err := PartialBody(rec, changed)
	if err != nil {
		return nil, err
	}
	return c.Update(ctx, rec.Kind(), rec.RecordID(), body)
}

// PartialBody builds an update body holding only the named fields of rec's
// payload. Derived fields follow the fields they are computed from.
func PartialBody(rec metadata.Record, fields []string) ([]byte, error) {
	full, err := metadata.Payload(rec)
	if err != nil {
		return nil, err
	}
	full, err = sjson.DeleteBytes(full, "id")
	if err != nil {
		return nil, ErrBackendError.Err(err)
	}
	if len(fields) == 0 {
		return full, nil
	}
	body := []byte(`{}`)
	doc := gjson.ParseBytes(full)
	for _, f := range withDerived(fields) {
		v := doc.Get(f)
		if !v.Exists() {
			continue
		}
		if body, err = sjson.SetRawBytes(body, f, []byte(v.Raw)); err != nil {
			return nil, ErrBackendError.Err(err)
		}
	}
	return body, nil
}

func withDerived(fields []string) []string {
	out := append([]string{}, fields...)
	for _, f := range fields {
		switch f {
		case "projectshortname", "dpname", "dsname", "compname", "version":
			return append(out, "comptype", "compshortname", "compkeyname")
		}
	}
	return out
}

// Selector scopes a column discovery call.
type Selector struct {
	Project  string `json:"project"`
	DP       string `json:"dp"`
	Dataset  string `json:"dataset"`
	CompType string `json:"comptype,omitempty"`
	CompName string `json:"compname,omitempty"`
}

// Columns returns the column names available for a selection.
func (c *Client) Columns(ctx context.Context, k metadata.Kind, sel Selector) ([]string, error) {
	body, err := jsonx.Marshal(sel)
	if err != nil {
		return nil, ErrBackendError.Err(err)
	}
	res, err := c.call(ctx, httpclient.RequestOptions{
		Method: http.MethodPost,
		Path:   k.Path() + "/get-columns",
		Body:   body,
	}, "unable to load columns")
	if err != nil {
		return nil, err
	}
	cols := []string{}
	if len(res.Data) == 0 || gjson.ParseBytes(res.Data).Type == gjson.Null {
		return cols, nil
	}
	if err := jsonx.Unmarshal(res.Data, &cols); err != nil {
		return nil, ErrBackendUnavailable.MsgErr("unexpected column list shape", err)
	}
	return cols, nil
}
