package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Configurator supplies the server URL and the bearer token.
type Configurator interface {
	GetServerURL() string
	GetToken() string
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error returns the server message.
func (e *HTTPError) Error() string {
	return e.Message
}

// ErrTokenExpired is returned before any request is sent with an expired token.
var ErrTokenExpired = errors.New("access token has expired; log in again")

// HTTPClient sends requests to the metadata backend.
type HTTPClient struct {
	config     Configurator
	httpClient *http.Client
	now        func() time.Time
}

// ClientOptions tunes the underlying transport.
type ClientOptions struct {
	InsecureSkipVerify bool
	Timeout            time.Duration // zero means no client-side timeout
}

// NewClient returns a client for the server and token named by config. Only
// the first opts value is used.
func NewClient(config Configurator, opts ...ClientOptions) *HTTPClient {
	var o ClientOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	httpClient := &http.Client{Timeout: o.Timeout}
	if o.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &HTTPClient{
		config:     config,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// RequestOptions describes one request. Body is sent as JSON unless
// ContentType says otherwise.
type RequestOptions struct {
	Method      string
	Path        string
	QueryParams map[string]string
	Body        []byte
	ContentType string
}

func (c *HTTPClient) newRequest(ctx context.Context, opts RequestOptions) (*http.Request, error) {
	u, err := url.Parse(c.config.GetServerURL())
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL: %q", c.config.GetServerURL())
	}
	u.Path = path.Join("/", u.Path, opts.Path)
	q := u.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, opts.Method, u.String(), bytes.NewReader(opts.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	ct := opts.ContentType
	if ct == "" {
		ct = "application/json"
	}
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Accept", "application/json")

	if token := c.config.GetToken(); token != "" {
		if exp, ok := TokenExpiry(token); ok && !c.now().Before(exp) {
			return nil, ErrTokenExpired
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// DoRequest sends the request and returns the response body. Responses with a
// status of 400 or above become *HTTPError.
func (c *HTTPClient) DoRequest(ctx context.Context, opts RequestOptions) ([]byte, error) {
	req, err := c.newRequest(ctx, opts)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, errorFromBody(resp.StatusCode, body)
	}
	return body, nil
}

// StreamRequest is DoRequest for binary downloads. It returns the open body and
// its content type; the caller closes the body.
func (c *HTTPClient) StreamRequest(ctx context.Context, opts RequestOptions) (io.ReadCloser, string, error) {
	req, err := c.newRequest(ctx, opts)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, "", errorFromBody(resp.StatusCode, body)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// errorFromBody prefers the backend's own message over the raw body.
func errorFromBody(status int, body []byte) *HTTPError {
	var serverErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &serverErr); err == nil {
		for _, m := range []string{serverErr.Message, serverErr.Error, serverErr.Detail} {
			if m != "" {
				return &HTTPError{StatusCode: status, Message: m}
			}
		}
	}
	if status == http.StatusNotFound {
		return &HTTPError{StatusCode: status, Message: "server doesn't implement this endpoint"}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &HTTPError{StatusCode: status, Message: msg}
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature; the
// backend remains the authority on validity. ok is false for opaque tokens and
// JWTs without exp.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// TokenSubject returns the email or sub claim, "" when neither is present.
func TokenSubject(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	if email, ok := claims["email"].(string); ok && email != "" {
		return email
	}
	sub, _ := claims.GetSubject()
	return sub
}
