// Package httpclient is the bearer-token REST client the console and vaultctl
// use to reach the metadata backend. It builds URLs against a configured server,
// refuses to send tokens that have already expired and turns HTTP failures into
// *HTTPError values.
package httpclient

import (
	"context"
	"io"
)

// Doer is implemented by HTTPClient and by test doubles.
type Doer interface {
	DoRequest(ctx context.Context, opts RequestOptions) ([]byte, error)
	StreamRequest(ctx context.Context, opts RequestOptions) (io.ReadCloser, string, error)
}

var _ Doer = &HTTPClient{}
