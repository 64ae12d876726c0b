package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/vaultconsole/internal/metadata"
)

type failingRefresher struct {
	calls  int
	kinds  []metadata.Kind
	cancel context.CancelFunc
}

func (r *failingRefresher) Refresh(_ context.Context, kinds ...metadata.Kind) error {
	r.calls++
	r.kinds = kinds
	r.cancel()
	return errors.New("dh: backend unavailable")
}

func TestRefreshCollectionsLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))
	defer cancel()

	r := &failingRefresher{cancel: cancel}
	refreshCollections(ctx, r, time.Millisecond)

	require.Equal(t, 1, r.calls)
	assert.Equal(t, metadata.AllKinds(), r.kinds)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "collection refresh incomplete")
	assert.Contains(t, buf.String(), "dh: backend unavailable")
}
