package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/vaultconsole/internal/common/eventbus"
	"github.com/tansive/vaultconsole/internal/common/middleware"
	"github.com/tansive/vaultconsole/internal/console/filemgmt"
	"github.com/tansive/vaultconsole/internal/console/form"
	"github.com/tansive/vaultconsole/internal/console/store"
	"github.com/tansive/vaultconsole/internal/metadata"
	"github.com/tansive/vaultconsole/internal/vaultapi"
)

type fakeLoader struct {
	mu    sync.Mutex
	data  map[metadata.Kind][]metadata.Record
	fail  map[metadata.Kind]bool
	calls map[metadata.Kind]int
}

func (l *fakeLoader) List(_ context.Context, k metadata.Kind) ([]metadata.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[k]++
	if l.fail[k] {
		return nil, errors.Errorf("list %s failed", k)
	}
	return slices.Clone(l.data[k]), nil
}

func (l *fakeLoader) set(k metadata.Kind, recs ...metadata.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data[k] = recs
}

type fakeBackend struct {
	mu      sync.Mutex
	tests   int
	creates []metadata.Record
	loader  *fakeLoader
}

func (b *fakeBackend) Test(_ context.Context, rec metadata.Record) (*vaultapi.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tests++
	if h, ok := rec.(*metadata.Hub); ok && h.CompName == "taken" {
		return nil, vaultapi.ErrRejected.Msg("hub taken already exists")
	}
	return &vaultapi.Result{Status: 1, Message: "looks good"}, nil
}

// Create also makes the record visible to the next list call.
func (b *fakeBackend) Create(_ context.Context, rec metadata.Record) (*vaultapi.Result, error) {
	b.mu.Lock()
	b.creates = append(b.creates, rec)
	b.mu.Unlock()
	b.loader.mu.Lock()
	b.loader.data[rec.Kind()] = append(b.loader.data[rec.Kind()], rec)
	b.loader.mu.Unlock()
	return &vaultapi.Result{Status: 1, Message: "created"}, nil
}

func (b *fakeBackend) UpdateRecord(_ context.Context, rec metadata.Record, _ []string) (*vaultapi.Result, error) {
	return &vaultapi.Result{Status: 1, Message: "updated"}, nil
}

func (b *fakeBackend) Columns(context.Context, metadata.Kind, vaultapi.Selector) ([]string, error) {
	return []string{"id", "region", "name"}, nil
}

type fakeFiles struct {
	uploaded []vaultapi.File
}

func (f *fakeFiles) Upload(_ context.Context, _ vaultapi.FileCategory, _ string, files []vaultapi.File) (*vaultapi.Result, error) {
	f.uploaded = append(f.uploaded, files...)
	return &vaultapi.Result{Status: 1, Message: fmt.Sprintf("%d files uploaded", len(files))}, nil
}

func (f *fakeFiles) DownloadAll(context.Context, vaultapi.FileCategory, string, string) (*vaultapi.Download, error) {
	return &vaultapi.Download{Body: io.NopCloser(bytes.NewReader([]byte("PK\x03\x04\x14\x00\x00\x00zipped")))}, nil
}

type testEnv struct {
	server  *ConsoleServer
	loader  *fakeLoader
	backend *fakeBackend
	files   *fakeFiles
	store   *store.Store
	bus     *eventbus.EventBus
}

func scope(p, dp, ds string) metadata.Scope {
	return metadata.Scope{ProjectShortName: p, DPName: dp, DSName: ds}
}

func seed() map[metadata.Kind][]metadata.Record {
	orders := scope("p1", "sales", "orders")
	hubs := []metadata.Record{}
	for i := 1; i <= 12; i++ {
		p := "p1"
		if i > 9 {
			p = "p2"
		}
		hubs = append(hubs, &metadata.Hub{
			Scope:    scope(p, "sales", "orders"),
			CompName: fmt.Sprintf("hub%02d", i),
			BKFields: []string{"id", "region"},
			Version:  1,
			Audit: metadata.Audit{
				ID:         int64(i),
				CreateDate: fmt.Sprintf("2024-03-%02dT10:00:00Z", i),
				UserEmail:  "ana@example.com",
			},
		})
	}
	return map[metadata.Kind][]metadata.Record{
		metadata.KindProject: {
			&metadata.Project{ProjectShortName: "p1", Title: "Project one"},
			&metadata.Project{ProjectShortName: "p2", Title: "Project two"},
		},
		metadata.KindDataProduct: {
			&metadata.DataProduct{ProjectShortName: "p1", DataProductShortName: "sales"},
			&metadata.DataProduct{ProjectShortName: "p2", DataProductShortName: "sales"},
		},
		metadata.KindDataset: {
			&metadata.Dataset{ProjectShortName: "p1", DataProductShortName: "sales", DatasetShortName: "orders"},
			&metadata.Dataset{ProjectShortName: "p2", DataProductShortName: "sales", DatasetShortName: "orders"},
		},
		metadata.KindProjectAssignment: {
			&metadata.ProjectAssignment{ProjectShortName: "p2", Assignee: "ana@example.com", Role: "editor"},
		},
		metadata.KindHub: hubs,
		metadata.KindSatellite: {
			&metadata.Satellite{Scope: orders, Component: metadata.Component{CompName: "hub01sat"}, ParentType: "dh", ParentName: "hub01", Version: 1},
		},
	}
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	env := &testEnv{
		loader: &fakeLoader{data: seed(), fail: map[metadata.Kind]bool{}, calls: map[metadata.Kind]int{}},
		files:  &fakeFiles{},
		bus:    eventbus.New(),
	}
	t.Cleanup(env.bus.Shutdown)
	env.backend = &fakeBackend{loader: env.loader}
	env.store = store.New(env.loader, env.bus)
	require.NoError(t, env.store.Refresh(context.Background(), metadata.AllKinds()...))

	forms := form.NewRegistry(form.Deps{
		Collections: env.store,
		Backend:     env.backend,
		OnSubmitted: RefreshAfterSubmit(env.store),
	})
	s, err := CreateNewServer(Deps{
		Store: env.store,
		Forms: forms,
		Files: filemgmt.NewService(env.files),
	}, opts)
	require.NoError(t, err, "create new server")
	s.MountHandlers()
	env.server = s
	return env
}

func (env *testEnv) executeTestRequest(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	env.server.Router.ServeHTTP(rr, req)
	return rr
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, nil)
	require.NoError(t, err)
	if body != nil {
		setRequestBodyAndHeader(t, req, body)
	}
	return env.executeTestRequest(t, req)
}

func checkHeader(t *testing.T, h http.Header) {
	expected := "application/json"
	got := h.Get("Content-Type")
	assert.Equal(t, expected, got, "Content-Type expected %s, got %s", expected, got)
	assert.NotEmpty(t, h.Get(middleware.RequestIDHeader), "No Request Id")
}

func compareJson(t *testing.T, expected any, actual string) {
	var j []byte
	var err error

	switch v := expected.(type) {
	case string:
		if json.Valid([]byte(v)) {
			j = []byte(v)
		} else {
			j, err = json.Marshal(v)
			assert.NoError(t, err, "json marshal")
		}
	case []byte:
		j = v
	default:
		j, err = json.Marshal(expected)
		assert.NoError(t, err, "json marshal")
	}

	assert.JSONEq(t, string(j), actual, "Expected: %v\nGot: %v\n", expected, actual)
}

func setRequestBodyAndHeader(t *testing.T, req *http.Request, data any) {
	var jsonData []byte
	if s, ok := data.(string); ok && json.Valid([]byte(s)) {
		jsonData = []byte(s)
	} else {
		var err error
		jsonData, err = json.Marshal(data)
		assert.NoError(t, err, "Failed to marshal data into JSON")
	}
	req.Body = io.NopCloser(bytes.NewReader(jsonData))
	req.ContentLength = int64(len(jsonData))
	req.Header.Set("Content-Type", "application/json")
}

// envelopeData decodes the data member of a success envelope.
func envelopeData(t *testing.T, rr *httptest.ResponseRecorder, into any) {
	t.Helper()
	var env struct {
		Status int             `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, into), string(env.Data))
}
