package filemgmt

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/vaultconsole/internal/vaultapi"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	zipHeader = []byte("PK\x03\x04\x14\x00\x00\x00\x08\x00rest-of-archive")
)

func TestScreen(t *testing.T) {
	files := []vaultapi.File{
		{Name: "p1_hubs.csv", Content: []byte("a,b\n1,2\n")},
		{Name: "hubs.csv", Content: []byte("a\n")},
		{Name: "p1_hubs.yaml", Content: []byte("a: 1\n")},
		{Name: "p1_image.csv", Content: pngHeader},
		{Name: "p1_nul.csv", Content: []byte("a\x00b")},
		{Name: "p1_empty.csv"},
	}
	s, err := Screen(vaultapi.CategoryCSV, "p1", files)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1_hubs.csv"}, s.AcceptedNames())
	require.Len(t, s.Rejected, 5)
	assert.Equal(t, "file name must start with \"p1_\"", s.Rejected[0].Reason)
	assert.Equal(t, "expected a .csv file", s.Rejected[1].Reason)
	assert.Equal(t, "file content looks like png, not text", s.Rejected[2].Reason)
	assert.Equal(t, "file content is not text", s.Rejected[3].Reason)
	assert.Equal(t, "file is empty", s.Rejected[4].Reason)

	s, err = Screen(vaultapi.CategoryYAML, "p1", []vaultapi.File{
		{Name: "p1_a.yml", Content: []byte("a: 1")},
		{Name: "p1_b.YAML", Content: []byte("b: 2")},
		{Name: "p1_c.py", Content: []byte("print(1)")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1_a.yml", "p1_b.YAML"}, s.AcceptedNames())
	assert.Equal(t, "expected a .yaml or .yml file", s.Rejected[0].Reason)

	_, err = Screen("sql", "p1", nil)
	assert.ErrorIs(t, err, ErrUnknownCategory)
	_, err = Screen(vaultapi.CategoryPython, "", nil)
	assert.ErrorIs(t, err, ErrNoProject)
}

type fakeBackend struct {
	uploaded []vaultapi.File
	body     []byte
	ts       string
}

func (f *fakeBackend) Upload(_ context.Context, _ vaultapi.FileCategory, _ string, files []vaultapi.File) (*vaultapi.Result, error) {
	f.uploaded = files
	return &vaultapi.Result{Status: 1, Message: "uploaded"}, nil
}

func (f *fakeBackend) DownloadAll(_ context.Context, _ vaultapi.FileCategory, _ string, ts string) (*vaultapi.Download, error) {
	f.ts = ts
	return &vaultapi.Download{ContentType: "application/octet-stream", Body: io.NopCloser(bytes.NewReader(f.body))}, nil
}

func TestServiceUpload(t *testing.T) {
	be := &fakeBackend{}
	svc := NewService(be)

	out, err := svc.Upload(context.Background(), vaultapi.CategoryPython, "p1", []vaultapi.File{
		{Name: "p1_job.py", Content: []byte("print('hi')\n")},
		{Name: "job.py", Content: []byte("print('hi')\n")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1_job.py"}, out.Uploaded)
	assert.Len(t, out.Rejected, 1)
	assert.Equal(t, "uploaded", out.Result.Message)
	assert.Len(t, be.uploaded, 1)

	be.uploaded = nil
	out, err = svc.Upload(context.Background(), vaultapi.CategoryPython, "p1", []vaultapi.File{
		{Name: "job.py", Content: []byte("x")},
	})
	assert.ErrorIs(t, err, ErrNothingToUpload)
	assert.Len(t, out.Rejected, 1)
	assert.Nil(t, be.uploaded)
}

func TestServiceDownload(t *testing.T) {
	be := &fakeBackend{body: zipHeader}
	svc := NewService(be)
	svc.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	name, dl, err := svc.Download(context.Background(), vaultapi.CategoryCSV, "p1")
	require.NoError(t, err)
	defer dl.Body.Close()
	assert.Equal(t, "csv_p1_2024-01-02_03-04-05.zip", name)
	assert.Equal(t, "2024-01-02_03-04-05", be.ts)
	assert.Equal(t, "application/zip", dl.ContentType)
	got, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, zipHeader, got)

	be.body = []byte(`{"status":0,"message":"no files"}`)
	_, _, err = svc.Download(context.Background(), vaultapi.CategoryCSV, "p1")
	assert.ErrorIs(t, err, ErrNotAnArchive)
}
