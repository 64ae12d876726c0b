// Package filemgmt applies the console's upload rules for the CSV, YAML and
// Python side channels and checks downloaded archives.
package filemgmt

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/rs/zerolog/log"
	"github.com/tansive/vaultconsole/internal/vaultapi"
)

// sniffLen is enough of a file header for filetype matching.
const sniffLen = 261

var extensions = map[vaultapi.FileCategory][]string{
	vaultapi.CategoryCSV:    {".csv"},
	vaultapi.CategoryYAML:   {".yaml", ".yml"},
	vaultapi.CategoryPython: {".py"},
}

// Rejection explains why a single file was not uploaded.
type Rejection struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Screened splits a batch into files that pass the rules and files that do not.
type Screened struct {
	Accepted []vaultapi.File `json:"-"`
	Rejected []Rejection     `json:"rejected,omitempty"`
}

// AcceptedNames lists the names of the accepted files.
func (s *Screened) AcceptedNames() []string {
	names := make([]string, 0, len(s.Accepted))
	for _, f := range s.Accepted {
		names = append(names, f.Name)
	}
	return names
}

// Screen checks every file against the category's extension, the
// "<project>_" name prefix and a content sniff.
func Screen(category vaultapi.FileCategory, project string, files []vaultapi.File) (*Screened, error) {
	if !category.Valid() {
		return nil, ErrUnknownCategory.Msg("unknown file category: " + string(category))
	}
	if project == "" {
		return nil, ErrNoProject
	}
	s := &Screened{}
	for _, f := range files {
		if reason := reject(category, project, f); reason != "" {
			s.Rejected = append(s.Rejected, Rejection{File: f.Name, Reason: reason})
			continue
		}
		s.Accepted = append(s.Accepted, f)
	}
	return s, nil
}

func reject(category vaultapi.FileCategory, project string, f vaultapi.File) string {
	name := filepath.Base(f.Name)
	ext := strings.ToLower(filepath.Ext(name))
	allowed := extensions[category]
	ok := false
	for _, e := range allowed {
		if ext == e {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Sprintf("expected a %s file", strings.Join(allowed, " or "))
	}
	if !strings.HasPrefix(name, project+"_") {
		return fmt.Sprintf("file name must start with %q", project+"_")
	}
	if len(f.Content) == 0 {
		return "file is empty"
	}
	if binary, kind := isBinary(f.Content); binary {
		if kind != "" {
			return "file content looks like " + kind + ", not text"
		}
		return "file content is not text"
	}
	return ""
}

func isBinary(content []byte) (bool, string) {
	header := content
	if len(header) > sniffLen {
		header = header[:sniffLen]
	}
	kind, err := filetype.Match(header)
	if err == nil && kind != filetype.Unknown {
		return true, kind.Extension
	}
	return bytes.IndexByte(header, 0) >= 0, ""
}

// Backend is the part of the vault API used for file transfers.
type Backend interface {
	Upload(ctx context.Context, category vaultapi.FileCategory, project string, files []vaultapi.File) (*vaultapi.Result, error)
	DownloadAll(ctx context.Context, category vaultapi.FileCategory, projectID, timestamp string) (*vaultapi.Download, error)
}

// UploadResult reports an upload of the files that passed screening.
type UploadResult struct {
	Uploaded []string         `json:"uploaded"`
	Rejected []Rejection      `json:"rejected,omitempty"`
	Result   *vaultapi.Result `json:"result,omitempty"`
}

// Service runs screened uploads and checked downloads.
type Service struct {
	backend Backend
	now     func() time.Time
}

// NewService returns a file service that uploads and downloads through backend.
func NewService(backend Backend) *Service {
	return &Service{backend: backend, now: time.Now}
}

// Upload screens files and sends the accepted ones. Rejected files are
// reported alongside the upload result. If nothing is acceptable the backend
// is not called.
func (s *Service) Upload(ctx context.Context, category vaultapi.FileCategory, project string, files []vaultapi.File) (*UploadResult, error) {
	screened, err := Screen(category, project, files)
	if err != nil {
		return nil, err
	}
	out := &UploadResult{Uploaded: screened.AcceptedNames(), Rejected: screened.Rejected}
	if len(screened.Accepted) == 0 {
		return out, ErrNothingToUpload
	}
	for _, r := range screened.Rejected {
		log.Ctx(ctx).Info().Str("file", r.File).Str("reason", r.Reason).Msg("upload file rejected")
	}
	res, err := s.backend.Upload(ctx, category, project, screened.Accepted)
	if err != nil {
		return out, err
	}
	out.Result = res
	return out, nil
}

// Download fetches all files of a category for a project and verifies the body
// is a zip archive before handing it back. The returned Name is the
// suggested attachment name.
func (s *Service) Download(ctx context.Context, category vaultapi.FileCategory, projectID string) (string, *vaultapi.Download, error) {
	if !category.Valid() {
		return "", nil, ErrUnknownCategory.Msg("unknown file category: " + string(category))
	}
	if projectID == "" {
		return "", nil, ErrNoProject
	}
	ts := s.now().Format("2006-01-02_15-04-05")
	dl, err := s.backend.DownloadAll(ctx, category, projectID, ts)
	if err != nil {
		return "", nil, err
	}
	br := bufio.NewReaderSize(dl.Body, sniffLen)
	header, _ := br.Peek(sniffLen)
	if !filetype.IsArchive(header) {
		dl.Body.Close()
		return "", nil, ErrNotAnArchive
	}
	if kind, _ := filetype.Match(header); kind.Extension != "zip" {
		dl.Body.Close()
		return "", nil, ErrNotAnArchive.Msg("backend returned " + kind.Extension + " instead of a zip archive")
	}
	name := fmt.Sprintf("%s_%s_%s.zip", category, projectID, ts)
	return name, &vaultapi.Download{
		ContentType: "application/zip",
		Body:        readCloser{Reader: br, Closer: dl.Body},
	}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
