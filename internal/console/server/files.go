package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tansive/vaultconsole/internal/common/httpx"
	"github.com/tansive/vaultconsole/internal/console/filemgmt"
	"github.com/tansive/vaultconsole/internal/vaultapi"
)

// maxUploadMemory bounds the multipart form held in memory.
const maxUploadMemory = 32 << 20

type downloadReq struct {
	ProjectID string `json:"project_id"`
}

func (s *ConsoleServer) files() (*filemgmt.Service, error) {
	if s.deps.Files == nil {
		return nil, httpx.ErrNotFound("file management is not configured")
	}
	return s.deps.Files, nil
}

// uploadFiles accepts multipart fields project_shortname and files[].
func (s *ConsoleServer) uploadFiles(r *http.Request) (*httpx.Response, error) {
	svc, err := s.files()
	if err != nil {
		return nil, err
	}
	category := vaultapi.FileCategory(chi.URLParam(r, "category"))
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, httpx.ErrInvalidRequest("expected a multipart form: " + err.Error())
	}
	var files []vaultapi.File
	for _, fh := range r.MultipartForm.File["files[]"] {
		f, err := fh.Open()
		if err != nil {
			return nil, httpx.ErrUnableToReadRequest()
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, httpx.ErrUnableToReadRequest()
		}
		files = append(files, vaultapi.File{Name: fh.Filename, Content: content})
	}
	out, err := svc.Upload(r.Context(), category, r.FormValue("project_shortname"), files)
	if errors.Is(err, filemgmt.ErrNothingToUpload) && out != nil && len(out.Rejected) > 0 {
		reasons := make([]string, 0, len(out.Rejected))
		for _, rj := range out.Rejected {
			reasons = append(reasons, rj.File+": "+rj.Reason)
		}
		return nil, filemgmt.ErrNothingToUpload.Msg("no acceptable files to upload (" + strings.Join(reasons, "; ") + ")")
	}
	if err != nil {
		return nil, err
	}
	msg := out.Result.Message
	if msg == "" {
		msg = "files uploaded"
	}
	return &httpx.Response{Message: msg, Response: out}, nil
}

// downloadFiles returns every file of the category as a zip attachment.
func (s *ConsoleServer) downloadFiles(r *http.Request) (*httpx.Response, error) {
	svc, err := s.files()
	if err != nil {
		return nil, err
	}
	var req downloadReq
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	name, dl, err := svc.Download(r.Context(), vaultapi.FileCategory(chi.URLParam(r, "category")), req.ProjectID)
	if err != nil {
		return nil, err
	}
	defer dl.Body.Close()
	body, err := io.ReadAll(dl.Body)
	if err != nil {
		return nil, vaultapi.ErrBackendUnavailable.Err(err)
	}
	return &httpx.Response{ContentType: dl.ContentType, Attachment: name, Body: body}, nil
}
