package vaultapi

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	jsoniter "github.com/json-iterator/go"
	"github.com/tansive/vaultconsole/internal/common/httpclient"
)

var jsonx = jsoniter.ConfigCompatibleWithStandardLibrary

// FileCategory is one of the file management side channels.
type FileCategory string

const (
	CategoryCSV    FileCategory = "csv"
	CategoryYAML   FileCategory = "yaml"
	CategoryPython FileCategory = "python"
)

// Valid reports whether c is a known category.
func (c FileCategory) Valid() bool {
	switch c {
	case CategoryCSV, CategoryYAML, CategoryPython:
		return true
	}
	return false
}

// File is one file to upload.
type File struct {
	Name    string
	Content []byte
}

// Download is a zip archive returned by the backend. The caller closes Body.
type Download struct {
	ContentType string
	Body        io.ReadCloser
}

// Upload sends files as multipart fields project_shortname and files[].
func (c *Client) Upload(ctx context.Context, category FileCategory, project string, files []File) (*Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("project_shortname", project); err != nil {
		return nil, ErrBackendError.Err(err)
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("files[]", f.Name)
		if err != nil {
			return nil, ErrBackendError.Err(err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, ErrBackendError.Err(err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, ErrBackendError.Err(err)
	}
	return c.call(ctx, httpclient.RequestOptions{
		Method:      http.MethodPost,
		Path:        c.filePrefix + "/" + string(category) + "/upload",
		Body:        buf.Bytes(),
		ContentType: mw.FormDataContentType(),
	}, "upload failed")
}

// DownloadAll fetches every file of a category for a project as a zip archive.
// timestamp is passed through for the backend's archive naming.
func (c *Client) DownloadAll(ctx context.Context, category FileCategory, projectID, timestamp string) (*Download, error) {
	form := url.Values{}
	form.Set("project_id", projectID)
	form.Set("timestamp", timestamp)
	body, ct, err := c.http.StreamRequest(ctx, httpclient.RequestOptions{
		Method:      http.MethodPost,
		Path:        c.filePrefix + "/" + string(category) + "/download/all",
		Body:        []byte(form.Encode()),
		ContentType: "application/x-www-form-urlencoded",
	})
	if err != nil {
		return nil, translate(err)
	}
	return &Download{ContentType: ct, Body: body}, nil
}

func (c *Client) UploadCSV(ctx context.Context, project string, files []File) (*Result, error) {
	return c.Upload(ctx, CategoryCSV, project, files)
}

func (c *Client) DownloadAllCSV(ctx context.Context, projectID, timestamp string) (*Download, error) {
	return c.DownloadAll(ctx, CategoryCSV, projectID, timestamp)
}

func (c *Client) UploadYAML(ctx context.Context, project string, files []File) (*Result, error) {
	return c.Upload(ctx, CategoryYAML, project, files)
}

func (c *Client) DownloadYAML(ctx context.Context, projectID, timestamp string) (*Download, error) {
	return c.DownloadAll(ctx, CategoryYAML, projectID, timestamp)
}

func (c *Client) UploadPython(ctx context.Context, project string, files []File) (*Result, error) {
	return c.Upload(ctx, CategoryPython, project, files)
}

func (c *Client) DownloadPython(ctx context.Context, projectID, timestamp string) (*Download, error) {
	return c.DownloadAll(ctx, CategoryPython, projectID, timestamp)
}
