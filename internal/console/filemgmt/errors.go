package filemgmt

import (
	"net/http"

	"github.com/tansive/vaultconsole/internal/common/apperrors"
)

var (
	// ErrFileError is the base error for file management.
	ErrFileError apperrors.Error = apperrors.New("file management error").SetStatusCode(http.StatusInternalServerError)
	// ErrUnknownCategory is returned for a category other than csv, yaml or python.
	ErrUnknownCategory apperrors.Error = ErrFileError.New("unknown file category").SetStatusCode(http.StatusNotFound)
	// ErrNoProject is returned when no project short name is selected.
	ErrNoProject apperrors.Error = ErrFileError.New("select a project first").SetStatusCode(http.StatusBadRequest)
	// ErrNothingToUpload is returned when every file was rejected or none was given.
	ErrNothingToUpload apperrors.Error = ErrFileError.New("no acceptable files to upload").SetStatusCode(http.StatusBadRequest)
	// ErrNotAnArchive is returned when a download is not a zip archive.
	ErrNotAnArchive apperrors.Error = ErrFileError.New("backend did not return a zip archive").SetStatusCode(http.StatusBadGateway)
)
