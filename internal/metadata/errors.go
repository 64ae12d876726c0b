package metadata

import (
	"net/http"

	"github.com/tansive/vaultconsole/internal/common/apperrors"
)

var (
	// ErrMetadataError is the base error for record handling.
	ErrMetadataError apperrors.Error = apperrors.New("metadata error").SetStatusCode(http.StatusInternalServerError)

	// ErrUnknownKind is returned for a kind name or path that is not recognised.
	ErrUnknownKind apperrors.Error = ErrMetadataError.New("unknown record kind").SetStatusCode(http.StatusNotFound)

	// ErrInvalidRecord is returned when backend data cannot be decoded into the kind's struct.
	ErrInvalidRecord apperrors.Error = ErrMetadataError.New("invalid record data").SetStatusCode(http.StatusBadGateway)

	// ErrRequiredFieldMissing is returned by Validate. The attached validation errors
	// name each failing field.
	ErrRequiredFieldMissing apperrors.Error = ErrMetadataError.New("please fill in all required fields").SetStatusCode(http.StatusBadRequest).SetExpandError(true)
)
