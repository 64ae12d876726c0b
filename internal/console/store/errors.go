package store

import (
	"net/http"

	"github.com/tansive/vaultconsole/internal/common/apperrors"
)

var (
	// ErrStoreError is the base error for the collection store.
	ErrStoreError apperrors.Error = apperrors.New("collection store error").SetStatusCode(http.StatusInternalServerError)

	// ErrRefreshFailed is returned when one or more collections could not be fetched.
	ErrRefreshFailed apperrors.Error = ErrStoreError.New("unable to refresh collections").SetStatusCode(http.StatusBadGateway).SetExpandError(true)

	// ErrSnapshot is returned when a snapshot cannot be written or read.
	ErrSnapshot apperrors.Error = ErrStoreError.New("collection snapshot error").SetExpandError(true)
)
