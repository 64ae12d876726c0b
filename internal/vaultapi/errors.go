package vaultapi

import (
	"net/http"

	"github.com/tansive/vaultconsole/internal/common/apperrors"
)

var (
	// ErrBackendError is the base error for calls to the metadata backend.
	ErrBackendError apperrors.Error = apperrors.New("metadata backend error").SetStatusCode(http.StatusBadGateway)

	// ErrRejected is returned when the backend answers with a non-success status.
	// The message is the backend's own.
	ErrRejected apperrors.Error = ErrBackendError.New("request rejected by backend").SetStatusCode(http.StatusUnprocessableEntity)

	// ErrBackendUnavailable is returned for transport failures and bodies that are
	// not the expected JSON envelope.
	ErrBackendUnavailable apperrors.Error = ErrBackendError.New("metadata backend unavailable").SetStatusCode(http.StatusBadGateway)

	// ErrUnauthorized is returned when the bearer token is missing, expired or refused.
	ErrUnauthorized apperrors.Error = ErrBackendError.New("not authorized").SetStatusCode(http.StatusUnauthorized)

	// ErrNotAComponent is returned for create/test/update on list-only kinds.
	ErrNotAComponent apperrors.Error = ErrBackendError.New("record kind does not support this operation").SetStatusCode(http.StatusBadRequest)
)
