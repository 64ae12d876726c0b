package querypanel

import (
	"net/http"

	"github.com/tansive/vaultconsole/internal/common/apperrors"
)

var (
	// ErrQueryError is the base error for the query panel.
	ErrQueryError apperrors.Error = apperrors.New("query panel error").SetStatusCode(http.StatusInternalServerError)
	// ErrDisabled is returned when no warehouse DSN is configured.
	ErrDisabled apperrors.Error = ErrQueryError.New("query panel is not configured").SetStatusCode(http.StatusNotFound)
	// ErrUnavailable is returned when the warehouse cannot be reached.
	ErrUnavailable apperrors.Error = ErrQueryError.New("warehouse is unavailable").SetStatusCode(http.StatusBadGateway)
	// ErrNotReadOnly is returned for anything other than a single SELECT or WITH statement.
	ErrNotReadOnly apperrors.Error = ErrQueryError.New("only a single SELECT or WITH statement is allowed").SetStatusCode(http.StatusBadRequest)
	// ErrQueryFailed wraps a database error and carries its SQLSTATE in the message.
	ErrQueryFailed apperrors.Error = ErrQueryError.New("query failed").SetStatusCode(http.StatusBadRequest)
	// ErrQueryTimeout is returned when the statement timeout cancels a query.
	ErrQueryTimeout apperrors.Error = ErrQueryFailed.New("query exceeded the statement timeout").SetStatusCode(http.StatusGatewayTimeout)
	// ErrInvalidIdentifier is returned for a malformed schema or table name.
	ErrInvalidIdentifier apperrors.Error = ErrQueryError.New("invalid identifier").SetStatusCode(http.StatusBadRequest)
)
