package form

import (
	"net/http"

	"github.com/tansive/vaultconsole/internal/common/apperrors"
)

var (
	// ErrFormError is the base error for form sessions.
	ErrFormError apperrors.Error = apperrors.New("form error").SetStatusCode(http.StatusInternalServerError)

	// ErrSessionNotFound is returned for an unknown or expired form session id.
	ErrSessionNotFound apperrors.Error = ErrFormError.New("form session not found").SetStatusCode(http.StatusNotFound)

	// ErrNoFormForKind is returned when a kind has no form.
	ErrNoFormForKind apperrors.Error = ErrFormError.New("record kind has no form").SetStatusCode(http.StatusBadRequest)

	// ErrRecordNotFound is returned when opening an update form for an id that is not loaded.
	ErrRecordNotFound apperrors.Error = ErrFormError.New("record not found").SetStatusCode(http.StatusNotFound)

	// ErrUnknownField is returned when a field is not part of the kind's form.
	ErrUnknownField apperrors.Error = ErrFormError.New("unknown form field").SetStatusCode(http.StatusBadRequest)

	// ErrInvalidOption is returned when a selection is not among the field's current options.
	ErrInvalidOption apperrors.Error = ErrFormError.New("value is not an available option").SetStatusCode(http.StatusBadRequest)

	// ErrAncestorUnset is returned when options are requested before the fields they depend on are chosen.
	ErrAncestorUnset apperrors.Error = ErrFormError.New("select the preceding fields first").SetStatusCode(http.StatusBadRequest)

	// ErrBusy is returned for actions attempted while a request is in flight.
	ErrBusy apperrors.Error = ErrFormError.New("form is busy").SetStatusCode(http.StatusConflict)

	// ErrNotValidated is returned by Submit when the form is not in the validated state.
	ErrNotValidated apperrors.Error = ErrFormError.New("validate the form before submitting").SetStatusCode(http.StatusConflict)

	// ErrStaleOptions is returned when a newer option fetch for the same field was
	// issued while this one was in flight; its result is dropped.
	ErrStaleOptions apperrors.Error = ErrFormError.New("option list superseded by a newer request").SetStatusCode(http.StatusConflict)

	// ErrNotRemote is returned when remote options are requested for a field that derives them locally.
	ErrNotRemote apperrors.Error = ErrFormError.New("field has no remote options").SetStatusCode(http.StatusBadRequest)

	// ErrNoRows is returned for row operations on a single-record form.
	ErrNoRows apperrors.Error = ErrFormError.New("form has no rows").SetStatusCode(http.StatusBadRequest)

	// ErrRowCount is returned when a row count is outside the allowed bounds.
	ErrRowCount apperrors.Error = ErrFormError.New("row count out of range").SetStatusCode(http.StatusBadRequest)

	// ErrRowIndex is returned for a row index that does not exist.
	ErrRowIndex apperrors.Error = ErrFormError.New("row index out of range").SetStatusCode(http.StatusBadRequest)

	// ErrDuplicateRow is returned when a row would take a name already held by a sibling row.
	ErrDuplicateRow apperrors.Error = ErrFormError.New("name already selected in another row").SetStatusCode(http.StatusBadRequest)

	// ErrValidationDiscarded is returned when the form changed while validation was in flight.
	ErrValidationDiscarded apperrors.Error = ErrFormError.New("form changed during validation; validate again").SetStatusCode(http.StatusConflict)

	// ErrCrossCheckFailed is returned by Submit when a blocking cross-check fails.
	ErrCrossCheckFailed apperrors.Error = ErrFormError.New("cross-check failed").SetStatusCode(http.StatusUnprocessableEntity)

	// ErrSubmitFailed is returned when a row of a submission is rejected. Rows before
	// it stay persisted.
	ErrSubmitFailed apperrors.Error = ErrFormError.New("submission failed").SetStatusCode(http.StatusUnprocessableEntity)
)
