package apperrors

import (
	"errors"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorChain(t *testing.T) {
	ErrBase := New("console error").SetStatusCode(http.StatusInternalServerError)
	assert.Equal(t, "console error", ErrBase.Error())
	assert.ErrorIs(t, ErrBase, ErrBase)

	ErrRejected := ErrBase.New("rejected by backend").SetStatusCode(http.StatusUnprocessableEntity)
	assert.Equal(t, "rejected by backend", ErrRejected.Error())
	assert.ErrorIs(t, ErrRejected, ErrBase)
	assert.Equal(t, http.StatusUnprocessableEntity, ErrRejected.StatusCode())

	ErrChild := ErrRejected.New("duplicate component")
	assert.Equal(t, http.StatusUnprocessableEntity, ErrChild.StatusCode(), "status is inherited")

	cause := pkgerrors.New("connection refused")
	wrapped := ErrRejected.Err(cause)
	assert.Equal(t, "rejected by backend", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
	assert.ErrorIs(t, wrapped, ErrBase)
	assert.Equal(t, "rejected by backend", wrapped.ErrorAll(), "expansion is off by default")
	assert.Equal(t, "rejected by backend; connection refused", wrapped.SetExpandError(true).ErrorAll())

	msg := ErrRejected.MsgErr("component already exists", errors.New("unique violation"))
	assert.Equal(t, "component already exists", msg.Error())
	assert.ErrorIs(t, msg, ErrRejected)
	assert.Len(t, msg.UnwrapAll(), 1)
}

func TestErrorFields(t *testing.T) {
	ErrMissing := New("missing required fields").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
	err := ErrMissing.Err(ValidationErrors{
		{Field: "projectshortname", ErrStr: "required"},
		{Field: "bkfields", ErrStr: "required"},
	})
	assert.Equal(t, []string{"projectshortname", "bkfields"}, err.Fields().FieldNames())
	assert.Equal(t, "missing required fields; projectshortname: required; bkfields: required", err.ErrorAll())

	single := ErrMissing.Err(ValidationError{Field: "version", ErrStr: "must be at least 1"})
	assert.Equal(t, []string{"version"}, single.Fields().FieldNames())
	assert.Empty(t, ErrMissing.Fields())
}
