package apperrors

import "strings"

// ValidationError describes one field that failed a local check.
type ValidationError struct {
	Field  string `json:"field"`
	Value  any    `json:"value,omitempty"`
	ErrStr string `json:"error"`
}

// Error names the field and the failed rule.
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.ErrStr
	}
	return ve.Field + ": " + ve.ErrStr
}

// ValidationErrors is a list of field failures reported together.
type ValidationErrors []ValidationError

// Error joins the messages of every field.
func (ves ValidationErrors) Error() string {
	parts := make([]string, 0, len(ves))
	for _, ve := range ves {
		parts = append(parts, ve.Error())
	}
	return strings.Join(parts, "; ")
}

// FieldNames returns the failing field names in report order.
func (ves ValidationErrors) FieldNames() []string {
	names := make([]string, 0, len(ves))
	for _, ve := range ves {
		names = append(names, ve.Field)
	}
	return names
}
