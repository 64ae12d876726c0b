package metadata

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
	"github.com/tansive/vaultconsole/internal/common/apperrors"
	"github.com/tidwall/gjson"
)

var jsonx = jsoniter.ConfigCompatibleWithStandardLibrary

// New returns an empty record of kind k.
func New(k Kind) (Record, error) {
	switch k {
	case KindHub:
		return &Hub{}, nil
	case KindLink:
		return &Link{}, nil
	case KindSatellite:
		return &Satellite{}, nil
	case KindMultiActiveSatellite:
		return &MultiActiveSatellite{}, nil
	case KindSourceSelection:
		return &SourceSelection{}, nil
	case KindTargetSelection:
		return &TargetSelection{}, nil
	case KindRelationship:
		return &Relationship{}, nil
	case KindPointInTime:
		return &PointInTime{}, nil
	case KindStageGroup1:
		return &StageGroup1{}, nil
	case KindStageGroup2:
		return &StageGroup2{}, nil
	case KindBridge:
		return &Bridge{}, nil
	case KindMultiLinkBridge:
		return &MultiLinkBridge{}, nil
	case KindDataDictionary:
		return &DataDictionary{}, nil
	case KindFactTable:
		return &FactTable{}, nil
	case KindProject:
		return &Project{}, nil
	case KindDataProduct:
		return &DataProduct{}, nil
	case KindDataset:
		return &Dataset{}, nil
	case KindProjectAssignment:
		return &ProjectAssignment{}, nil
	}
	return nil, ErrUnknownKind.Msg("unknown record kind: " + string(k))
}

// Decode parses one JSON object into a record of kind k.
func Decode(k Kind, raw []byte) (Record, error) {
	rec, err := New(k)
	if err != nil {
		return nil, err
	}
	if err := jsonx.Unmarshal(raw, rec); err != nil {
		return nil, ErrInvalidRecord.MsgErr("unable to decode "+string(k)+" record", err)
	}
	return rec, nil
}

// DecodeList parses a JSON array of records of kind k. A null array is an empty
// list.
func DecodeList(k Kind, raw []byte) ([]Record, error) {
	if _, err := New(k); err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := jsonx.Unmarshal(raw, &items); err != nil {
		return nil, ErrInvalidRecord.MsgErr("expected a list of "+string(k)+" records", err)
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		rec, err := Decode(k, item)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// FromValues builds a record of kind k from loosely typed form values keyed by
// JSON field name. Numeric strings are accepted for integer fields.
func FromValues(k Kind, values map[string]any) (Record, error) {
	rec, err := New(k)
	if err != nil {
		return nil, err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
		Result:           rec,
	})
	if err != nil {
		return nil, ErrMetadataError.Err(err)
	}
	if err := dec.Decode(values); err != nil {
		return nil, ErrInvalidRecord.MsgErr("unable to build "+string(k)+" record", err)
	}
	return rec, nil
}

// Payload derives the client-computed fields and returns the JSON body sent to
// the backend.
func Payload(rec Record) ([]byte, error) {
	if d, ok := rec.(Deriver); ok {
		d.Derive()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, ErrMetadataError.Err(err)
	}
	return b, nil
}

// Fields returns the flattened JSON view of rec used by tables and exports.
func Fields(rec Record) map[string]any {
	b, err := json.Marshal(rec)
	if err != nil {
		return map[string]any{}
	}
	m := map[string]any{}
	if err := jsonx.Unmarshal(b, &m); err != nil {
		return map[string]any{}
	}
	return m
}

// FieldOrder returns rec's JSON keys in declaration order.
func FieldOrder(rec Record) []string {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil
	}
	var keys []string
	gjson.ParseBytes(b).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate runs the local field checks. Failures are reported together as
// ErrRequiredFieldMissing with one validation error per field.
func Validate(rec Record) error {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ErrInvalidRecord.Err(err)
	}
	ves := make(apperrors.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		ves = append(ves, apperrors.ValidationError{
			Field:  fe.Field(),
			Value:  fe.Value(),
			ErrStr: describe(fe),
		})
	}
	return ErrRequiredFieldMissing.Err(ves)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "missing required attribute"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "select at least " + fe.Param()
		}
		return "must be at least " + fe.Param()
	case "unique":
		return "must not contain duplicate entries"
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return "failed " + fe.Tag() + " check"
}

// MissingFields lists the JSON names of every field that fails Validate.
func MissingFields(rec Record) []string {
	var appErr apperrors.Error
	if err := Validate(rec); errors.As(err, &appErr) {
		return appErr.Fields().FieldNames()
	}
	return nil
}
