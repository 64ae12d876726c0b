package metadata

import (
	"reflect"
	"strings"
)

// RequiredFields returns the JSON names of the fields of kind k whose validate
// tag starts with "required", in declaration order.
func RequiredFields(k Kind) []string {
	rec, err := New(k)
	if err != nil {
		return nil
	}
	var out []string
	collectRequired(reflect.TypeOf(rec).Elem(), &out)
	return out
}

func collectRequired(t reflect.Type, out *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			collectRequired(f.Type, out)
			continue
		}
		tag := f.Tag.Get("validate")
		if tag != "required" && !strings.HasPrefix(tag, "required,") {
			continue
		}
		if name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]; name != "" && name != "-" {
			*out = append(*out, name)
		}
	}
}
