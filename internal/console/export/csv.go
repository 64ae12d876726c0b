// Package export renders row sets as CSV downloads.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// TimestampLayout formats the export time in file names.
const TimestampLayout = "2006-01-02_15-04-05"

// FileName returns "<base>_<YYYY-MM-DD_HH-mm-ss>.csv".
func FileName(base string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", base, now.Format(TimestampLayout))
}

// CSV renders rows, each a JSON object. The header is the keys of the first row
// in their original order; later rows are written in that column order. String
// values are always quoted with embedded quotes doubled, other values are
// written as their JSON text, missing values are empty. No rows gives an empty
// header line and nothing else. Header names are quoted only when they hold a
// separator, quote or line break.
func CSV(rows []json.RawMessage, base string, now time.Time) (string, []byte) {
	var buf bytes.Buffer
	if len(rows) == 0 {
		buf.WriteString("\n")
		return FileName(base, now), buf.Bytes()
	}

	var header []string
	gjson.ParseBytes(rows[0]).ForEach(func(key, _ gjson.Result) bool {
		header = append(header, key.String())
		return true
	})
	names := make([]string, 0, len(header))
	for _, key := range header {
		names = append(names, headerName(key))
	}
	buf.WriteString(strings.Join(names, ","))
	buf.WriteString("\n")

	for _, raw := range rows {
		doc := gjson.ParseBytes(raw)
		cells := make([]string, 0, len(header))
		for _, key := range header {
			cells = append(cells, cell(doc.Get(gjson.Escape(key))))
		}
		buf.WriteString(strings.Join(cells, ","))
		buf.WriteString("\n")
	}
	return FileName(base, now), buf.Bytes()
}

func cell(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return quote(v.Str)
	case gjson.Null:
		return ""
	case gjson.JSON:
		if v.IsArray() {
			parts := make([]string, 0)
			v.ForEach(func(_, e gjson.Result) bool {
				parts = append(parts, e.String())
				return true
			})
			return quote(strings.Join(parts, ", "))
		}
		return quote(v.Raw)
	}
	if !v.Exists() {
		return ""
	}
	return v.Raw
}

func headerName(key string) string {
	if strings.ContainsAny(key, ",\"\r\n") {
		return quote(key)
	}
	return key
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
