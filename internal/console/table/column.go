// Package table renders in-memory record collections as searchable, date-ranged,
// category-filtered, paginated grids with toggleable columns. Every render is a
// pure function of the records and the view state; nothing is cached between
// calls and input records are never modified.
package table

import (
	"fmt"
	"sort"
	"strings"
)

// CellKind selects how a column's values are rendered.
type CellKind int

const (
	CellText CellKind = iota
	CellList
	CellTimestamp
)

// String returns the lowercase name of the cell kind.
func (k CellKind) String() string {
	switch k {
	case CellList:
		return "list"
	case CellTimestamp:
		return "timestamp"
	default:
		return "text"
	}
}

// MarshalText lets column lists travel in JSON with readable cell kinds.
func (k CellKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Column maps a record field key to its display label.
type Column struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Cell  CellKind `json:"cell"`
}

// ColumnSet is the set of visible column keys.
type ColumnSet struct {
	visible map[string]struct{}
}

// AllColumns makes every column in cols visible.
func AllColumns(cols []Column) ColumnSet {
	cs := ColumnSet{visible: make(map[string]struct{}, len(cols))}
	for _, c := range cols {
		cs.visible[c.Key] = struct{}{}
	}
	return cs
}

// NoColumns is the default for tables embedded as tabs.
func NoColumns() ColumnSet {
	return ColumnSet{visible: map[string]struct{}{}}
}

// DefaultColumns returns NoColumns when embedded and AllColumns otherwise.
func DefaultColumns(cols []Column, embedded bool) ColumnSet {
	if embedded {
		return NoColumns()
	}
	return AllColumns(cols)
}

// ColumnsFromKeys makes exactly the listed keys visible. Keys that name no
// column are ignored.
func ColumnsFromKeys(cols []Column, keys []string) ColumnSet {
	known := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		known[c.Key] = struct{}{}
	}
	cs := NoColumns()
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if _, ok := known[k]; ok {
			cs.visible[k] = struct{}{}
		}
	}
	return cs
}

// Toggle flips the visibility of key.
func (cs *ColumnSet) Toggle(key string) {
	if cs.visible == nil {
		cs.visible = map[string]struct{}{}
	}
	if _, ok := cs.visible[key]; ok {
		delete(cs.visible, key)
		return
	}
	cs.visible[key] = struct{}{}
}

// Visible reports whether the column key is shown.
func (cs ColumnSet) Visible(key string) bool {
	_, ok := cs.visible[key]
	return ok
}

// Keys returns the visible keys sorted.
func (cs ColumnSet) Keys() []string {
	keys := make([]string, 0, len(cs.visible))
	for k := range cs.visible {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CellString renders a field value for display and search.
func CellString(kind CellKind, v any) string {
	switch kind {
	case CellTimestamp:
		s, _ := v.(string)
		return FormatTimestamp(s)
	case CellList:
		return joinList(v)
	}
	return valueString(v)
}

func joinList(v any) string {
	switch l := v.(type) {
	case []string:
		return strings.Join(l, ", ")
	case []any:
		parts := make([]string, 0, len(l))
		for _, e := range l {
			parts = append(parts, valueString(e))
		}
		return strings.Join(parts, ", ")
	}
	return valueString(v)
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any, []string:
		return joinList(t)
	case float64:
		// JSON numbers decode as float64; ids and versions are integral
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
	}
	return fmt.Sprintf("%v", v)
}
