package table

import (
	"fmt"
	"strings"
	"time"
)

// PageSize is the fixed number of rows per page.
const PageSize = 10

// Filter is the table's filter state. Empty values are inactive.
type Filter struct {
	Search     string
	StartDate  time.Time
	EndDate    time.Time
	Categories map[string]string // field key -> required value; "" means all
}

// DateRangeActive reports whether both bounds are set.
func (f Filter) DateRangeActive() bool {
	return !f.StartDate.IsZero() && !f.EndDate.IsZero()
}

// State is everything a render depends on besides the records.
type State struct {
	Filter  Filter
	Visible ColumnSet
	Page    int
}

// View describes how one record type is shown.
type View[T any] struct {
	Columns        []Column
	TimestampField string
	Fields         func(T) map[string]any
}

// Page is one rendered page.
type Page[T any] struct {
	Headers    []Column   `json:"headers"`
	Rows       []T        `json:"-"`
	Cells      [][]string `json:"cells"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	Filtered   int        `json:"filtered"`
	Total      int        `json:"total"`
	From       int        `json:"from"`
	To         int        `json:"to"`
	HasPrev    bool       `json:"has_prev"`
	HasNext    bool       `json:"has_next"`
	Footer     string     `json:"footer"`
}

// Matches reports whether one record passes every active filter.
func (v View[T]) Matches(rec T, f Filter) bool {
	return v.matchFields(v.Fields(rec), f)
}

func (v View[T]) matchFields(fields map[string]any, f Filter) bool {
	if term := strings.TrimSpace(f.Search); term != "" {
		term = strings.ToLower(term)
		found := false
		for _, val := range fields {
			if strings.Contains(strings.ToLower(valueString(val)), term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DateRangeActive() {
		raw, _ := fields[v.TimestampField].(string)
		ts, ok := ParseTimestamp(raw)
		if !ok {
			return false
		}
		day := civilDay(ts)
		if day.Before(civilDay(f.StartDate)) || day.After(civilDay(f.EndDate)) {
			return false
		}
	}
	for key, want := range f.Categories {
		if want == "" {
			continue
		}
		if valueString(fields[key]) != want {
			return false
		}
	}
	return true
}

// Filter returns the records passing every active filter, in input order.
func (v View[T]) Filter(records []T, f Filter) []T {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if v.Matches(rec, f) {
			out = append(out, rec)
		}
	}
	return out
}

// TotalPages is ceil(n/PageSize), and 1 for an empty set.
func TotalPages(n int) int {
	if n <= 0 {
		return 1
	}
	return (n + PageSize - 1) / PageSize
}

// ClampPage bounds page to [1, TotalPages(n)].
func ClampPage(page, n int) int {
	if page < 1 {
		return 1
	}
	if tp := TotalPages(n); page > tp {
		return tp
	}
	return page
}

// Paginate slices one page out of filtered.
func (v View[T]) Paginate(filtered []T, page int) Page[T] {
	n := len(filtered)
	page = ClampPage(page, n)
	start := (page - 1) * PageSize
	end := min(start+PageSize, n)

	p := Page[T]{
		Page:       page,
		TotalPages: TotalPages(n),
		Filtered:   n,
		HasPrev:    page > 1,
		HasNext:    page < TotalPages(n),
	}
	if n > 0 {
		p.Rows = filtered[start:end:end]
		p.From = start + 1
		p.To = end
	}
	p.Footer = Footer(p.From, p.To, n)
	return p
}

// Footer is the "Showing" line under the grid.
func Footer(from, to, filtered int) string {
	if filtered == 0 {
		return "Showing 0 of 0"
	}
	return fmt.Sprintf("Showing %d-%d of %d", from, to, filtered)
}

// Render filters, paginates and formats the visible cells.
func (v View[T]) Render(records []T, st State) Page[T] {
	p := v.Paginate(v.Filter(records, st.Filter), st.Page)
	p.Total = len(records)
	p.Headers = make([]Column, 0, len(v.Columns))
	for _, c := range v.Columns {
		if st.Visible.Visible(c.Key) {
			p.Headers = append(p.Headers, c)
		}
	}
	p.Cells = make([][]string, 0, len(p.Rows))
	for _, rec := range p.Rows {
		fields := v.Fields(rec)
		row := make([]string, 0, len(p.Headers))
		for _, c := range p.Headers {
			row = append(row, CellString(c.Cell, fields[c.Key]))
		}
		p.Cells = append(p.Cells, row)
	}
	return p
}
