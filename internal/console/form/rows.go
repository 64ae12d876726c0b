package form

import (
	"fmt"
	"slices"
)

// SetRowCount resizes the rows to n. Existing rows keep their index and
// values; new rows start as {name: "", version: 1}.
func (f *Form) SetRowCount(n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touch()
	return f.setRowCount(n)
}

func (f *Form) setRowCount(n int) error {
	r := f.spec.Rows
	if r == nil {
		return ErrNoRows
	}
	if f.state == Submitting {
		return ErrBusy
	}
	if f.recordID != 0 && n != 1 {
		return ErrRowCount.Msg("an existing record has exactly one row")
	}
	if n < r.Min || n > r.Max {
		return ErrRowCount.Msg(fmt.Sprintf("row count must be between %d and %d", r.Min, r.Max))
	}
	if n == len(f.rows) {
		return nil
	}
	if n < len(f.rows) {
		f.rows = slices.Clone(f.rows[:n])
	} else {
		for len(f.rows) < n {
			f.rows = append(f.rows, Row{Version: 1})
		}
	}
	f.values[r.CountField] = n
	f.edited(r.CountField)
	return nil
}

// RowCount returns the number of rows.
func (f *Form) RowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// RowOptions returns the names row index (1-based) may choose: every available
// name except those held by other rows. The row's own name stays in its list.
func (f *Form) RowOptions(index int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.spec.Rows == nil {
		return nil, ErrNoRows
	}
	i := index - 1
	if i < 0 || i >= len(f.rows) {
		return nil, ErrRowIndex
	}
	return f.rowOptions(i), nil
}

func (f *Form) rowOptions(i int) []string {
	others := make([]string, 0, len(f.rows))
	for j, row := range f.rows {
		if j != i && row.Name != "" {
			others = append(others, row.Name)
		}
	}
	self := f.rows[i].Name
	out := []string{}
	for _, name := range f.availableRowNames() {
		if !slices.Contains(others, name) || name == self {
			out = append(out, name)
		}
	}
	return out
}

// availableRowNames is the global option set shared by all rows.
func (f *Form) availableRowNames() []string {
	r := f.spec.Rows
	if f.deps.Collections == nil {
		return []string{}
	}
	ancestors, ok := f.ancestors(r.Match)
	if !ok {
		return []string{}
	}
	return DeriveOptions(f.deps.Collections.Records(r.Source), ancestors, r.Key)
}

// SetRow sets the name and version of row index (1-based). A name held by a
// sibling row is rejected.
func (f *Form) SetRow(index int, name string, version int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touch()
	r := f.spec.Rows
	if r == nil {
		return ErrNoRows
	}
	if f.state == Submitting {
		return ErrBusy
	}
	i := index - 1
	if i < 0 || i >= len(f.rows) {
		return ErrRowIndex
	}
	if version < 1 {
		return ErrInvalidOption.Msg("version must be at least 1")
	}
	if name != "" {
		for j, row := range f.rows {
			if j != i && row.Name == name {
				return ErrDuplicateRow.Msg(fmt.Sprintf("%q is already selected in row %d", name, j+1))
			}
		}
		if !slices.Contains(f.availableRowNames(), name) {
			return ErrInvalidOption.Msg(fmt.Sprintf("%q is not an available option for %s", name, r.NameField))
		}
	}
	next := Row{Name: name, Version: version}
	if f.rows[i] == next {
		return nil
	}
	f.rows[i] = next
	f.edited(r.CountField)
	return nil
}
