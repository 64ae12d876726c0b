package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tansive/vaultconsole/internal/console/table"
)

// dateLayout is the layout of --from and --to.
const dateLayout = "2006-01-02"

// tableFlags are the filter options shared by list and export.
type tableFlags struct {
	search  string
	from    string
	to      string
	page    int
	columns []string
	filters []string
}

func (f *tableFlags) bind(cmd *cobra.Command, paged bool) {
	cmd.Flags().StringVarP(&f.search, "query", "q", "", "Case-insensitive search across all fields")
	cmd.Flags().StringVar(&f.from, "from", "", "Start date (YYYY-MM-DD); needs --to")
	cmd.Flags().StringVar(&f.to, "to", "", "End date (YYYY-MM-DD); needs --from")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "Exact match on a column, as key=value (repeatable)")
	if paged {
		cmd.Flags().IntVarP(&f.page, "page", "p", 1, "Page number")
		cmd.Flags().StringSliceVar(&f.columns, "columns", nil, "Comma-separated column keys to show")
	}
}

// state builds the table state for cols. Unknown filter keys are errors so a
// typo does not silently match everything.
func (f *tableFlags) state(cols []table.Column) (table.State, error) {
	st := table.State{
		Filter: table.Filter{Search: f.search, Categories: map[string]string{}},
		Page:   f.page,
	}
	if st.Page == 0 {
		st.Page = 1
	}
	for _, b := range []struct {
		name string
		val  string
		dst  *time.Time
	}{{"from", f.from, &st.Filter.StartDate}, {"to", f.to, &st.Filter.EndDate}} {
		if b.val == "" {
			continue
		}
		t, err := time.Parse(dateLayout, b.val)
		if err != nil {
			return st, fmt.Errorf("invalid --%s date, expected YYYY-MM-DD: %s", b.name, b.val)
		}
		*b.dst = t
	}

	known := map[string]bool{}
	for _, c := range cols {
		known[c.Key] = true
	}
	for _, kv := range f.filters {
		key, val, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return st, fmt.Errorf("invalid --filter %q, expected key=value", kv)
		}
		if !known[key] {
			return st, fmt.Errorf("unknown filter field: %s", key)
		}
		st.Filter.Categories[key] = val
	}

	if len(f.columns) > 0 {
		for _, key := range f.columns {
			if !known[strings.TrimSpace(key)] {
				return st, fmt.Errorf("unknown column: %s", key)
			}
		}
		st.Visible = table.ColumnsFromKeys(cols, f.columns)
	} else {
		st.Visible = table.AllColumns(cols)
	}
	return st, nil
}
