package form

import (
	"github.com/tansive/vaultconsole/internal/console/table"
	"github.com/tansive/vaultconsole/internal/metadata"
)

// DeriveOptions returns the distinct values of key among records whose fields
// equal every entry of ancestors (source field -> selected value), in the order
// they are first seen. It has no side effects.
func DeriveOptions(records []metadata.Record, ancestors map[string]string, key string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, rec := range records {
		fields := metadata.Fields(rec)
		if !matchAll(fields, ancestors) {
			continue
		}
		v := table.CellString(table.CellText, fields[key])
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func matchAll(fields map[string]any, want map[string]string) bool {
	for k, v := range want {
		if table.CellString(table.CellText, fields[k]) != v {
			return false
		}
	}
	return true
}

// findRecord returns the first record matching every entry of want.
func findRecord(records []metadata.Record, want map[string]string) (metadata.Record, bool) {
	for _, rec := range records {
		if matchAll(metadata.Fields(rec), want) {
			return rec, true
		}
	}
	return nil, false
}
