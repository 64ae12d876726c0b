package form

import (
	"fmt"
	"strings"

	"github.com/tansive/vaultconsole/internal/metadata"
)

// Check levels.
const (
	CheckSuccess = "success"
	CheckWarning = "warning"
	CheckError   = "error"
)

// Check is the outcome of one cross-check. Only Blocking checks stop a submission.
type Check struct {
	Name     string `json:"name"`
	Level    string `json:"level"`
	Message  string `json:"message"`
	Blocking bool   `json:"blocking"`
}

// CrossCheck compares already loaded records the form refers to. For a
// relationship it compares the business keys of the chosen source and target
// selections: a differing key count blocks submission, differing key names or
// order are reported but do not.
func (f *Form) CrossCheck() []Check {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.crossCheck()
}

func (f *Form) crossCheck() []Check {
	if f.spec.Kind != metadata.KindRelationship || f.deps.Collections == nil {
		return []Check{}
	}
	rs, ok := f.selected(metadata.KindSourceSelection, "rsname", "rsversion")
	if !ok {
		return []Check{}
	}
	rt, ok := f.selected(metadata.KindTargetSelection, "rtname", "rtversion")
	if !ok {
		return []Check{}
	}
	src := rs.(*metadata.SourceSelection).BKeys
	tgt := rt.(*metadata.TargetSelection).BKeys
	return CompareKeys(src, tgt)
}

// CompareKeys runs the business key checks on a source and a target key list.
func CompareKeys(src, tgt []string) []Check {
	if len(src) != len(tgt) {
		return []Check{{
			Name:     "bkey-count",
			Level:    CheckError,
			Message:  fmt.Sprintf("business key count mismatch: source has %d, target has %d", len(src), len(tgt)),
			Blocking: true,
		}}
	}
	checks := []Check{{
		Name:    "bkey-count",
		Level:   CheckSuccess,
		Message: fmt.Sprintf("business key counts match (%d)", len(src)),
	}}
	var diffs []string
	for i := range src {
		if !strings.EqualFold(src[i], tgt[i]) {
			diffs = append(diffs, fmt.Sprintf("position %d: %s vs %s", i+1, src[i], tgt[i]))
		}
	}
	if len(diffs) > 0 {
		checks = append(checks, Check{
			Name:    "bkey-order",
			Level:   CheckWarning,
			Message: "business key names differ at " + strings.Join(diffs, "; "),
		})
	} else {
		checks = append(checks, Check{
			Name:    "bkey-order",
			Level:   CheckSuccess,
			Message: "business key names and order match",
		})
	}
	return checks
}

// selected finds the record of kind k chosen through the name and version
// fields, within the form's scope.
func (f *Form) selected(k metadata.Kind, nameField, versionField string) (metadata.Record, bool) {
	want, ok := f.ancestors(scoped(map[string]string{nameField: "compname", versionField: "version"}))
	if !ok {
		return nil, false
	}
	return findRecord(f.deps.Collections.Records(k), want)
}
