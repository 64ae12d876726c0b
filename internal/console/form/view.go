package form

import (
	"github.com/tansive/vaultconsole/internal/metadata"
)

// FieldView is one field as shown to the user.
type FieldView struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Value    any      `json:"value"`
	Options  []string `json:"options,omitempty"`
	Remote   bool     `json:"remote,omitempty"`
	Multi    bool     `json:"multi,omitempty"`
	Required bool     `json:"required"`
}

// RowView is one row with its own option list.
type RowView struct {
	Index   int      `json:"index"`
	Name    string   `json:"name"`
	Version int      `json:"version"`
	Options []string `json:"options"`
}

// View is the full state of a form session.
type View struct {
	ID          string       `json:"id"`
	Kind        string       `json:"kind"`
	Label       string       `json:"label"`
	Mode        string       `json:"mode"`
	RecordID    int64        `json:"record_id,omitempty"`
	State       State        `json:"state"`
	Fields      []FieldView  `json:"fields"`
	Rows        []RowView    `json:"rows,omitempty"`
	Missing     []string     `json:"missing"`
	CanValidate bool         `json:"can_validate"`
	CanSubmit   bool         `json:"can_submit"`
	Message     string       `json:"message,omitempty"`
	Checks      []Check      `json:"checks"`
	Report      *BatchReport `json:"report,omitempty"`
}

// Snapshot returns the current view of the form.
func (f *Form) Snapshot() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	required := map[string]bool{}
	for _, r := range metadata.RequiredFields(f.spec.Kind) {
		required[r] = true
	}
	v := View{
		ID:       f.id,
		Kind:     string(f.spec.Kind),
		Label:    f.spec.Kind.Label(),
		Mode:     "create",
		RecordID: f.recordID,
		State:    f.state,
		Message:  f.message,
		Report:   f.report,
		Checks:   f.crossCheck(),
	}
	if f.recordID != 0 {
		v.Mode = "update"
	}
	for _, name := range f.spec.Fields() {
		fv := FieldView{
			Name:     name,
			Label:    metadata.Label(name),
			Value:    f.values[name],
			Required: required[name],
		}
		if l, _, ok := f.spec.level(name); ok {
			fv.Options = f.options(l)
			fv.Remote = l.Remote != nil
			fv.Multi = l.Multi
		}
		if f.spec.Rows != nil && name == f.spec.Rows.CountField {
			fv.Value = len(f.rows)
			fv.Required = true
		}
		v.Fields = append(v.Fields, fv)
	}
	for i, row := range f.rows {
		v.Rows = append(v.Rows, RowView{
			Index:   i + 1,
			Name:    row.Name,
			Version: row.Version,
			Options: f.rowOptions(i),
		})
	}
	v.Missing = f.missing()
	if v.Missing == nil {
		v.Missing = []string{}
	}
	v.CanValidate = len(v.Missing) == 0 && (f.state == Editing || f.state == Validated)
	v.CanSubmit = f.state == Validated
	for _, c := range v.Checks {
		if c.Blocking {
			v.CanSubmit = false
		}
	}
	return v
}
