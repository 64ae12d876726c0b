package form

import (
	"slices"

	"github.com/tansive/vaultconsole/internal/metadata"
)

// Level is one field of a form's cascade chain or one of its leaf fields. Its
// options come from exactly one place: a loaded collection (Source or
// SourceBy), a fixed list (Static), the backend's column discovery (Remote),
// or nowhere for free entry.
type Level struct {
	Field string

	Source   metadata.Kind
	SourceBy string                   // field whose value picks the source kind
	Sources  map[string]metadata.Kind // SourceBy value -> kind
	Key      string                   // source field holding the option value
	Match    map[string]string        // ancestor form field -> source field

	Static []string
	Remote *Remote

	Multi bool // value is an ordered list
}

// Remote describes options loaded through column discovery.
type Remote struct {
	Kind      metadata.Kind
	NameField string // form field sent as the selector's compname, optional
}

// Derived reports whether options come from a loaded collection.
func (l Level) Derived() bool {
	return l.Source != "" || l.SourceBy != ""
}

// RowSpec describes a repeatable sub-record. Each row contributes its name and
// version to one record of the submission.
type RowSpec struct {
	CountField   string
	Min, Max     int
	NameField    string
	VersionField string
	Source       metadata.Kind
	Key          string
	Match        map[string]string // form field -> source field
	Copy         map[string]string // source field -> record field, copied from the row's referent
}

// Spec is the form definition for one kind.
type Spec struct {
	Kind     metadata.Kind
	Chain    []Level
	Leaves   []Level
	Defaults map[string]any
	Rows     *RowSpec
}

// Tracked is the dependency list whose changes invalidate a validation: every
// required field of the kind plus the row count.
func (s *Spec) Tracked() []string {
	var tracked []string
	for _, f := range metadata.RequiredFields(s.Kind) {
		// row names and versions are tracked through the count field
		if s.Rows != nil && (f == s.Rows.NameField || f == s.Rows.VersionField) {
			continue
		}
		tracked = append(tracked, f)
	}
	if s.Rows != nil {
		tracked = append(tracked, s.Rows.CountField)
	}
	return tracked
}

func (s *Spec) level(field string) (Level, int, bool) {
	for i, l := range s.Chain {
		if l.Field == field {
			return l, i, true
		}
	}
	for _, l := range s.Leaves {
		if l.Field == field {
			return l, len(s.Chain), true
		}
	}
	return Level{}, -1, false
}

// Fields lists every settable field.
func (s *Spec) Fields() []string {
	var out []string
	for _, l := range s.Chain {
		out = append(out, l.Field)
	}
	for _, l := range s.Leaves {
		out = append(out, l.Field)
	}
	for f := range s.Defaults {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	if s.Rows != nil {
		out = append(out, s.Rows.CountField)
	}
	slices.Sort(out[len(s.Chain)+len(s.Leaves):])
	return out
}

func (s *Spec) knows(field string) bool {
	return slices.Contains(s.Fields(), field)
}

// Sources lists the collections the form derives options from.
func (s *Spec) Sources() []metadata.Kind {
	var out []metadata.Kind
	add := func(k metadata.Kind) {
		if k != "" && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	for _, l := range s.Chain {
		add(l.Source)
		for _, k := range l.Sources {
			add(k)
		}
	}
	if s.Rows != nil {
		add(s.Rows.Source)
	}
	return out
}

var (
	scopeMatch = map[string]string{
		"projectshortname": "projectshortname",
		"dpname":           "dpname",
		"dsname":           "dsname",
	}
	components = map[string]metadata.Kind{"dh": metadata.KindHub, "dl": metadata.KindLink}
)

func scopeChain() []Level {
	return []Level{
		{Field: "projectshortname", Source: metadata.KindProject, Key: "projectshortname"},
		{
			Field:  "dpname",
			Source: metadata.KindDataProduct,
			Key:    "dataproductshortname",
			Match:  map[string]string{"projectshortname": "projectshortname"},
		},
		{
			Field:  "dsname",
			Source: metadata.KindDataset,
			Key:    "datasetshortname",
			Match:  map[string]string{"projectshortname": "projectshortname", "dpname": "dataproductshortname"},
		},
	}
}

// scoped returns the scope match extended with extra form field -> source field pairs.
func scoped(extra map[string]string) map[string]string {
	m := make(map[string]string, len(scopeMatch)+len(extra))
	for k, v := range scopeMatch {
		m[k] = v
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func chain(levels ...Level) []Level {
	return append(scopeChain(), levels...)
}

func defaults(extra map[string]any) map[string]any {
	m := map[string]any{"compname": "", "version": 1}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func rowSpec(count, name, version string, source metadata.Kind, match map[string]string) *RowSpec {
	return &RowSpec{
		CountField:   count,
		Min:          1,
		Max:          18,
		NameField:    name,
		VersionField: version,
		Source:       source,
		Key:          "compname",
		Match:        match,
	}
}

var specs = map[metadata.Kind]*Spec{
	metadata.KindHub: {
		Kind:     metadata.KindHub,
		Chain:    chain(),
		Leaves:   []Level{{Field: "bkfields", Remote: &Remote{Kind: metadata.KindHub}, Multi: true}},
		Defaults: defaults(map[string]any{"tenantid": "default", "bkcarea": "default"}),
	},
	metadata.KindLink: {
		Kind:     metadata.KindLink,
		Chain:    chain(),
		Defaults: defaults(nil),
		Rows: func() *RowSpec {
			r := rowSpec("hubnums", "hubname", "hubversion", metadata.KindHub, scopeMatch)
			r.Copy = map[string]string{"bkfields": "bkfields"}
			return r
		}(),
	},
	metadata.KindSatellite: {
		Kind: metadata.KindSatellite,
		Chain: chain(
			Level{Field: "parenttype", Static: []string{"dh", "dl"}},
			Level{Field: "parentname", SourceBy: "parenttype", Sources: components, Key: "compname", Match: scopeMatch},
		),
		Leaves:   []Level{{Field: "satlattr", Remote: &Remote{Kind: metadata.KindSatellite, NameField: "parentname"}, Multi: true}},
		Defaults: defaults(nil),
	},
	metadata.KindMultiActiveSatellite: {
		Kind: metadata.KindMultiActiveSatellite,
		Chain: chain(
			Level{Field: "parenttype", Static: []string{"dh", "dl"}},
			Level{Field: "parentname", SourceBy: "parenttype", Sources: components, Key: "compname", Match: scopeMatch},
		),
		Leaves: []Level{
			{Field: "satlattr", Remote: &Remote{Kind: metadata.KindMultiActiveSatellite, NameField: "parentname"}, Multi: true},
			{Field: "subseqattr", Remote: &Remote{Kind: metadata.KindMultiActiveSatellite, NameField: "parentname"}, Multi: true},
		},
		Defaults: defaults(nil),
	},
	metadata.KindSourceSelection: {
		Kind:  metadata.KindSourceSelection,
		Chain: chain(Level{Field: "srctabname"}),
		Leaves: []Level{
			{Field: "srctabfields", Remote: &Remote{Kind: metadata.KindSourceSelection, NameField: "srctabname"}, Multi: true},
			{Field: "bkeys", Remote: &Remote{Kind: metadata.KindSourceSelection, NameField: "srctabname"}, Multi: true},
		},
		Defaults: defaults(nil),
	},
	metadata.KindTargetSelection: {
		Kind:  metadata.KindTargetSelection,
		Chain: chain(Level{Field: "tgttabname"}),
		Leaves: []Level{
			{Field: "tgttabfields", Remote: &Remote{Kind: metadata.KindTargetSelection, NameField: "tgttabname"}, Multi: true},
			{Field: "bkeys", Remote: &Remote{Kind: metadata.KindTargetSelection, NameField: "tgttabname"}, Multi: true},
		},
		Defaults: defaults(nil),
	},
	metadata.KindRelationship: {
		Kind: metadata.KindRelationship,
		Chain: chain(
			Level{Field: "rsname", Source: metadata.KindSourceSelection, Key: "compname", Match: scopeMatch},
			Level{Field: "rsversion", Source: metadata.KindSourceSelection, Key: "version", Match: scoped(map[string]string{"rsname": "compname"})},
			Level{Field: "rtname", Source: metadata.KindTargetSelection, Key: "compname", Match: scopeMatch},
			Level{Field: "rtversion", Source: metadata.KindTargetSelection, Key: "version", Match: scoped(map[string]string{"rtname": "compname"})},
		),
		Defaults: defaults(nil),
	},
	metadata.KindPointInTime: {
		Kind:     metadata.KindPointInTime,
		Chain:    chain(Level{Field: "hubname", Source: metadata.KindHub, Key: "compname", Match: scopeMatch}),
		Defaults: defaults(map[string]any{"snapshotfreq": "daily"}),
		Rows:     rowSpec("satlnums", "satlname", "satlversion", metadata.KindSatellite, scoped(map[string]string{"hubname": "parentname"})),
	},
	metadata.KindStageGroup1: {
		Kind:     metadata.KindStageGroup1,
		Chain:    chain(Level{Field: "srctabname"}),
		Leaves:   []Level{{Field: "srctabfields", Remote: &Remote{Kind: metadata.KindStageGroup1, NameField: "srctabname"}, Multi: true}},
		Defaults: defaults(map[string]any{"loadtype": "full"}),
	},
	metadata.KindStageGroup2: {
		Kind:     metadata.KindStageGroup2,
		Chain:    chain(Level{Field: "sg1name", Source: metadata.KindStageGroup1, Key: "compname", Match: scopeMatch}),
		Leaves:   []Level{{Field: "transformfields", Remote: &Remote{Kind: metadata.KindStageGroup2, NameField: "sg1name"}, Multi: true}},
		Defaults: defaults(nil),
	},
	metadata.KindBridge: {
		Kind: metadata.KindBridge,
		Chain: chain(
			Level{Field: "hubname", Source: metadata.KindHub, Key: "compname", Match: scopeMatch},
			Level{Field: "linkname", Source: metadata.KindLink, Key: "compname", Match: scoped(map[string]string{"hubname": "hubname"})},
		),
		Defaults: defaults(nil),
	},
	metadata.KindMultiLinkBridge: {
		Kind:     metadata.KindMultiLinkBridge,
		Chain:    chain(Level{Field: "hubname", Source: metadata.KindHub, Key: "compname", Match: scopeMatch}),
		Defaults: defaults(nil),
		Rows:     rowSpec("linknums", "linkname", "linkversion", metadata.KindLink, scoped(map[string]string{"hubname": "hubname"})),
	},
	metadata.KindDataDictionary: {
		Kind:     metadata.KindDataDictionary,
		Chain:    chain(Level{Field: "compname"}),
		Leaves:   []Level{{Field: "colname", Remote: &Remote{Kind: metadata.KindDataDictionary, NameField: "compname"}}},
		Defaults: map[string]any{"version": 1, "datatype": "varchar", "description": ""},
	},
	metadata.KindFactTable: {
		Kind:  metadata.KindFactTable,
		Chain: chain(),
		Leaves: []Level{
			{Field: "measures", Remote: &Remote{Kind: metadata.KindFactTable}, Multi: true},
			{Field: "dimensions", Remote: &Remote{Kind: metadata.KindFactTable}, Multi: true},
		},
		Defaults: defaults(map[string]any{"grain": ""}),
	},
}

// SpecFor returns the form definition for k.
func SpecFor(k metadata.Kind) (*Spec, error) {
	s, ok := specs[k]
	if !ok {
		return nil, ErrNoFormForKind.Msg("no form for record kind " + string(k))
	}
	return s, nil
}
