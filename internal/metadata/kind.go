// Package metadata defines the record kinds managed by the console. Every kind
// has its own struct, so required fields and payload shapes are checked per
// kind instead of travelling as untyped maps.
package metadata

import (
	"slices"
	"strings"
)

// Kind names a record kind.
type Kind string

const (
	KindHub                  Kind = "dh"
	KindLink                 Kind = "dl"
	KindSatellite            Kind = "ds"
	KindMultiActiveSatellite Kind = "dss"
	KindSourceSelection      Kind = "rs"
	KindTargetSelection      Kind = "rt"
	KindRelationship         Kind = "str"
	KindPointInTime          Kind = "pt"
	KindStageGroup1          Kind = "sg1"
	KindStageGroup2          Kind = "sg2"
	KindBridge               Kind = "brg"
	KindMultiLinkBridge      Kind = "brg2"
	KindDataDictionary       Kind = "dd"
	KindFactTable            Kind = "ft"
	KindProject              Kind = "project"
	KindDataProduct          Kind = "dataproduct"
	KindDataset              Kind = "dataset"
	KindProjectAssignment    Kind = "projectassignment"
)

type kindInfo struct {
	path      string
	label     string
	component bool
	multiRow  bool
}

var kinds = map[Kind]kindInfo{
	KindHub:                  {"rdvcompdh", "Hub", true, false},
	KindLink:                 {"rdvcompdl", "Link", true, true},
	KindSatellite:            {"rdvcompds", "Satellite", true, false},
	KindMultiActiveSatellite: {"rdvcompdss", "Multi-active satellite", true, false},
	KindSourceSelection:      {"rdvcomprs", "Source selection", true, false},
	KindTargetSelection:      {"rdvcomprt", "Target selection", true, false},
	KindRelationship:         {"rdvcompstr", "Relationship", true, false},
	KindPointInTime:          {"dvcomppt", "Point-in-time", true, true},
	KindStageGroup1:          {"dvcompsg1", "Stage group 1", true, false},
	KindStageGroup2:          {"dvcompsg2", "Stage group 2", true, false},
	KindBridge:               {"dvcompbrg", "Bridge", true, false},
	KindMultiLinkBridge:      {"dvcompbrg2", "Bridge (multi-link)", true, true},
	KindDataDictionary:       {"dvcompdd", "Data dictionary", true, false},
	KindFactTable:            {"dvcompft", "Fact table", true, false},
	KindProject:              {"project", "Projects", false, false},
	KindDataProduct:          {"dataproduct", "Data products", false, false},
	KindDataset:              {"dataset", "Datasets", false, false},
	KindProjectAssignment:    {"projectassignment", "Project assignments", false, false},
}

// Path is the backend entity path segment.
func (k Kind) Path() string { return kinds[k].path }

// Label is the human-readable name.
func (k Kind) Label() string { return kinds[k].label }

// IsComponent reports whether records of this kind can be created through a
// form. Reference kinds are list-only.
func (k Kind) IsComponent() bool { return kinds[k].component }

// IsMultiRow reports whether one form submission produces one record per row.
func (k Kind) IsMultiRow() bool { return kinds[k].multiRow }

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// ParseKind accepts a kind name or its entity path, case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if k := Kind(s); k.Valid() {
		return k, nil
	}
	for k, info := range kinds {
		if info.path == s {
			return k, nil
		}
	}
	return "", ErrUnknownKind.Msg("unknown record kind: " + s)
}

// AllKinds returns every kind, components first, in a stable order.
func AllKinds() []Kind {
	return append(ComponentKinds(), ReferenceKinds()...)
}

// ComponentKinds returns the form-backed kinds in display order.
func ComponentKinds() []Kind {
	return []Kind{
		KindHub, KindLink, KindSatellite, KindMultiActiveSatellite,
		KindSourceSelection, KindTargetSelection, KindRelationship,
		KindPointInTime, KindStageGroup1, KindStageGroup2,
		KindBridge, KindMultiLinkBridge, KindDataDictionary, KindFactTable,
	}
}

// ReferenceKinds returns the list-only kinds.
func ReferenceKinds() []Kind {
	return []Kind{KindProject, KindDataProduct, KindDataset, KindProjectAssignment}
}

func isReference(k Kind) bool {
	return slices.Contains(ReferenceKinds(), k)
}
