// Package pages describes how the console composes its pages: the
// collections a page loads, the forms it shows side by side, the embedded
// table tabs and whether the query panel is available.
package pages

import (
	"net/http"
	"slices"

	"github.com/tansive/vaultconsole/internal/common/apperrors"
	"github.com/tansive/vaultconsole/internal/console/form"
	"github.com/tansive/vaultconsole/internal/metadata"
)

// ErrPageNotFound is returned for an unknown page name.
var ErrPageNotFound apperrors.Error = apperrors.New("page not found").SetStatusCode(http.StatusNotFound)

// Page is one console page. Tabs are embedded tables, one per related kind.
type Page struct {
	Name  string          `json:"name"`
	Title string          `json:"title"`
	Forms []metadata.Kind `json:"forms"`
	Tabs  []metadata.Kind `json:"tabs"`
	Query bool            `json:"query"`
}

// Collections lists every collection the page needs loaded: the reference
// collections, each form's own kind and option sources, and the tab kinds.
func (p Page) Collections() []metadata.Kind {
	var out []metadata.Kind
	add := func(ks ...metadata.Kind) {
		for _, k := range ks {
			if !slices.Contains(out, k) {
				out = append(out, k)
			}
		}
	}
	add(metadata.ReferenceKinds()...)
	for _, k := range p.Forms {
		add(k)
		if spec, err := form.SpecFor(k); err == nil {
			add(spec.Sources()...)
		}
	}
	add(p.Tabs...)
	return out
}

var registry = []Page{
	{
		Name:  "hub",
		Title: "Hubs",
		Forms: []metadata.Kind{metadata.KindHub},
		Tabs:  []metadata.Kind{metadata.KindHub, metadata.KindLink, metadata.KindSatellite},
		Query: true,
	},
	{
		Name:  "link",
		Title: "Links",
		Forms: []metadata.Kind{metadata.KindLink},
		Tabs:  []metadata.Kind{metadata.KindLink, metadata.KindHub},
		Query: true,
	},
	{
		Name:  "satellite",
		Title: "Satellites",
		Forms: []metadata.Kind{metadata.KindSatellite, metadata.KindMultiActiveSatellite},
		Tabs:  []metadata.Kind{metadata.KindSatellite, metadata.KindMultiActiveSatellite, metadata.KindHub, metadata.KindLink},
		Query: true,
	},
	{
		Name:  "relationship",
		Title: "Relationships",
		Forms: []metadata.Kind{metadata.KindSourceSelection, metadata.KindTargetSelection, metadata.KindRelationship},
		Tabs:  []metadata.Kind{metadata.KindSourceSelection, metadata.KindTargetSelection, metadata.KindRelationship},
		Query: true,
	},
	{
		Name:  "pit",
		Title: "Point-in-time tables",
		Forms: []metadata.Kind{metadata.KindPointInTime},
		Tabs:  []metadata.Kind{metadata.KindPointInTime, metadata.KindHub, metadata.KindSatellite},
	},
	{
		Name:  "stage",
		Title: "Stage groups",
		Forms: []metadata.Kind{metadata.KindStageGroup1, metadata.KindStageGroup2},
		Tabs:  []metadata.Kind{metadata.KindStageGroup1, metadata.KindStageGroup2},
		Query: true,
	},
	{
		Name:  "bridge",
		Title: "Bridges",
		Forms: []metadata.Kind{metadata.KindBridge, metadata.KindMultiLinkBridge},
		Tabs:  []metadata.Kind{metadata.KindBridge, metadata.KindMultiLinkBridge, metadata.KindHub, metadata.KindLink},
	},
	{
		Name:  "dictionary",
		Title: "Data dictionary",
		Forms: []metadata.Kind{metadata.KindDataDictionary},
		Tabs:  []metadata.Kind{metadata.KindDataDictionary},
		Query: true,
	},
	{
		Name:  "fact",
		Title: "Fact tables",
		Forms: []metadata.Kind{metadata.KindFactTable},
		Tabs:  []metadata.Kind{metadata.KindFactTable, metadata.KindDataDictionary},
	},
}

// All returns every page in menu order.
func All() []Page {
	return slices.Clone(registry)
}

// Get looks a page up by name.
func Get(name string) (Page, error) {
	for _, p := range registry {
		if p.Name == name {
			return p, nil
		}
	}
	return Page{}, ErrPageNotFound.Msg("page not found: " + name)
}
