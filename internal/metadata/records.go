package metadata

import (
	"fmt"
	"strings"
)

// Record is implemented by every kind's struct.
type Record interface {
	Kind() Kind
	RecordID() int64
	ProjectName() string
}

// Deriver fills the fields computed on the client before a record is sent.
type Deriver interface {
	Derive()
}

// Audit holds the server-populated fields. They are omitted from payloads when
// empty, so a candidate record never carries an id.
type Audit struct {
	ID         int64  `json:"id,omitempty"`
	CreateDate string `json:"createdate,omitempty"`
	UserEmail  string `json:"user_email,omitempty"`
}

func (a Audit) RecordID() int64 { return a.ID }

// Scope places a component inside a project, data product and dataset.
type Scope struct {
	ProjectShortName string `json:"projectshortname" validate:"required"`
	DPName           string `json:"dpname" validate:"required"`
	DSName           string `json:"dsname" validate:"required"`
}

func (s Scope) ProjectName() string { return s.ProjectShortName }

// Component is the classification and identity shared by all non-hub kinds.
type Component struct {
	CompType      string `json:"comptype"`
	CompName      string `json:"compname" validate:"required"`
	CompShortName string `json:"compshortname"`
}

func (c *Component) derive(k Kind, s Scope, version int) {
	c.CompType = string(k)
	c.CompShortName = CompShortName(version, s.ProjectShortName, s.DPName, s.DSName, c.CompName)
}

// CompShortName joins the scoping fields and the version into the lowercase
// short name used as a component's readable identity.
func CompShortName(version int, parts ...string) string {
	out := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		p = strings.Join(strings.Fields(strings.ToLower(p)), "_")
		if p != "" {
			out = append(out, p)
		}
	}
	out = append(out, fmt.Sprintf("v%d", version))
	return strings.Join(out, "_")
}

// HubKeyName is the key name derived for a hub.
func HubKeyName(compName string, version int) string {
	return fmt.Sprintf("%s_k%d", compName, version)
}

// Hub (DH) defines a business key.
type Hub struct {
	Scope
	CompType    string   `json:"comptype"`
	CompName    string   `json:"compname" validate:"required"`
	CompKeyName string   `json:"compkeyname"`
	BKFields    []string `json:"bkfields" validate:"required,min=1,unique"`
	TenantID    string   `json:"tenantid" validate:"required"`
	BKCArea     string   `json:"bkcarea" validate:"required"`
	Version     int      `json:"version" validate:"required,min=1"`
	Audit
}

func (*Hub) Kind() Kind { return KindHub }

func (h *Hub) Derive() {
	h.CompType = string(KindHub)
	h.CompKeyName = HubKeyName(h.CompName, h.Version)
}

// Link (DL) associates hubs; one record is stored per hub configuration.
type Link struct {
	Scope
	Component
	HubName    string   `json:"hubname" validate:"required"`
	HubVersion int      `json:"hubversion" validate:"required,min=1"`
	BKFields   []string `json:"bkfields" validate:"omitempty,unique"`
	Version    int      `json:"version" validate:"required,min=1"`
	Audit
}

func (*Link) Kind() Kind { return KindLink }

func (l *Link) Derive() { l.derive(KindLink, l.Scope, l.Version) }

// Satellite (DS) holds descriptive attributes of a hub or link.
type Satellite struct {
	Scope
	Component
	ParentType string   `json:"parenttype" validate:"required,oneof=dh dl"`
	ParentName string   `json:"parentname" validate:"required"`
	SatlAttr   []string `json:"satlattr" validate:"required,min=1,unique"`
	Version    int      `json:"version" validate:"required,min=1"`
	Audit
}

func (*Satellite) Kind() Kind { return KindSatellite }

func (s *Satellite) Derive() { s.derive(KindSatellite, s.Scope, s.Version) }

// MultiActiveSatellite (DSS) is a satellite with a sub-sequence key.
type MultiActiveSatellite struct {
	Scope
	Component
	ParentType string   `json:"parenttype" validate:"required,oneof=dh dl"`
	ParentName string   `json:"parentname" validate:"required"`
	SatlAttr   []string `json:"satlattr" validate:"required,min=1,unique"`
	SubSeqAttr []string `json:"subseqattr" validate:"required,min=1,unique"`
	Version    int      `json:"version" validate:"required,min=1"`
	Audit
}

func (*MultiActiveSatellite) Kind() Kind { return KindMultiActiveSatellite }

func (s *MultiActiveSatellite) Derive() { s.derive(KindMultiActiveSatellite, s.Scope, s.Version) }

// SourceSelection (RS) selects source fields and their business keys.
type SourceSelection struct {
	Scope
	Component
	SrcTabName   string   `json:"srctabname" validate:"required"`
	SrcTabFields []string `json:"srctabfields" validate:"required,min=1,unique"`
	BKeys        []string `json:"bkeys" validate:"required,min=1,unique"`
	Version      int      `json:"version" validate:"required,min=1"`
	Audit
}

func (*SourceSelection) Kind() Kind { return KindSourceSelection }

func (s *SourceSelection) Derive() { s.derive(KindSourceSelection, s.Scope, s.Version) }

// TargetSelection (RT) selects target fields and their business keys.
type TargetSelection struct {
	Scope
	Component
	TgtTabName   string   `json:"tgttabname" validate:"required"`
	TgtTabFields []string `json:"tgttabfields" validate:"required,min=1,unique"`
	BKeys        []string `json:"bkeys" validate:"required,min=1,unique"`
	Version      int      `json:"version" validate:"required,min=1"`
	Audit
}

func (*TargetSelection) Kind() Kind { return KindTargetSelection }

func (t *TargetSelection) Derive() { t.derive(KindTargetSelection, t.Scope, t.Version) }

// Relationship (STR) pairs one source selection with one target selection.
type Relationship struct {
	Scope
	Component
	RSName    string `json:"rsname" validate:"required"`
	RSVersion int    `json:"rsversion" validate:"required,min=1"`
	RTName    string `json:"rtname" validate:"required"`
	RTVersion int    `json:"rtversion" validate:"required,min=1"`
	Version   int    `json:"version" validate:"required,min=1"`
	Audit
}

func (*Relationship) Kind() Kind { return KindRelationship }

func (r *Relationship) Derive() { r.derive(KindRelationship, r.Scope, r.Version) }

// PointInTime (PT) snapshots a hub's satellites; one record per satellite row.
type PointInTime struct {
	Scope
	Component
	HubName      string `json:"hubname" validate:"required"`
	SatlName     string `json:"satlname" validate:"required"`
	SatlVersion  int    `json:"satlversion" validate:"required,min=1"`
	SnapshotFreq string `json:"snapshotfreq" validate:"required,oneof=daily weekly monthly"`
	Version      int    `json:"version" validate:"required,min=1"`
	Audit
}

func (*PointInTime) Kind() Kind { return KindPointInTime }

func (p *PointInTime) Derive() { p.derive(KindPointInTime, p.Scope, p.Version) }

// StageGroup1 (SG1) stages a source table.
type StageGroup1 struct {
	Scope
	Component
	SrcTabName   string   `json:"srctabname" validate:"required"`
	LoadType     string   `json:"loadtype" validate:"required,oneof=full delta"`
	SrcTabFields []string `json:"srctabfields" validate:"required,min=1,unique"`
	Version      int      `json:"version" validate:"required,min=1"`
	Audit
}

func (*StageGroup1) Kind() Kind { return KindStageGroup1 }

func (s *StageGroup1) Derive() { s.derive(KindStageGroup1, s.Scope, s.Version) }

// StageGroup2 (SG2) transforms the output of a stage group 1 component.
type StageGroup2 struct {
	Scope
	Component
	SG1Name         string   `json:"sg1name" validate:"required"`
	TransformFields []string `json:"transformfields" validate:"required,min=1,unique"`
	Version         int      `json:"version" validate:"required,min=1"`
	Audit
}

func (*StageGroup2) Kind() Kind { return KindStageGroup2 }

func (s *StageGroup2) Derive() { s.derive(KindStageGroup2, s.Scope, s.Version) }

// Bridge (BRG) joins a hub to one link.
type Bridge struct {
	Scope
	Component
	HubName  string `json:"hubname" validate:"required"`
	LinkName string `json:"linkname" validate:"required"`
	Version  int    `json:"version" validate:"required,min=1"`
	Audit
}

func (*Bridge) Kind() Kind { return KindBridge }

func (b *Bridge) Derive() { b.derive(KindBridge, b.Scope, b.Version) }

// MultiLinkBridge (BRG2) joins a hub to several links; one record per link row.
type MultiLinkBridge struct {
	Scope
	Component
	HubName     string `json:"hubname" validate:"required"`
	LinkName    string `json:"linkname" validate:"required"`
	LinkVersion int    `json:"linkversion" validate:"required,min=1"`
	Version     int    `json:"version" validate:"required,min=1"`
	Audit
}

func (*MultiLinkBridge) Kind() Kind { return KindMultiLinkBridge }

func (b *MultiLinkBridge) Derive() { b.derive(KindMultiLinkBridge, b.Scope, b.Version) }

// DataDictionary (DD) documents one column of a component table.
type DataDictionary struct {
	Scope
	Component
	ColName     string `json:"colname" validate:"required"`
	DataType    string `json:"datatype" validate:"required"`
	Description string `json:"description"`
	Version     int    `json:"version" validate:"required,min=1"`
	Audit
}

func (*DataDictionary) Kind() Kind { return KindDataDictionary }

func (d *DataDictionary) Derive() { d.derive(KindDataDictionary, d.Scope, d.Version) }

// FactTable (FT) defines measures over dimensions at a grain.
type FactTable struct {
	Scope
	Component
	Grain      string   `json:"grain" validate:"required"`
	Measures   []string `json:"measures" validate:"required,min=1,unique"`
	Dimensions []string `json:"dimensions" validate:"required,min=1,unique"`
	Version    int      `json:"version" validate:"required,min=1"`
	Audit
}

func (*FactTable) Kind() Kind { return KindFactTable }

func (f *FactTable) Derive() { f.derive(KindFactTable, f.Scope, f.Version) }

// Project is a tenant project.
type Project struct {
	ProjectShortName string `json:"projectshortname"`
	Title            string `json:"projectname"`
	Description      string `json:"description,omitempty"`
	Audit
}

func (*Project) Kind() Kind            { return KindProject }
func (p *Project) ProjectName() string { return p.ProjectShortName }

// DataProduct belongs to a project.
type DataProduct struct {
	ProjectShortName     string `json:"projectshortname"`
	DataProductShortName string `json:"dataproductshortname"`
	DataProductName      string `json:"dataproductname"`
	Audit
}

func (*DataProduct) Kind() Kind            { return KindDataProduct }
func (d *DataProduct) ProjectName() string { return d.ProjectShortName }

// Dataset belongs to a data product.
type Dataset struct {
	ProjectShortName     string `json:"projectshortname"`
	DataProductShortName string `json:"dataproductshortname"`
	DatasetShortName     string `json:"datasetshortname"`
	DatasetName          string `json:"datasetname"`
	Audit
}

func (*Dataset) Kind() Kind            { return KindDataset }
func (d *Dataset) ProjectName() string { return d.ProjectShortName }

// ProjectAssignment grants a user access to a project.
type ProjectAssignment struct {
	ProjectShortName string `json:"projectshortname"`
	Assignee         string `json:"useremail"`
	Role             string `json:"role"`
	Audit
}

func (*ProjectAssignment) Kind() Kind            { return KindProjectAssignment }
func (a *ProjectAssignment) ProjectName() string { return a.ProjectShortName }
