package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/vaultconsole/internal/metadata"
	"github.com/tansive/vaultconsole/internal/vaultapi"
)

type updateCall struct {
	rec     metadata.Record
	changed []string
}

type fakeRecordBackend struct {
	records    map[metadata.Kind][]metadata.Record
	rejectTest map[string]string // compname -> backend message
	lists      int
	tested     []string
	created    []string
	updated    []updateCall
}

func compName(rec metadata.Record) string {
	s, _ := metadata.Fields(rec)["compname"].(string)
	return s
}

func (f *fakeRecordBackend) List(_ context.Context, k metadata.Kind) ([]metadata.Record, error) {
	f.lists++
	return f.records[k], nil
}

func (f *fakeRecordBackend) Test(_ context.Context, rec metadata.Record) (*vaultapi.Result, error) {
	name := compName(rec)
	f.tested = append(f.tested, name)
	if msg, ok := f.rejectTest[name]; ok {
		return &vaultapi.Result{Status: 0, Message: msg}, vaultapi.ErrRejected.Msg(msg)
	}
	return &vaultapi.Result{Status: 200, Message: "validation successful"}, nil
}

func (f *fakeRecordBackend) Create(_ context.Context, rec metadata.Record) (*vaultapi.Result, error) {
	f.created = append(f.created, compName(rec))
	return &vaultapi.Result{Status: 201, Message: "created"}, nil
}

func (f *fakeRecordBackend) UpdateRecord(_ context.Context, rec metadata.Record, changed []string) (*vaultapi.Result, error) {
	f.updated = append(f.updated, updateCall{rec: rec, changed: changed})
	return &vaultapi.Result{Status: 200, Message: "updated"}, nil
}

func hubDoc(name string) string {
	return `---
kind: dh
spec:
  projectshortname: p1
  dpname: sales
  dsname: orders
  compname: ` + name + `
  bkfields: [id]
  tenantid: t1
  bkcarea: crm
  version: 1
`
}

func mustManifests(t *testing.T, content string) []Manifest {
	t.Helper()
	ms, err := ParseManifests([]byte(content), "test.yaml")
	require.NoError(t, err)
	return ms
}

func TestCreateManifests(t *testing.T) {
	ms := mustManifests(t, hubDoc("customer")+hubDoc("bad")+hubDoc("order"))

	t.Run("stops at the first failure", func(t *testing.T) {
		b := &fakeRecordBackend{rejectTest: map[string]string{"bad": "hub already exists"}}
		outcomes := createManifests(context.Background(), b, ms, false)
		require.Len(t, outcomes, 2)
		assert.True(t, outcomes[0].OK)
		assert.False(t, outcomes[1].OK)
		assert.Equal(t, "hub already exists", outcomes[1].Error)
		assert.Equal(t, []string{"customer"}, b.created)
		assert.True(t, hasFailures(outcomes))
	})

	t.Run("continues when ignoring errors", func(t *testing.T) {
		b := &fakeRecordBackend{rejectTest: map[string]string{"bad": "hub already exists"}}
		outcomes := createManifests(context.Background(), b, ms, true)
		require.Len(t, outcomes, 3)
		assert.Equal(t, []string{"customer", "order"}, b.created)
		assert.Equal(t, []string{"customer", "bad", "order"}, b.tested)
	})

	t.Run("local check runs before the backend", func(t *testing.T) {
		b := &fakeRecordBackend{}
		incomplete := mustManifests(t, "kind: dh\nspec:\n  compname: lonely\n")
		outcomes := createManifests(context.Background(), b, incomplete, false)
		require.Len(t, outcomes, 1)
		assert.False(t, outcomes[0].OK)
		assert.Contains(t, outcomes[0].Error, "please fill in all required fields")
		assert.Empty(t, b.tested)
	})

	t.Run("manifests with an id are refused", func(t *testing.T) {
		b := &fakeRecordBackend{}
		withID := mustManifests(t, "kind: dh\nid: 3\nspec:\n  compname: customer\n")
		outcomes := createManifests(context.Background(), b, withID, false)
		require.Len(t, outcomes, 1)
		assert.Contains(t, outcomes[0].Error, "use update")
		assert.Empty(t, b.created)
	})
}

func TestValidateManifestsChecksEverything(t *testing.T) {
	ms := mustManifests(t, hubDoc("bad")+hubDoc("customer"))
	b := &fakeRecordBackend{rejectTest: map[string]string{"bad": "business key field unknown"}}

	outcomes := validateManifests(context.Background(), b, ms, false)
	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].OK)
	assert.Equal(t, "business key field unknown", outcomes[0].Error)
	assert.True(t, outcomes[1].OK)
	assert.Equal(t, "validation successful", outcomes[1].Message)
	assert.Empty(t, b.created)
}

func storedSatellite() *metadata.Satellite {
	return &metadata.Satellite{
		Scope:      metadata.Scope{ProjectShortName: "p1", DPName: "sales", DSName: "orders"},
		Component:  metadata.Component{CompName: "customer_sat"},
		ParentType: "dh",
		ParentName: "customer",
		SatlAttr:   []string{"name"},
		Version:    1,
		Audit:      metadata.Audit{ID: 42, CreateDate: "2024-03-01T10:00:00Z"},
	}
}

func TestUpdateManifests(t *testing.T) {
	b := &fakeRecordBackend{records: map[metadata.Kind][]metadata.Record{
		metadata.KindSatellite: {storedSatellite()},
	}}
	ms := mustManifests(t, `---
kind: ds
id: 42
spec:
  satlattr: [name, email]
---
kind: ds
id: 42
spec:
  version: 2
`)

	outcomes := updateManifests(context.Background(), b, ms, false)
	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].OK)
	assert.True(t, outcomes[1].OK)
	assert.Equal(t, 1, b.lists)

	require.Len(t, b.updated, 2)
	first := b.updated[0]
	assert.Equal(t, []string{"satlattr"}, first.changed)
	sat, ok := first.rec.(*metadata.Satellite)
	require.True(t, ok)
	assert.Equal(t, int64(42), sat.RecordID())
	assert.Equal(t, []string{"name", "email"}, sat.SatlAttr)
	assert.Equal(t, "customer_sat", sat.CompName)

	second := b.updated[1].rec.(*metadata.Satellite)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, []string{"name"}, second.SatlAttr)
}

func TestUpdateManifestsErrors(t *testing.T) {
	b := &fakeRecordBackend{records: map[metadata.Kind][]metadata.Record{
		metadata.KindSatellite: {storedSatellite()},
	}}

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no id", "kind: ds\nspec:\n  version: 2\n", "manifest has no id"},
		{"unknown id", "kind: ds\nid: 7\nspec:\n  version: 2\n", "no Satellite with id 7"},
		{"update breaks a required field", "kind: ds\nid: 42\nspec:\n  satlattr: []\n", "please fill in all required fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcomes := updateManifests(context.Background(), b, mustManifests(t, tt.content), false)
			require.Len(t, outcomes, 1)
			assert.False(t, outcomes[0].OK)
			assert.Contains(t, outcomes[0].Error, tt.wantErr)
		})
	}
	assert.Empty(t, b.updated)
}

func TestRecordDocumentAsManifest(t *testing.T) {
	doc, err := recordDocument(storedSatellite(), true)
	require.NoError(t, err)

	ms, err := ParseManifests(doc, "get")
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, metadata.KindSatellite, ms[0].Kind)
	assert.Equal(t, int64(42), ms[0].ID)
	assert.NotContains(t, ms[0].Fields(), "createdate")
	assert.NotContains(t, ms[0].Fields(), "id")
}
