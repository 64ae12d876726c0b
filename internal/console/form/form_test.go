package form

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/vaultconsole/internal/common/eventbus"
	"github.com/tansive/vaultconsole/internal/metadata"
	"github.com/tansive/vaultconsole/internal/vaultapi"
)

func setup(t *testing.T) (*Registry, *fakeCollections, *fakeBackend) {
	t.Helper()
	cols := newCollections()
	be := &fakeBackend{}
	return NewRegistry(Deps{Collections: cols, Backend: be}), cols, be
}

func open(t *testing.T, r *Registry, k metadata.Kind) *Form {
	t.Helper()
	f, err := r.Open(k)
	require.NoError(t, err)
	return f
}

func setAll(t *testing.T, f *Form, kv ...any) {
	t.Helper()
	for i := 0; i < len(kv); i += 2 {
		require.NoError(t, f.SetField(kv[i].(string), kv[i+1]), kv[i])
	}
}

func TestDeriveOptions(t *testing.T) {
	cols := newCollections()
	datasets := cols.Records(metadata.KindDataset)
	assert.Equal(t, []string{"orders", "returns"},
		DeriveOptions(datasets, map[string]string{"projectshortname": "p1", "dataproductshortname": "sales"}, "datasetshortname"))
	assert.Equal(t, []string{"orders", "returns", "staff", "orders2"},
		DeriveOptions(datasets, nil, "datasetshortname"))
	assert.Empty(t, DeriveOptions(datasets, map[string]string{"projectshortname": "p9"}, "datasetshortname"))
	assert.Equal(t, []string{"1"}, DeriveOptions(cols.Records(metadata.KindHub), map[string]string{"compname": "cust"}, "version"))
}

func TestCascadeReset(t *testing.T) {
	r, _, _ := setup(t)
	f := open(t, r, metadata.KindHub)

	opts, err := f.Options("projectshortname")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, opts)

	setAll(t, f, "projectshortname", "p1", "dpname", "sales", "dsname", "orders")
	_, err = f.LoadRemoteOptions(context.Background(), "bkfields")
	require.NoError(t, err)
	setAll(t, f, "bkfields", []any{"id", "region"}, "compname", "cust")

	opts, _ = f.Options("dsname")
	assert.Equal(t, []string{"orders", "returns"}, opts)

	// changing the data product clears the dataset and every leaf
	require.NoError(t, f.SetField("dpname", "hr"))
	assert.Nil(t, f.Value("dsname"))
	assert.Equal(t, []string{}, f.Value("bkfields"))
	bk, _ := f.Options("bkfields")
	assert.Empty(t, bk)
	assert.Equal(t, "cust", f.Value("compname"), "plain fields are not part of the chain")

	opts, _ = f.Options("dsname")
	assert.Equal(t, []string{"staff"}, opts)

	// changing the project clears everything below it
	require.NoError(t, f.SetField("projectshortname", "p2"))
	assert.Nil(t, f.Value("dpname"))
	assert.Nil(t, f.Value("dsname"))
	opts, _ = f.Options("dpname")
	assert.Equal(t, []string{"sales"}, opts)
	opts, _ = f.Options("dsname")
	assert.Empty(t, opts, "no options until every ancestor is chosen")
}

func TestSetFieldRejects(t *testing.T) {
	r, _, _ := setup(t)
	f := open(t, r, metadata.KindHub)
	assert.ErrorIs(t, f.SetField("nope", "x"), ErrUnknownField)
	assert.ErrorIs(t, f.SetField("projectshortname", "p9"), ErrInvalidOption)
	require.NoError(t, f.SetField("projectshortname", "p1"))
	assert.ErrorIs(t, f.SetField("dpname", "marketing"), ErrInvalidOption)

	setAll(t, f, "dpname", "sales", "dsname", "orders")
	_, err := f.LoadRemoteOptions(context.Background(), "bkfields")
	require.NoError(t, err)
	assert.ErrorIs(t, f.SetField("bkfields", []string{"id", "ghost"}), ErrInvalidOption)
}

func fillHub(t *testing.T, f *Form) {
	t.Helper()
	setAll(t, f, "projectshortname", "p1", "dpname", "sales", "dsname", "orders")
	_, err := f.LoadRemoteOptions(context.Background(), "bkfields")
	require.NoError(t, err)
	setAll(t, f,
		"compname", "cust",
		"bkfields", []string{"id", "region"},
		"tenantid", "default",
		"bkcarea", "default",
		"version", 1,
	)
}

func TestHubCreateScenario(t *testing.T) {
	r, _, be := setup(t)
	var refreshed []metadata.Kind
	r.deps.OnSubmitted = func(_ context.Context, k metadata.Kind) { refreshed = append(refreshed, k) }
	f := open(t, r, metadata.KindHub)
	fillHub(t, f)

	snap := f.Snapshot()
	assert.True(t, snap.CanValidate)
	assert.False(t, snap.CanSubmit)
	assert.Empty(t, snap.Missing)

	msg, err := f.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "looks good", msg)
	assert.Equal(t, Validated, f.State())
	assert.True(t, f.Snapshot().CanSubmit)

	want := `{"projectshortname":"p1","dpname":"sales","dsname":"orders","comptype":"dh","compname":"cust",
		"compkeyname":"cust_k1","bkfields":["id","region"],"tenantid":"default","bkcarea":"default","version":1}`
	require.Len(t, be.tests, 1)
	assert.JSONEq(t, want, be.tests[0])

	report, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Complete())
	assert.Equal(t, []RowResult{{Row: 1, Message: "created"}}, report.Succeeded)
	require.Len(t, be.creates, 1)
	assert.JSONEq(t, want, be.creates[0])

	// a complete submission resets the form for a fresh record
	assert.Equal(t, Editing, f.State())
	assert.Nil(t, f.Value("projectshortname"))
	assert.Equal(t, "default", f.Value("tenantid"))
	assert.Equal(t, []metadata.Kind{metadata.KindHub}, refreshed)
}

func TestRequiredFieldsBlockValidate(t *testing.T) {
	r, _, be := setup(t)
	f := open(t, r, metadata.KindHub)
	require.NoError(t, f.SetField("projectshortname", "p1"))

	_, err := f.Validate(context.Background())
	assert.ErrorIs(t, err, metadata.ErrRequiredFieldMissing)
	tests, _, _ := be.counts()
	assert.Zero(t, tests, "the backend is not contacted")
	assert.Equal(t, Editing, f.State())
	assert.ElementsMatch(t, []string{"dpname", "dsname", "compname", "bkfields"}, f.Missing())
	assert.False(t, f.Snapshot().CanValidate)
}

func TestValidateRejected(t *testing.T) {
	r, _, be := setup(t)
	be.testFn = func(metadata.Record) error { return vaultapi.ErrRejected.Msg("component already exists") }
	f := open(t, r, metadata.KindHub)
	fillHub(t, f)
	_, err := f.Validate(context.Background())
	assert.EqualError(t, err, "component already exists")
	assert.Equal(t, Editing, f.State())
}

func TestValidateInvalidation(t *testing.T) {
	r, _, _ := setup(t)
	f := open(t, r, metadata.KindDataDictionary)
	setAll(t, f,
		"projectshortname", "p1", "dpname", "sales", "dsname", "orders",
		"compname", "orders_hub", "colname", "order_id",
	)
	_, err := f.Validate(context.Background())
	require.NoError(t, err)
	require.Equal(t, Validated, f.State())

	// description is not in the tracked list
	assert.NotContains(t, f.spec.Tracked(), "description")
	require.NoError(t, f.SetField("description", "primary key of the order"))
	assert.Equal(t, Validated, f.State())

	// setting a tracked field to the value it already has is not a change
	require.NoError(t, f.SetField("datatype", "varchar"))
	assert.Equal(t, Validated, f.State())

	require.NoError(t, f.SetField("datatype", "bigint"))
	assert.Equal(t, Editing, f.State())
	_, err = f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotValidated)
}

func TestEditDuringValidateDiscardsResult(t *testing.T) {
	r, _, be := setup(t)
	started := make(chan struct{})
	release := make(chan struct{})
	be.testFn = func(metadata.Record) error {
		close(started)
		<-release
		return nil
	}
	f := open(t, r, metadata.KindHub)
	fillHub(t, f)

	done := make(chan error, 1)
	go func() {
		_, err := f.Validate(context.Background())
		done <- err
	}()
	<-started
	assert.Equal(t, Validating, f.State())
	_, err := f.Validate(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, f.SetField("compname", "customer"))
	close(release)
	assert.ErrorIs(t, <-done, ErrValidationDiscarded)
	assert.Equal(t, Editing, f.State())

	be.testFn = nil
	_, err = f.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Validated, f.State())
}

func TestUntrackedEditDuringValidateKeepsResult(t *testing.T) {
	r, _, be := setup(t)
	started := make(chan struct{})
	release := make(chan struct{})
	be.testFn = func(metadata.Record) error {
		close(started)
		<-release
		return nil
	}
	f := open(t, r, metadata.KindDataDictionary)
	setAll(t, f,
		"projectshortname", "p1", "dpname", "sales", "dsname", "orders",
		"compname", "orders_hub", "colname", "order_id",
	)

	done := make(chan error, 1)
	go func() {
		_, err := f.Validate(context.Background())
		done <- err
	}()
	<-started
	require.NoError(t, f.SetField("description", "customer id"))
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, Validated, f.State())

	_, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Editing, f.State())
	_, creates, _ := be.counts()
	assert.Equal(t, 1, creates)
	assert.Contains(t, be.creates[0], "customer id")
}

func TestStaleOptionsAreDropped(t *testing.T) {
	r, _, be := setup(t)
	type call struct {
		reply chan []string
	}
	calls := make(chan call, 2)
	be.columnsFn = func(ctx context.Context, k metadata.Kind, sel vaultapi.Selector) ([]string, error) {
		c := call{reply: make(chan []string)}
		calls <- c
		return <-c.reply, nil
	}
	f := open(t, r, metadata.KindHub)
	setAll(t, f, "projectshortname", "p1", "dpname", "sales", "dsname", "orders")

	type result struct {
		opts []string
		err  error
	}
	first := make(chan result, 1)
	go func() {
		o, err := f.LoadRemoteOptions(context.Background(), "bkfields")
		first <- result{o, err}
	}()
	c1 := <-calls

	second := make(chan result, 1)
	go func() {
		o, err := f.LoadRemoteOptions(context.Background(), "bkfields")
		second <- result{o, err}
	}()
	c2 := <-calls

	// the newer request resolves first, the older one afterwards
	c2.reply <- []string{"new_id"}
	res2 := <-second
	require.NoError(t, res2.err)
	c1.reply <- []string{"old_id"}
	res1 := <-first
	assert.ErrorIs(t, res1.err, ErrStaleOptions)

	opts, _ := f.Options("bkfields")
	assert.Equal(t, []string{"new_id"}, opts)
}

func TestAncestorChangeMakesFetchStale(t *testing.T) {
	r, _, be := setup(t)
	started := make(chan struct{})
	release := make(chan struct{})
	be.columnsFn = func(context.Context, metadata.Kind, vaultapi.Selector) ([]string, error) {
		close(started)
		<-release
		return []string{"id"}, nil
	}
	f := open(t, r, metadata.KindHub)
	setAll(t, f, "projectshortname", "p1", "dpname", "sales", "dsname", "orders")
	done := make(chan error, 1)
	go func() {
		_, err := f.LoadRemoteOptions(context.Background(), "bkfields")
		done <- err
	}()
	<-started
	require.NoError(t, f.SetField("dsname", "returns"))
	close(release)
	assert.ErrorIs(t, <-done, ErrStaleOptions)
	opts, _ := f.Options("bkfields")
	assert.Empty(t, opts)
}

func TestRemoteOptionsNeedAncestors(t *testing.T) {
	r, _, _ := setup(t)
	f := open(t, r, metadata.KindHub)
	_, err := f.LoadRemoteOptions(context.Background(), "bkfields")
	assert.ErrorIs(t, err, ErrAncestorUnset)
	_, err = f.LoadRemoteOptions(context.Background(), "dpname")
	assert.ErrorIs(t, err, ErrNotRemote)
}

func TestRemoteOptionsDuringSubmit(t *testing.T) {
	r, _, be := setup(t)
	f := open(t, r, metadata.KindHub)
	fillHub(t, f)
	_, err := f.Validate(context.Background())
	require.NoError(t, err)

	fetching := make(chan struct{})
	columns := make(chan []string)
	be.columnsFn = func(context.Context, metadata.Kind, vaultapi.Selector) ([]string, error) {
		close(fetching)
		return <-columns, nil
	}
	loaded := make(chan error, 1)
	go func() {
		_, err := f.LoadRemoteOptions(context.Background(), "bkfields")
		loaded <- err
	}()
	<-fetching

	creating := make(chan struct{})
	release := make(chan struct{})
	be.createFn = func(int, metadata.Record) error {
		close(creating)
		<-release
		return nil
	}
	submitted := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		submitted <- err
	}()
	<-creating
	assert.Equal(t, Submitting, f.State())

	_, err = f.LoadRemoteOptions(context.Background(), "bkfields")
	assert.ErrorIs(t, err, ErrBusy)

	// the in-flight list would drop both selected business keys
	columns <- []string{"name"}
	assert.ErrorIs(t, <-loaded, ErrBusy)
	f.mu.Lock()
	assert.Equal(t, []string{"id", "region"}, asList(f.values["bkfields"]))
	f.mu.Unlock()

	close(release)
	require.NoError(t, <-submitted)
	_, creates, _ := be.counts()
	require.Equal(t, 1, creates)
	assert.Contains(t, be.creates[0], "region")
}

func TestSatelliteRowResize(t *testing.T) {
	r, _, _ := setup(t)
	f := open(t, r, metadata.KindPointInTime)
	setAll(t, f, "projectshortname", "p1", "dpname", "sales", "dsname", "orders", "hubname", "cust")
	require.Equal(t, 1, f.RowCount())
	require.NoError(t, f.SetRow(1, "custsat", 2))

	require.NoError(t, f.SetField("satlnums", 3))
	assert.Equal(t, []Row{
		{Name: "custsat", Version: 2},
		{Name: "", Version: 1},
		{Name: "", Version: 1},
	}, f.Rows())

	require.NoError(t, f.SetRowCount(1))
	assert.Equal(t, []Row{{Name: "custsat", Version: 2}}, f.Rows())

	assert.ErrorIs(t, f.SetRowCount(0), ErrRowCount)
	assert.ErrorIs(t, f.SetRowCount(19), ErrRowCount)
	assert.ErrorIs(t, f.SetRow(2, "custaddr", 1), ErrRowIndex)
}

func TestRowSelfExclusion(t *testing.T) {
	r, _, _ := setup(t)
	f := open(t, r, metadata.KindLink)
	setAll(t, f, "projectshortname", "p1", "dpname", "sales", "dsname", "orders", "compname", "sale_link")
	require.NoError(t, f.SetRowCount(3))
	require.NoError(t, f.SetRow(1, "cust", 1))
	require.NoError(t, f.SetRow(2, "prod", 1))

	all := []string{"cust", "prod", "store"}
	rows := f.Rows()
	for i := range rows {
		got, err := f.RowOptions(i + 1)
		require.NoError(t, err)
		var want []string
		for _, name := range all {
			held := false
			for j, other := range rows {
				if j != i && other.Name == name {
					held = true
				}
			}
			if !held {
				want = append(want, name)
			}
		}
		assert.Equal(t, want, got, "row %d", i+1)
	}

	assert.ErrorIs(t, f.SetRow(3, "cust", 1), ErrDuplicateRow)
	assert.ErrorIs(t, f.SetRow(3, "employee", 1), ErrInvalidOption)
	require.NoError(t, f.SetRow(1, "cust", 1), "a row may keep its own value")
	require.NoError(t, f.SetRow(3, "store", 1))

	// no two rows hold the same name
	seen := map[string]bool{}
	for _, row := range f.Rows() {
		assert.False(t, seen[row.Name])
		seen[row.Name] = true
	}
}

func TestOrderedBatchStopsAtFirstFailure(t *testing.T) {
	r, _, be := setup(t)
	be.createFn = func(n int, _ metadata.Record) error {
		if n == 2 {
			return vaultapi.ErrRejected.Msg("hub prod is not active")
		}
		return nil
	}
	var refreshed int
	r.deps.OnSubmitted = func(context.Context, metadata.Kind) { refreshed++ }
	f := open(t, r, metadata.KindLink)
	setAll(t, f, "projectshortname", "p1", "dpname", "sales", "dsname", "orders", "compname", "sale_link")
	require.NoError(t, f.SetRowCount(3))
	require.NoError(t, f.SetRow(1, "cust", 1))
	require.NoError(t, f.SetRow(2, "prod", 1))
	require.NoError(t, f.SetRow(3, "store", 1))

	_, err := f.Validate(context.Background())
	require.NoError(t, err)
	require.Len(t, be.tests, 3)
	assert.Contains(t, be.tests[0], `"bkfields":["id","region"]`, "hub keys are copied from the referenced hub")
	assert.Contains(t, be.tests[0], `"compshortname":"p1_sales_orders_sale_link_v1"`)

	report, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitFailed)
	require.NotNil(t, report)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, []RowResult{{Row: 1, Message: "created"}}, report.Succeeded)
	assert.Equal(t, &RowFailure{Row: 2, Error: "hub prod is not active"}, report.Failed)
	assert.Equal(t, []int{3}, report.Skipped)
	assert.Equal(t, "row 2 failed: hub prod is not active; 1 saved, 1 not sent", report.Summary())

	require.Len(t, be.creates, 2, "row 3 is never sent")
	assert.Contains(t, be.creates[0], `"hubname":"cust"`)
	assert.Contains(t, be.creates[1], `"hubname":"prod"`)
	assert.Equal(t, Editing, f.State(), "a failed submission returns to editing, not validated")
	assert.Equal(t, 1, refreshed, "the collection is refetched because row 1 was persisted")
	assert.Equal(t, "cust", f.Rows()[0].Name, "the form keeps its values after a failure")
	assert.NotNil(t, f.Snapshot().Report)
}

func TestRelationshipCrossCheck(t *testing.T) {
	r, _, _ := setup(t)
	f := open(t, r, metadata.KindRelationship)
	setAll(t, f,
		"projectshortname", "p1", "dpname", "sales", "dsname", "orders",
		"rsname", "rs_orders", "rsversion", "1",
		"rtname", "rt_three", "rtversion", 1,
		"compname", "orders_rel",
	)
	checks := f.CrossCheck()
	require.Len(t, checks, 1)
	assert.True(t, checks[0].Blocking)
	assert.Equal(t, "business key count mismatch: source has 2, target has 3", checks[0].Message)

	_, err := f.Validate(context.Background())
	require.NoError(t, err, "the cross-check does not block validation")
	assert.False(t, f.Snapshot().CanSubmit)
	_, err = f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrCrossCheckFailed)

	require.NoError(t, f.SetField("rtname", "rt_two"))
	require.NoError(t, f.SetField("rtversion", "1"))
	checks = f.CrossCheck()
	require.Len(t, checks, 2)
	assert.Equal(t, CheckSuccess, checks[0].Level)
	assert.Equal(t, CheckWarning, checks[1].Level)
	assert.False(t, checks[1].Blocking, "key name differences are advisory")
	assert.Contains(t, checks[1].Message, "position 2: line vs line_no")

	_, err = f.Validate(context.Background())
	require.NoError(t, err)
	report, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Complete())
}

func TestCompareKeys(t *testing.T) {
	checks := CompareKeys([]string{"ID", "Region"}, []string{"id", "region"})
	require.Len(t, checks, 2)
	assert.Equal(t, CheckSuccess, checks[1].Level)
}

func TestUpdateMode(t *testing.T) {
	r, _, be := setup(t)
	f, err := r.OpenExisting(metadata.KindHub, 2)
	require.NoError(t, err)
	assert.True(t, f.UpdateMode())
	assert.Equal(t, "prod", f.Value("compname"))
	assert.Equal(t, []string{"sku"}, f.Value("bkfields"))
	assert.Equal(t, "update", f.Snapshot().Mode)

	setAll(t, f, "tenantid", "t1", "bkcarea", "emea")
	_, err = f.Validate(context.Background())
	require.NoError(t, err)
	_, err = f.Submit(context.Background())
	require.NoError(t, err)
	_, creates, updates := be.counts()
	assert.Zero(t, creates)
	require.Equal(t, 1, updates)
	assert.Contains(t, be.updates[0], `"id":2`)
	assert.Contains(t, be.updates[0], `"tenantid":"t1"`)

	_, err = r.OpenExisting(metadata.KindHub, 999)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRegistry(t *testing.T) {
	r, _, _ := setup(t)
	f := open(t, r, metadata.KindSatellite)
	got, err := r.Get(f.ID())
	require.NoError(t, err)
	assert.Same(t, f, got)
	assert.Equal(t, 1, r.Len())

	_, err = r.Open(metadata.KindProject)
	assert.ErrorIs(t, err, ErrNoFormForKind)

	require.NoError(t, r.Close(f.ID()))
	_, err = r.Get(f.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, r.Close(f.ID()), ErrSessionNotFound)

	stale := open(t, r, metadata.KindHub)
	stale.mu.Lock()
	stale.lastUsed = time.Now().Add(-time.Hour)
	stale.mu.Unlock()
	fresh := open(t, r, metadata.KindHub)
	assert.Equal(t, 1, r.Sweep(30*time.Minute))
	_, err = r.Get(fresh.ID())
	assert.NoError(t, err)
}

func TestEveryComponentHasAForm(t *testing.T) {
	for _, k := range metadata.ComponentKinds() {
		spec, err := SpecFor(k)
		require.NoError(t, err, k)
		for _, field := range spec.Tracked() {
			assert.True(t, spec.knows(field), "%s: tracked field %s is not settable", k, field)
		}
	}
}

func TestReconcileAfterCollectionChange(t *testing.T) {
	r, cols, _ := setup(t)
	f := open(t, r, metadata.KindBridge)
	setAll(t, f, "projectshortname", "p1", "dpname", "sales", "dsname", "orders", "hubname", "prod")
	cols.set(metadata.KindHub, cols.Records(metadata.KindHub)[:1])

	assert.True(t, f.Reconcile())
	assert.Nil(t, f.Value("hubname"))
	assert.Equal(t, "orders", f.Value("dsname"))
	assert.False(t, f.Reconcile())
}

func TestFollowReconcilesOnPublishedChange(t *testing.T) {
	r, cols, _ := setup(t)
	bus := eventbus.New()
	defer bus.Shutdown()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Follow(ctx, bus, "collections.")

	f := open(t, r, metadata.KindHub)
	setAll(t, f, "projectshortname", "p1", "dpname", "sales", "dsname", "returns")
	cols.set(metadata.KindDataset, cols.Records(metadata.KindDataset)[:1])

	require.Eventually(t, func() bool {
		bus.Publish("collections.dataset", nil, 10*time.Millisecond)
		return f.Value("dsname") == nil
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "sales", f.Value("dpname"))
}
