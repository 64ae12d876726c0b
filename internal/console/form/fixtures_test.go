package form

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/tansive/vaultconsole/internal/metadata"
	"github.com/tansive/vaultconsole/internal/vaultapi"
)

type fakeCollections struct {
	mu   sync.Mutex
	data map[metadata.Kind][]metadata.Record
}

func (c *fakeCollections) Records(k metadata.Kind) []metadata.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[k]
}

func (c *fakeCollections) set(k metadata.Kind, recs []metadata.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[k] = recs
}

func scope(p, dp, ds string) metadata.Scope {
	return metadata.Scope{ProjectShortName: p, DPName: dp, DSName: ds}
}

func newCollections() *fakeCollections {
	orders := scope("p1", "sales", "orders")
	return &fakeCollections{data: map[metadata.Kind][]metadata.Record{
		metadata.KindProject: {
			&metadata.Project{ProjectShortName: "p1"},
			&metadata.Project{ProjectShortName: "p2"},
		},
		metadata.KindDataProduct: {
			&metadata.DataProduct{ProjectShortName: "p1", DataProductShortName: "sales"},
			&metadata.DataProduct{ProjectShortName: "p1", DataProductShortName: "hr"},
			&metadata.DataProduct{ProjectShortName: "p2", DataProductShortName: "sales"},
		},
		metadata.KindDataset: {
			&metadata.Dataset{ProjectShortName: "p1", DataProductShortName: "sales", DatasetShortName: "orders"},
			&metadata.Dataset{ProjectShortName: "p1", DataProductShortName: "sales", DatasetShortName: "returns"},
			&metadata.Dataset{ProjectShortName: "p1", DataProductShortName: "sales", DatasetShortName: "orders"},
			&metadata.Dataset{ProjectShortName: "p1", DataProductShortName: "hr", DatasetShortName: "staff"},
			&metadata.Dataset{ProjectShortName: "p2", DataProductShortName: "sales", DatasetShortName: "orders2"},
		},
		metadata.KindHub: {
			&metadata.Hub{Scope: orders, CompName: "cust", BKFields: []string{"id", "region"}, Version: 1, Audit: metadata.Audit{ID: 1}},
			&metadata.Hub{Scope: orders, CompName: "prod", BKFields: []string{"sku"}, Version: 1, Audit: metadata.Audit{ID: 2}},
			&metadata.Hub{Scope: orders, CompName: "store", BKFields: []string{"store_id"}, Version: 1, Audit: metadata.Audit{ID: 3}},
			&metadata.Hub{Scope: scope("p1", "hr", "staff"), CompName: "employee", BKFields: []string{"emp_id"}, Version: 1, Audit: metadata.Audit{ID: 4}},
		},
		metadata.KindSatellite: {
			&metadata.Satellite{Scope: orders, Component: metadata.Component{CompName: "custsat"}, ParentType: "dh", ParentName: "cust", Version: 1},
			&metadata.Satellite{Scope: orders, Component: metadata.Component{CompName: "custaddr"}, ParentType: "dh", ParentName: "cust", Version: 1},
			&metadata.Satellite{Scope: orders, Component: metadata.Component{CompName: "prodsat"}, ParentType: "dh", ParentName: "prod", Version: 1},
		},
		metadata.KindSourceSelection: {
			&metadata.SourceSelection{Scope: orders, Component: metadata.Component{CompName: "rs_orders"}, BKeys: []string{"order_id", "line"}, Version: 1},
		},
		metadata.KindTargetSelection: {
			&metadata.TargetSelection{Scope: orders, Component: metadata.Component{CompName: "rt_two"}, BKeys: []string{"order_id", "line_no"}, Version: 1},
			&metadata.TargetSelection{Scope: orders, Component: metadata.Component{CompName: "rt_three"}, BKeys: []string{"a", "b", "c"}, Version: 1},
		},
	}}
}

type fakeBackend struct {
	mu        sync.Mutex
	tests     []string
	creates   []string
	updates   []string
	testFn    func(rec metadata.Record) error
	createFn  func(n int, rec metadata.Record) error
	columnsFn func(ctx context.Context, k metadata.Kind, sel vaultapi.Selector) ([]string, error)
}

func payload(rec metadata.Record) string {
	b, err := metadata.Payload(rec)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func (b *fakeBackend) Test(_ context.Context, rec metadata.Record) (*vaultapi.Result, error) {
	b.mu.Lock()
	b.tests = append(b.tests, payload(rec))
	fn := b.testFn
	b.mu.Unlock()
	if fn != nil {
		if err := fn(rec); err != nil {
			return nil, err
		}
	}
	return &vaultapi.Result{Status: 200, Message: "looks good"}, nil
}

func (b *fakeBackend) Create(_ context.Context, rec metadata.Record) (*vaultapi.Result, error) {
	b.mu.Lock()
	b.creates = append(b.creates, payload(rec))
	n := len(b.creates)
	fn := b.createFn
	b.mu.Unlock()
	if fn != nil {
		if err := fn(n, rec); err != nil {
			return nil, err
		}
	}
	return &vaultapi.Result{Status: 201, Message: "created"}, nil
}

func (b *fakeBackend) UpdateRecord(_ context.Context, rec metadata.Record, _ []string) (*vaultapi.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, payload(rec))
	return &vaultapi.Result{Status: 200, Message: "updated"}, nil
}

func (b *fakeBackend) Columns(ctx context.Context, k metadata.Kind, sel vaultapi.Selector) ([]string, error) {
	if b.columnsFn != nil {
		return b.columnsFn(ctx, k, sel)
	}
	return []string{"id", "region", "name"}, nil
}

func (b *fakeBackend) counts() (int, int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tests), len(b.creates), len(b.updates)
}

var errBackend = errors.New("backend said no")
