// Package form implements the cascading selection form: an ordered chain of
// dependent selections whose options are derived from loaded collections, a
// remote validate step that unlocks submission, and optional repeatable rows
// that turn one submission into an ordered batch of records.
package form

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/tansive/vaultconsole/internal/console/table"
	"github.com/tansive/vaultconsole/internal/metadata"
	"github.com/tansive/vaultconsole/internal/vaultapi"
)

// State is the form's workflow state.
type State string

const (
	Editing    State = "editing"
	Validating State = "validating"
	Validated  State = "validated"
	Submitting State = "submitting"
)

// Collections gives read access to loaded collections.
type Collections interface {
	Records(k metadata.Kind) []metadata.Record
}

// Backend is the subset of the metadata backend a form calls.
type Backend interface {
	Test(ctx context.Context, rec metadata.Record) (*vaultapi.Result, error)
	Create(ctx context.Context, rec metadata.Record) (*vaultapi.Result, error)
	UpdateRecord(ctx context.Context, rec metadata.Record, changed []string) (*vaultapi.Result, error)
	Columns(ctx context.Context, k metadata.Kind, sel vaultapi.Selector) ([]string, error)
}

// Deps are the collaborators shared by every form.
type Deps struct {
	Collections Collections
	Backend     Backend
	// OnSubmitted runs after a fully successful submission so the caller can
	// refetch the kind's collection.
	OnSubmitted func(ctx context.Context, k metadata.Kind)
}

// Row is one repeatable sub-record.
type Row struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

// Form is one live form session. All methods are safe for concurrent use;
// backend calls are made without holding the lock.
type Form struct {
	mu       sync.Mutex
	id       string
	spec     *Spec
	deps     Deps
	state    State
	values   map[string]any
	rows     []Row
	remote   map[string][]string
	seq      map[string]uint64
	gen      uint64
	message  string
	recordID int64
	report   *BatchReport
	lastUsed time.Time
}

func newForm(id string, spec *Spec, deps Deps) *Form {
	f := &Form{id: id, spec: spec, deps: deps, seq: map[string]uint64{}}
	f.reset()
	return f
}

// reset restores defaults and returns to Editing. The caller holds mu.
func (f *Form) reset() {
	f.values = map[string]any{}
	for k, v := range f.spec.Defaults {
		f.values[k] = v
	}
	f.rows = nil
	if f.spec.Rows != nil {
		f.rows = []Row{{Version: 1}}
	}
	f.remote = map[string][]string{}
	for field := range f.seq {
		f.seq[field]++
	}
	f.gen++
	f.state = Editing
}

// ID is the session id the form is registered under.
func (f *Form) ID() string { return f.id }

// Kind is the record kind the form edits.
func (f *Form) Kind() metadata.Kind { return f.spec.Kind }

// UpdateMode reports whether the form edits an existing record.
func (f *Form) UpdateMode() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recordID != 0
}

// State returns the current workflow state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) touch() {
	f.lastUsed = time.Now()
}

// Value returns the current value of field.
func (f *Form) Value(field string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[field]
}

// Rows returns a copy of the rows.
func (f *Form) Rows() []Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.rows)
}

// prefill loads an existing record into the form for update mode.
func (f *Form) prefill(rec metadata.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fields := metadata.Fields(rec)
	for _, field := range f.spec.Fields() {
		if v, ok := fields[field]; ok {
			f.values[field] = normalize(f.spec, field, v)
		}
	}
	if r := f.spec.Rows; r != nil {
		f.rows = []Row{{
			Name:    stringOf(fields[r.NameField]),
			Version: intOf(fields[r.VersionField], 1),
		}}
		f.values[r.CountField] = 1
	}
	f.recordID = rec.RecordID()
}

// SetField changes one field. Changing a chain field clears every field after
// it in the chain and every leaf; changing any tracked field invalidates a
// completed validation.
func (f *Form) SetField(field string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touch()
	if f.spec.Rows != nil && field == f.spec.Rows.CountField {
		n := intOf(value, -1)
		return f.setRowCount(n)
	}
	if !f.spec.knows(field) {
		return ErrUnknownField.Msg("unknown form field: " + field)
	}
	if f.state == Submitting {
		return ErrBusy
	}
	value = normalize(f.spec, field, value)
	if reflect.DeepEqual(f.values[field], value) {
		return nil
	}
	level, idx, isLevel := f.spec.level(field)
	if isLevel && !isEmpty(value) {
		if err := f.checkOption(level, value); err != nil {
			return err
		}
	}
	f.values[field] = value
	if isLevel && idx < len(f.spec.Chain) {
		f.resetAfter(idx)
	}
	f.edited(field)
	return nil
}

// edited records a change to field. Only tracked fields start a new
// validation generation. The caller holds mu.
func (f *Form) edited(field string) {
	f.report = nil
	if !slices.Contains(f.spec.Tracked(), field) {
		return
	}
	f.gen++
	if f.state == Validated || f.state == Validating {
		f.state = Editing
		f.message = ""
	}
}

// resetAfter clears every chain field after index idx, every leaf, their remote
// options, and row names. The caller holds mu.
func (f *Form) resetAfter(idx int) {
	for _, l := range f.spec.Chain[idx+1:] {
		f.clear(l)
	}
	for _, l := range f.spec.Leaves {
		f.clear(l)
	}
	for i := range f.rows {
		f.rows[i].Name = ""
	}
}

func (f *Form) clear(l Level) {
	if l.Multi {
		f.values[l.Field] = []string{}
	} else {
		delete(f.values, l.Field)
	}
	delete(f.remote, l.Field)
	// any fetch still in flight for this field is now stale
	f.seq[l.Field]++
}

func (f *Form) checkOption(l Level, value any) error {
	var opts []string
	switch {
	case l.Derived() || l.Static != nil:
		opts = f.options(l)
	case l.Remote != nil:
		loaded, ok := f.remote[l.Field]
		if !ok {
			return nil
		}
		opts = loaded
	default:
		return nil
	}
	for _, v := range asList(value) {
		if !slices.Contains(opts, v) {
			return ErrInvalidOption.Msg(fmt.Sprintf("%q is not an available option for %s", v, l.Field))
		}
	}
	return nil
}

// Options returns the current option list of field.
func (f *Form) Options(field string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, _, ok := f.spec.level(field)
	if !ok {
		return nil, ErrUnknownField.Msg("field has no options: " + field)
	}
	return f.options(l), nil
}

// options computes the option list of l. The caller holds mu.
func (f *Form) options(l Level) []string {
	switch {
	case l.Static != nil:
		return slices.Clone(l.Static)
	case l.Remote != nil:
		return slices.Clone(f.remote[l.Field])
	case l.Derived():
		src := l.Source
		if l.SourceBy != "" {
			src = l.Sources[stringOf(f.values[l.SourceBy])]
		}
		if src == "" || f.deps.Collections == nil {
			return []string{}
		}
		ancestors, ok := f.ancestors(l.Match)
		if !ok {
			return []string{}
		}
		return DeriveOptions(f.deps.Collections.Records(src), ancestors, l.Key)
	}
	return []string{}
}

// ancestors translates form selections into a source-field filter. ok is false
// while any ancestor is unset.
func (f *Form) ancestors(match map[string]string) (map[string]string, bool) {
	out := make(map[string]string, len(match))
	for formField, srcField := range match {
		v := stringOf(f.values[formField])
		if v == "" {
			return nil, false
		}
		out[srcField] = v
	}
	return out, true
}

// Reconcile re-derives the chain against the current collections after they
// change. The first chain value that is no longer offered is cleared along with
// everything after it. It reports whether anything was cleared.
func (f *Form) Reconcile() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Submitting {
		return false
	}
	for i, l := range f.spec.Chain {
		if !l.Derived() {
			continue
		}
		v := stringOf(f.values[l.Field])
		if v == "" || slices.Contains(f.options(l), v) {
			continue
		}
		delete(f.values, l.Field)
		f.resetAfter(i)
		f.edited(l.Field)
		return true
	}
	return false
}

func normalize(spec *Spec, field string, v any) any {
	if l, _, ok := spec.level(field); ok {
		if l.Multi {
			return asList(v)
		}
		return stringOf(v)
	}
	switch t := v.(type) {
	case float64:
		if t == float64(int64(t)) {
			return int(t)
		}
	case []any:
		return asList(t)
	}
	return v
}

func asList(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		return slices.Clone(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, stringOf(e))
		}
		return out
	case string:
		if t == "" {
			return []string{}
		}
		return []string{t}
	}
	return []string{stringOf(v)}
}

func stringOf(v any) string {
	return table.CellString(table.CellText, v)
}

func intOf(v any, fallback int) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return fallback
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	}
	return false
}
