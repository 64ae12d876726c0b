package form

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tansive/vaultconsole/internal/common/eventbus"
	"github.com/tansive/vaultconsole/internal/common/ids"
	"github.com/tansive/vaultconsole/internal/metadata"
)

// Registry holds the live form sessions, keyed by ULID.
type Registry struct {
	mu    sync.RWMutex
	forms map[string]*Form
	deps  Deps
}

// NewRegistry returns an empty registry whose forms share deps.
func NewRegistry(deps Deps) *Registry {
	return &Registry{forms: make(map[string]*Form), deps: deps}
}

// Open starts a create form for kind k.
func (r *Registry) Open(k metadata.Kind) (*Form, error) {
	spec, err := SpecFor(k)
	if err != nil {
		return nil, err
	}
	f := newForm(ids.SessionID(), spec, r.deps)
	f.touch()
	r.mu.Lock()
	r.forms[f.id] = f
	r.mu.Unlock()
	return f, nil
}

// OpenExisting starts an update form prefilled from the loaded record id.
func (r *Registry) OpenExisting(k metadata.Kind, id int64) (*Form, error) {
	spec, err := SpecFor(k)
	if err != nil {
		return nil, err
	}
	var rec metadata.Record
	if r.deps.Collections != nil {
		for _, candidate := range r.deps.Collections.Records(k) {
			if candidate.RecordID() == id {
				rec = candidate
				break
			}
		}
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}
	f := newForm(ids.SessionID(), spec, r.deps)
	f.prefill(rec)
	f.touch()
	r.mu.Lock()
	r.forms[f.id] = f
	r.mu.Unlock()
	return f, nil
}

// Get returns the form with id.
func (r *Registry) Get(id string) (*Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.forms[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return f, nil
}

// Close discards the form with id.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.forms[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.forms, id)
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.forms)
}

// Sweep closes sessions idle for longer than maxIdle and returns how many it closed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, f := range r.forms {
		f.mu.Lock()
		idle := f.lastUsed.Before(cutoff) && f.state != Submitting && f.state != Validating
		f.mu.Unlock()
		if idle {
			delete(r.forms, id)
			n++
		}
	}
	return n
}

// Follow reconciles open forms with collection changes published on bus until
// ctx ends. topicPrefix is the store's topic prefix.
func (r *Registry) Follow(ctx context.Context, bus *eventbus.EventBus, topicPrefix string) {
	events, unsubscribe := bus.Subscribe(topicPrefix+"*", 64)
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				k := metadata.Kind(ev.Topic[len(topicPrefix):])
				r.reconcile(ctx, k)
			}
		}
	}()
}

func (r *Registry) reconcile(ctx context.Context, k metadata.Kind) {
	r.mu.RLock()
	forms := make([]*Form, 0, len(r.forms))
	for _, f := range r.forms {
		if slices.Contains(f.spec.Sources(), k) {
			forms = append(forms, f)
		}
	}
	r.mu.RUnlock()
	for _, f := range forms {
		if f.Reconcile() {
			log.Ctx(ctx).Debug().Str("form", f.id).Str("kind", string(k)).Msg("form selections reset after collection change")
		}
	}
}
