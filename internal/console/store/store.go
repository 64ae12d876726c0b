// Package store is the console's application-state container. It mirrors the
// backend's collections, one per record kind, and announces every change on the
// event bus.
//
// Merge policy: every successful fetch replaces the whole collection
// (ReplaceAll). Fetches are not ordered against each other, so the last one to
// resolve wins; there is no partial merge and no version reconciliation.
package store

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/anand-gl/jsoncanonicalizer"
	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"github.com/tansive/vaultconsole/internal/common/eventbus"
	"github.com/tansive/vaultconsole/internal/metadata"
)

// MergeStrategy names how a fetched collection is combined with the held one.
type MergeStrategy string

// ReplaceAll discards the held collection in favour of the fetched one.
const ReplaceAll MergeStrategy = "replace-all"

// TopicPrefix prefixes change topics; the full topic is "collections.<kind>".
const TopicPrefix = "collections."

// Topic is the event bus topic for changes to kind k.
func Topic(k metadata.Kind) string {
	return TopicPrefix + string(k)
}

// Loader fetches a full collection.
type Loader interface {
	List(ctx context.Context, k metadata.Kind) ([]metadata.Record, error)
}

// Collection is the held snapshot of one kind.
type Collection struct {
	Kind        metadata.Kind     `json:"kind"`
	Records     []metadata.Record `json:"-"`
	Revision    uint64            `json:"revision"`
	FetchedAt   time.Time         `json:"fetched_at"`
	Fingerprint string            `json:"fingerprint"`
}

// Change is published when a collection's content changes.
type Change struct {
	Kind     metadata.Kind
	Revision uint64
	Count    int
}

// Store holds the collections.
type Store struct {
	mu          sync.RWMutex
	collections map[metadata.Kind]*Collection
	loader      Loader
	bus         *eventbus.EventBus
	strategy    MergeStrategy
	now         func() time.Time
	retryDelay  time.Duration
}

// New returns an empty store that fetches through loader and publishes
// collection changes on bus. bus may be nil.
func New(loader Loader, bus *eventbus.EventBus) *Store {
	return &Store{
		collections: make(map[metadata.Kind]*Collection),
		loader:      loader,
		bus:         bus,
		strategy:    ReplaceAll,
		now:         time.Now,
		retryDelay:  time.Second,
	}
}

// Strategy reports the merge strategy in use.
func (s *Store) Strategy() MergeStrategy {
	return s.strategy
}

// Get returns a copy of the collection header for k. The records slice is
// shared and must not be modified.
func (s *Store) Get(k metadata.Kind) (Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[k]
	if !ok {
		return Collection{Kind: k}, false
	}
	return *c, true
}

// Records returns the held records for k, empty when never loaded.
func (s *Store) Records(k metadata.Kind) []metadata.Record {
	c, _ := s.Get(k)
	if c.Records == nil {
		return []metadata.Record{}
	}
	return c.Records
}

// Scoped returns the records of k whose project is in projects. An empty
// projects list returns everything.
func (s *Store) Scoped(k metadata.Kind, projects []string) []metadata.Record {
	recs := s.Records(k)
	if len(projects) == 0 {
		return recs
	}
	out := make([]metadata.Record, 0, len(recs))
	for _, r := range recs {
		if slices.Contains(projects, r.ProjectName()) {
			out = append(out, r)
		}
	}
	return out
}

// AssignedProjects returns the projects assigned to user, in first-seen order.
func (s *Store) AssignedProjects(user string) []string {
	var out []string
	for _, r := range s.Records(metadata.KindProjectAssignment) {
		a, ok := r.(*metadata.ProjectAssignment)
		if !ok || a.Assignee != user || slices.Contains(out, a.ProjectShortName) {
			continue
		}
		out = append(out, a.ProjectShortName)
	}
	return out
}

// Replace installs recs as the collection for k. It reports whether the content
// changed; unchanged content only bumps FetchedAt and publishes nothing.
func (s *Store) Replace(k metadata.Kind, recs []metadata.Record) (bool, error) {
	fp, err := Fingerprint(recs)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	c, ok := s.collections[k]
	if !ok {
		c = &Collection{Kind: k}
		s.collections[k] = c
	}
	c.FetchedAt = s.now()
	if ok && c.Fingerprint == fp {
		s.mu.Unlock()
		return false, nil
	}
	c.Records = recs
	c.Fingerprint = fp
	c.Revision++
	ev := Change{Kind: k, Revision: c.Revision, Count: len(recs)}
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(Topic(k), ev, 100*time.Millisecond)
	}
	return true, nil
}

// Refresh fetches each kind in turn and replaces its collection. A failed fetch
// leaves that collection as it was; the remaining kinds are still fetched.
func (s *Store) Refresh(ctx context.Context, kinds ...metadata.Kind) error {
	var errs []error
	for _, k := range kinds {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		recs, err := s.loader.List(ctx, k)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("kind", string(k)).Msg("collection fetch failed")
			errs = append(errs, err)
			continue
		}
		changed, err := s.Replace(k, recs)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		log.Ctx(ctx).Debug().Str("kind", string(k)).Int("count", len(recs)).Bool("changed", changed).Msg("collection refreshed")
	}
	if len(errs) > 0 {
		return ErrRefreshFailed.Err(errs...)
	}
	return nil
}

// Warm loads kinds at startup, retrying with backoff until every kind has loaded
// once or attempts run out.
func (s *Store) Warm(ctx context.Context, kinds []metadata.Kind, attempts uint) error {
	pending := slices.Clone(kinds)
	return retry.Do(func() error {
		var failed []metadata.Kind
		var lastErr error
		for _, k := range pending {
			if err := s.Refresh(ctx, k); err != nil {
				failed = append(failed, k)
				lastErr = err
			}
		}
		pending = failed
		return lastErr
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(s.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().Err(err).Uint("attempt", n+1).Msg("collection warm-up failed, retrying")
		}))
}

// Fingerprint is the hex SHA-512 of the canonical JSON of recs.
func Fingerprint(recs []metadata.Record) (string, error) {
	if recs == nil {
		recs = []metadata.Record{}
	}
	raw, err := json.Marshal(recs)
	if err != nil {
		return "", ErrStoreError.Err(err)
	}
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return "", ErrStoreError.Err(err)
	}
	sum := sha512.Sum512(canonical)
	return hex.EncodeToString(sum[:]), nil
}
