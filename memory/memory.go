// Package memory implements workflow.Repository in process, on top of
// go-cache.
package memory

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/meikuraledutech/workflow"
)

const defaultCleanupInterval = 10 * time.Minute

// Store keeps workflows in memory. Saved workflows never expire unless a TTL
// is configured.
type Store struct {
	cache *gocache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires workflows ttl after their last save.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{ttl: gocache.NoExpiration, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = gocache.New(s.ttl, defaultCleanupInterval)
	return s
}

// Save stores a copy of w.
func (s *Store) Save(ctx context.Context, w *workflow.Workflow) (*workflow.Workflow, error) {
	out, err := w.Prepare(s.now())
	if err != nil {
		return nil, err
	}
	s.cache.Set(out.ID, out.Clone(), s.ttl)
	return out, nil
}

// Get returns a copy of the workflow stored under id.
func (s *Store) Get(ctx context.Context, id string) (*workflow.Workflow, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", workflow.ErrWorkflowNotFound, id)
	}
	w, ok := v.(*workflow.Workflow)
	if !ok {
		return nil, fmt.Errorf("memory: unexpected value %T under %q", v, id)
	}
	return w.Clone(), nil
}

// Delete removes the workflow stored under id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

// List returns the summaries of unexpired workflows, most recent first.
func (s *Store) List(ctx context.Context) ([]workflow.Summary, error) {
	items := s.cache.Items()
	out := make([]workflow.Summary, 0, len(items))
	for _, item := range items {
		if w, ok := item.Object.(*workflow.Workflow); ok {
			out = append(out, w.Summarize())
		}
	}
	workflow.SortSummaries(out)
	return out, nil
}
