// Package redis implements workflow.Repository on Redis.
//
// Each workflow is stored as one JSON value under <prefix>wf:<id>. A sorted
// set under <prefix>index scores every id by its last save time so List does
// not need to scan keys. Workflow ids cannot reach the index key.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/meikuraledutech/workflow"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "workflow:"

// Store implements workflow.Repository using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires workflows ttl after their last save.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(id string) string {
	return s.prefix + "wf:" + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Save writes w and indexes it in one pipeline.
func (s *Store) Save(ctx context.Context, w *workflow.Workflow) (*workflow.Workflow, error) {
	out, err := w.Prepare(s.now())
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("redis: marshal workflow: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(out.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(out.UpdatedAt.UnixMicro()),
		Member: out.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis: save %s: %w", out.ID, err)
	}
	return out, nil
}

// Get loads the workflow stored under id.
func (s *Store) Get(ctx context.Context, id string) (*workflow.Workflow, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("%w: %q", workflow.ErrWorkflowNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %s: %w", id, err)
	}

	var w workflow.Workflow
	if err := json.Unmarshal(val, &w); err != nil {
		return nil, fmt.Errorf("redis: unmarshal %s: %w", id, err)
	}
	w.State = w.State.Clone()
	return &w, nil
}

// Delete removes the workflow and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete %s: %w", id, err)
	}
	return nil
}

// List returns summaries, most recent first. Index entries whose value has
// expired are pruned on the way.
func (s *Store) List(ctx context.Context) ([]workflow.Summary, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list: %w", err)
	}
	out := make([]workflow.Summary, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list: %w", err)
	}

	var stale []any
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var w workflow.Workflow
		if err := json.Unmarshal([]byte(raw), &w); err != nil {
			return nil, fmt.Errorf("redis: unmarshal %s: %w", ids[i], err)
		}
		out = append(out, w.Summarize())
	}
	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			return nil, fmt.Errorf("redis: prune index: %w", err)
		}
	}
	workflow.SortSummaries(out)
	return out, nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
