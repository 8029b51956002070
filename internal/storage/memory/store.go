// Package memory is an in-process property store. It backs tests, dry runs
// and the "memory" storage kind; nothing survives Close.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"propetl/internal/property"
	"propetl/internal/storage"
)

// ErrBatchDone is returned by a Batch used after Commit or Rollback.
var ErrBatchDone = errors.New("memory: batch already finished")

// Store keeps committed records keyed by folio number.
type Store struct {
	mu   sync.RWMutex
	rows map[string]*property.Record
	now  func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{rows: map[string]*property.Record{}, now: time.Now}
}

func init() {
	storage.Register("memory", func(context.Context, storage.Config) (storage.Store, error) {
		return New(), nil
	})
}

// EnsureSchema is a no-op.
func (s *Store) EnsureSchema(context.Context) error { return nil }

// Close drops nothing; the Store stays readable for callers that hold it.
func (s *Store) Close() {}

// Len reports the number of committed records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Get returns a copy of the committed record for folio, or nil.
func (s *Store) Get(folio string) *property.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rows[folio]; ok {
		return r.Clone()
	}
	return nil
}

// Begin starts a batch whose writes are invisible until Commit.
func (s *Store) Begin(ctx context.Context) (storage.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &batch{s: s, pending: map[string]*property.Record{}}, nil
}

// Scan visits matching committed records in folio order.
func (s *Store) Scan(ctx context.Context, f property.Filter, fn func(*property.Record) error) error {
	s.mu.RLock()
	keys := make([]string, 0, len(s.rows))
	for k, r := range s.rows {
		if f.Match(r) {
			keys = append(keys, k)
		}
	}
	snap := make([]*property.Record, 0, len(keys))
	sort.Strings(keys)
	for _, k := range keys {
		snap = append(snap, s.rows[k].Clone())
	}
	s.mu.RUnlock()

	for _, r := range snap {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

type batch struct {
	s       *Store
	pending map[string]*property.Record
	done    bool
}

func (b *batch) FindByKey(_ context.Context, folio string) (*property.Record, error) {
	if b.done {
		return nil, ErrBatchDone
	}
	if r, ok := b.pending[folio]; ok {
		return r.Clone(), nil
	}
	return b.s.Get(folio), nil
}

func (b *batch) Insert(_ context.Context, r *property.Record) error {
	if b.done {
		return ErrBatchDone
	}
	if existing, _ := b.FindByKey(context.Background(), r.FolioNumber); existing != nil {
		return fmt.Errorf("memory: insert %q: duplicate key", r.FolioNumber)
	}
	now := b.s.now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	b.pending[r.FolioNumber] = r.Clone()
	return nil
}

func (b *batch) Update(_ context.Context, r *property.Record) error {
	if b.done {
		return ErrBatchDone
	}
	existing, _ := b.FindByKey(context.Background(), r.FolioNumber)
	if existing == nil {
		return fmt.Errorf("memory: update %q: no such record", r.FolioNumber)
	}
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = b.s.now().UTC()
	b.pending[r.FolioNumber] = r.Clone()
	return nil
}

func (b *batch) Commit() error {
	if b.done {
		return ErrBatchDone
	}
	b.done = true
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	for k, r := range b.pending {
		b.s.rows[k] = r
	}
	return nil
}

func (b *batch) Rollback() error {
	b.done = true
	b.pending = nil
	return nil
}
