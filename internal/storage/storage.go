// Package storage defines the store boundary used by the ingestion engine and
// the export path, plus a small factory so callers stay backend-agnostic.
//
// Backends register themselves in init (see storage/all). The engine only
// needs find-by-key, insert, update-all-but-key and a per-chunk commit, which
// Batch expresses; Scan serves the export path.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"propetl/internal/property"
)

// Config carries the backend-independent storage settings.
type Config struct {
	Kind            string
	DSN             string
	Table           string
	AutoCreateTable bool
}

// Store is an open property store.
type Store interface {
	// Begin starts a unit of work for one chunk.
	Begin(ctx context.Context) (Batch, error)
	// Scan calls fn for every record matching f, in folio_number order. A
	// non-nil error from fn stops the scan and is returned.
	Scan(ctx context.Context, f property.Filter, fn func(*property.Record) error) error
	// EnsureSchema creates the property table and its indexes if missing.
	EnsureSchema(ctx context.Context) error
	Close()
}

// Batch is one chunk's unit of work. Reads observe the batch's own pending
// writes, so a folio seen twice in a chunk updates rather than inserting
// twice. A failed Insert or Update leaves the rest of the batch usable.
type Batch interface {
	// FindByKey returns (nil, nil) when no record exists.
	FindByKey(ctx context.Context, folio string) (*property.Record, error)
	Insert(ctx context.Context, r *property.Record) error
	// Update overwrites every field except the key and CreatedAt.
	Update(ctx context.Context, r *property.Record) error
	Commit() error
	Rollback() error
}

// Factory opens a Store for cfg.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. Later registrations
// replace earlier ones.
func Register(kind string, fn Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = fn
}

// Kinds lists the registered backends.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens the backend registered for cfg.Kind and, when AutoCreateTable is
// set, ensures the schema exists.
func New(ctx context.Context, cfg Config) (Store, error) {
	mu.RLock()
	fn, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown kind %q (registered: %v)", cfg.Kind, Kinds())
	}
	s, err := fn(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage %s: %w", cfg.Kind, err)
	}
	if cfg.AutoCreateTable {
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("storage %s: ensure schema: %w", cfg.Kind, err)
		}
	}
	return s, nil
}
