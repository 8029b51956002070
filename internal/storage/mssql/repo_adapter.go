package mssql

import (
	"context"

	"propetl/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace it to avoid real DB connections.
var newRepository = NewRepository

// wrappedRepo adapts *Repository to storage.Store by adding Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Store = (*wrappedRepo)(nil)

// Close releases resources held by the underlying repository.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
}
