package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"propetl/internal/property"
	"propetl/internal/storage"
)

// Store implements storage.Store on a database/sql handle.
type Store struct {
	db    *sql.DB
	d     Dialect
	table string
	q     Queries
	name  string
	now   func() time.Time
}

// NewStore returns a Store on db; name prefixes error messages.
func NewStore(name string, db *sql.DB, d Dialect, table string) *Store {
	return &Store{db: db, d: d, table: table, q: BuildQueries(d, table), name: name, now: time.Now}
}

// EnsureSchema runs the create-if-missing DDL.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range Schema(s.d, s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: exec ddl: %w", s.name, err)
		}
	}
	return nil
}

// Begin opens a transaction and prepares the row statements on it.
func (s *Store) Begin(ctx context.Context) (storage.Batch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", s.name, err)
	}
	b := &batch{s: s, tx: tx}
	for _, p := range []struct {
		dst **sql.Stmt
		sql string
	}{{&b.find, s.q.Find}, {&b.insert, s.q.Insert}, {&b.update, s.q.Update}} {
		st, err := tx.PrepareContext(ctx, p.sql)
		if err != nil {
			b.close()
			_ = tx.Rollback()
			return nil, fmt.Errorf("%s: prepare: %w", s.name, err)
		}
		*p.dst = st
	}
	return b, nil
}

// Scan streams matching rows in key order.
func (s *Store) Scan(ctx context.Context, f property.Filter, fn func(*property.Record) error) error {
	where, args := FilterSQL(s.d, f)
	rows, err := s.db.QueryContext(ctx, s.q.Select+where, args...)
	if err != nil {
		return fmt.Errorf("%s: scan query: %w", s.name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var row Row
		if err := rows.Scan(row.Dest()...); err != nil {
			return fmt.Errorf("%s: scan row: %w", s.name, err)
		}
		rec, err := row.Record()
		if err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

type batch struct {
	s                    *Store
	tx                   *sql.Tx
	find, insert, update *sql.Stmt
}

func (b *batch) FindByKey(ctx context.Context, folio string) (*property.Record, error) {
	var row Row
	err := b.find.QueryRowContext(ctx, folio).Scan(row.Dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: find %q: %w", b.s.name, folio, err)
	}
	return row.Record()
}

func (b *batch) Insert(ctx context.Context, r *property.Record) error {
	Stamp(r, b.s.now(), true)
	if _, err := b.insert.ExecContext(ctx, InsertArgs(b.s.d, r)...); err != nil {
		return fmt.Errorf("%s: insert %q: %w", b.s.name, r.FolioNumber, err)
	}
	return nil
}

func (b *batch) Update(ctx context.Context, r *property.Record) error {
	Stamp(r, b.s.now(), false)
	res, err := b.update.ExecContext(ctx, UpdateArgs(b.s.d, r)...)
	if err != nil {
		return fmt.Errorf("%s: update %q: %w", b.s.name, r.FolioNumber, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: update %q: no such record", b.s.name, r.FolioNumber)
	}
	return nil
}

func (b *batch) Commit() error {
	b.close()
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", b.s.name, err)
	}
	return nil
}

func (b *batch) Rollback() error {
	b.close()
	if err := b.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%s: rollback: %w", b.s.name, err)
	}
	return nil
}

func (b *batch) close() {
	for _, st := range []*sql.Stmt{b.find, b.insert, b.update} {
		if st != nil {
			st.Close()
		}
	}
}
