// Package postgres implements the property store on Postgres using pgx v5.
//
// Postgres aborts a whole transaction on the first failed statement, so every
// row write runs inside its own savepoint; a bad row is rolled back to the
// savepoint and the chunk carries on.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"propetl/internal/property"
	"propetl/internal/storage"
	"propetl/internal/storage/sqlbase"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN   string // connection string for pgxpool
	Table string // optionally schema-qualified, e.g. "public.properties"
}

// Repository is the Postgres property store.
type Repository struct {
	pool  *pgxpool.Pool
	table string
	q     sqlbase.Queries
	now   func() time.Time
}

// NewRepository constructs a Repository and returns a close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("postgres: table must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", describe(err))
	}
	closeFn := func() { pool.Close() }
	return newRepo(pool, cfg.Table), closeFn, nil
}

func newRepo(pool *pgxpool.Pool, table string) *Repository {
	return &Repository{pool: pool, table: table, q: sqlbase.BuildQueries(dialect{}, table), now: time.Now}
}

// EnsureSchema creates the table and indexes if missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range sqlbase.Schema(dialect{}, r.table) {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: exec ddl: %w", describe(err))
		}
	}
	return nil
}

// Begin opens a transaction for one chunk.
func (r *Repository) Begin(ctx context.Context) (storage.Batch, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", describe(err))
	}
	return &batch{r: r, tx: tx, ctx: ctx}, nil
}

// Scan streams matching rows in key order.
func (r *Repository) Scan(ctx context.Context, f property.Filter, fn func(*property.Record) error) error {
	where, args := sqlbase.FilterSQL(dialect{}, f)
	rows, err := r.pool.Query(ctx, r.q.Select+where, args...)
	if err != nil {
		return fmt.Errorf("postgres: scan query: %w", describe(err))
	}
	defer rows.Close()
	for rows.Next() {
		var row sqlbase.Row
		if err := rows.Scan(row.Dest()...); err != nil {
			return fmt.Errorf("postgres: scan row: %w", err)
		}
		rec, err := row.Record()
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

type batch struct {
	r   *Repository
	tx  pgx.Tx
	ctx context.Context
}

func (b *batch) FindByKey(ctx context.Context, folio string) (*property.Record, error) {
	var row sqlbase.Row
	err := b.tx.QueryRow(ctx, b.r.q.Find, folio).Scan(row.Dest()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find %q: %w", folio, describe(err))
	}
	return row.Record()
}

func (b *batch) Insert(ctx context.Context, rec *property.Record) error {
	sqlbase.Stamp(rec, b.r.now(), true)
	if _, err := b.exec(ctx, b.r.q.Insert, sqlbase.InsertArgs(dialect{}, rec)); err != nil {
		return fmt.Errorf("postgres: insert %q: %w", rec.FolioNumber, err)
	}
	return nil
}

func (b *batch) Update(ctx context.Context, rec *property.Record) error {
	sqlbase.Stamp(rec, b.r.now(), false)
	tag, err := b.exec(ctx, b.r.q.Update, sqlbase.UpdateArgs(dialect{}, rec))
	if err != nil {
		return fmt.Errorf("postgres: update %q: %w", rec.FolioNumber, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update %q: no such record", rec.FolioNumber)
	}
	return nil
}

// exec runs one statement inside a savepoint.
func (b *batch) exec(ctx context.Context, sql string, args []any) (pgconn.CommandTag, error) {
	sp, err := b.tx.Begin(ctx)
	if err != nil {
		return pgconn.CommandTag{}, describe(err)
	}
	tag, err := sp.Exec(ctx, sql, args...)
	if err != nil {
		_ = sp.Rollback(ctx)
		return tag, describe(err)
	}
	if err := sp.Commit(ctx); err != nil {
		return tag, describe(err)
	}
	return tag, nil
}

func (b *batch) Commit() error {
	if err := b.tx.Commit(b.ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", describe(err))
	}
	return nil
}

// Rollback uses a fresh context so a canceled run can still release the
// transaction.
func (b *batch) Rollback() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("postgres: rollback: %w", err)
	}
	return nil
}

// describe annotates server errors with their SQLSTATE.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w (sqlstate %s)", err, pgErr.Code)
	}
	return err
}

type dialect struct{}

func (dialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (dialect) QuoteIdent(s string) string { return pgIdent(s) }

func (dialect) ColumnType(f property.Field) string {
	if f == property.CalcConfidence {
		return "TEXT NOT NULL DEFAULT ''"
	}
	switch f.Kind() {
	case property.KindIdentifier:
		return "TEXT NOT NULL PRIMARY KEY"
	case property.KindInteger:
		return "BIGINT"
	case property.KindDecimal:
		return "DOUBLE PRECISION"
	case property.KindBoolean:
		return "BOOLEAN NOT NULL DEFAULT FALSE"
	default:
		return "TEXT"
	}
}

func (dialect) TimestampType() string { return "TIMESTAMPTZ" }

func (dialect) CreateTable(table, columns string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", pgFQN(table), columns)
}

// CreateIndex leaves the index unqualified; Postgres places it in the
// table's schema.
func (dialect) CreateIndex(table, name, column string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", pgIdent(name), pgFQN(table), pgIdent(column))
}

func (dialect) EncodeTime(t time.Time) any { return t.UTC() }

func pgIdent(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }

func pgFQN(table string) string { return sqlbase.QuoteTable(dialect{}, table) }
