// Package sqlite implements the property store on SQLite using database/sql
// and the pure-Go modernc.org/sqlite driver. Each chunk is one transaction;
// the single connection keeps ":memory:" databases coherent and serializes
// writers the way SQLite wants anyway.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"propetl/internal/property"
	"propetl/internal/storage/sqlbase"
)

// Config holds SQLite repository configuration.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:data/props.db?_pragma=busy_timeout(5000)"
	//   ":memory:"
	DSN string

	// Table is the property table; "main.properties" style names are
	// accepted.
	Table string
}

// Repository is the SQLite property store.
type Repository struct {
	*sqlbase.Store
}

// NewRepository opens the database and returns a Repository plus a close
// function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("sqlite: table must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;")

	closeFn := func() { db.Close() }
	return &Repository{Store: sqlbase.NewStore("sqlite", db, dialect{}, cfg.Table)}, closeFn, nil
}

type dialect struct{}

func (dialect) Placeholder(int) string { return "?" }

func (dialect) QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (dialect) ColumnType(f property.Field) string {
	if f == property.CalcConfidence {
		return "TEXT NOT NULL DEFAULT ''"
	}
	switch f.Kind() {
	case property.KindIdentifier:
		return "TEXT NOT NULL PRIMARY KEY"
	case property.KindInteger:
		return "INTEGER"
	case property.KindDecimal:
		return "REAL"
	case property.KindBoolean:
		return "INTEGER NOT NULL DEFAULT 0"
	default:
		return "TEXT"
	}
}

func (dialect) TimestampType() string { return "TEXT" }

func (d dialect) CreateTable(table, columns string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", sqlbase.QuoteTable(d, table), columns)
}

// CreateIndex puts the schema on the index name; SQLite rejects qualified
// table names in CREATE INDEX ... ON.
func (d dialect) CreateIndex(table, name, column string) string {
	idx := d.QuoteIdent(name)
	if i := strings.LastIndex(table, "."); i >= 0 {
		idx = d.QuoteIdent(table[:i]) + "." + idx
		table = table[i+1:]
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx, d.QuoteIdent(table), d.QuoteIdent(column))
}

func (dialect) EncodeTime(t time.Time) any { return t.UTC().Format(time.RFC3339Nano) }
