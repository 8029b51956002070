// Package sqlbase holds the SQL shared by the relational backends: the
// property table layout, statement text per dialect, filter translation and
// row scanning. sqlite and mssql run it through database/sql via Store;
// postgres executes the same statements through pgx.
package sqlbase

import (
	"fmt"
	"strings"
	"time"

	"propetl/internal/property"
)

// Bookkeeping columns maintained by the store.
const (
	ColCreatedAt = "created_at"
	ColUpdatedAt = "updated_at"
)

// Dialect captures the differences between SQL engines.
type Dialect interface {
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string
	QuoteIdent(s string) string
	// ColumnType returns the column definition for a canonical field.
	ColumnType(f property.Field) string
	TimestampType() string
	// CreateTable wraps a column list in the engine's create-if-missing form.
	CreateTable(table, columns string) string
	// CreateIndex creates a single-column index if missing.
	CreateIndex(table, name, column string) string
	EncodeTime(t time.Time) any
}

// QuoteTable quotes each dot-separated part of a possibly schema-qualified
// table name.
func QuoteTable(d Dialect, table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// DecodeTime converts a scanned timestamp. Drivers hand back time.Time for
// native timestamp columns and text for SQLite.
func DecodeTime(src any) (time.Time, error) {
	switch v := src.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case string:
		return parseTimeText(v)
	case []byte:
		return parseTimeText(string(v))
	}
	return time.Time{}, fmt.Errorf("sqlbase: unsupported timestamp type %T", src)
}

func parseTimeText(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("sqlbase: cannot parse timestamp %q", s)
}

// IndexedColumns are the export filter columns that get secondary indexes.
var IndexedColumns = []property.Field{property.SitusCity, property.UseType, property.IsAbsenteeOwner}
