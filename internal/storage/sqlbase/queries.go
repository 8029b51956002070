package sqlbase

import (
	"fmt"
	"strings"
	"time"

	"propetl/internal/property"
)

// Queries is the statement text for one table in one dialect.
type Queries struct {
	Find   string // args: folio
	Insert string // args: InsertArgs
	Update string // args: UpdateArgs
	Select string // column list + FROM, without WHERE/ORDER BY
}

// BuildQueries renders the statements for table.
func BuildQueries(d Dialect, table string) Queries {
	t := QuoteTable(d, table)
	fields := property.Fields()

	cols := make([]string, 0, len(fields)+2)
	for _, f := range fields {
		cols = append(cols, d.QuoteIdent(f.String()))
	}
	cols = append(cols, d.QuoteIdent(ColCreatedAt), d.QuoteIdent(ColUpdatedAt))
	colList := strings.Join(cols, ", ")

	ph := make([]string, len(cols))
	for i := range ph {
		ph[i] = d.Placeholder(i + 1)
	}

	// UPDATE ... SET every non-key field, then updated_at; key is last arg.
	sets := make([]string, 0, len(fields))
	n := 1
	for _, f := range fields[1:] {
		sets = append(sets, fmt.Sprintf("%s = %s", d.QuoteIdent(f.String()), d.Placeholder(n)))
		n++
	}
	sets = append(sets, fmt.Sprintf("%s = %s", d.QuoteIdent(ColUpdatedAt), d.Placeholder(n)))
	n++

	key := d.QuoteIdent(property.FolioNumber.String())
	sel := fmt.Sprintf("SELECT %s FROM %s", colList, t)
	return Queries{
		Find:   fmt.Sprintf("%s WHERE %s = %s", sel, key, d.Placeholder(1)),
		Insert: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t, colList, strings.Join(ph, ", ")),
		Update: fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s", t, strings.Join(sets, ", "), key, d.Placeholder(n)),
		Select: sel,
	}
}

// InsertArgs returns the bind values for Queries.Insert.
func InsertArgs(d Dialect, r *property.Record) []any {
	args := r.Values()
	return append(args, d.EncodeTime(r.CreatedAt), d.EncodeTime(r.UpdatedAt))
}

// UpdateArgs returns the bind values for Queries.Update.
func UpdateArgs(d Dialect, r *property.Record) []any {
	vals := r.Values()
	args := append(vals[1:], d.EncodeTime(r.UpdatedAt))
	return append(args, r.FolioNumber)
}

// FilterSQL translates f into a WHERE clause (possibly empty) plus an ORDER BY
// on the key, with bind args numbered from 1.
func FilterSQL(d Dialect, f property.Filter) (string, []any) {
	var conds []string
	var args []any
	add := func(col property.Field, op string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s %s %s", d.QuoteIdent(col.String()), op, d.Placeholder(len(args))))
	}
	if f.City != "" {
		add(property.SitusCity, "=", f.City)
	}
	if f.UseType != "" {
		add(property.UseType, "=", f.UseType)
	}
	if f.MinValue != nil {
		add(property.JustValue, ">=", *f.MinValue)
	}
	if f.Absentee != nil {
		add(property.IsAbsenteeOwner, "=", *f.Absentee)
	}
	var b strings.Builder
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(d.QuoteIdent(property.FolioNumber.String()))
	return b.String(), args
}

// Schema returns the DDL statements creating the table and its indexes.
func Schema(d Dialect, table string) []string {
	defs := make([]string, 0, len(property.Fields())+2)
	for _, f := range property.Fields() {
		defs = append(defs, d.QuoteIdent(f.String())+" "+d.ColumnType(f))
	}
	defs = append(defs,
		d.QuoteIdent(ColCreatedAt)+" "+d.TimestampType(),
		d.QuoteIdent(ColUpdatedAt)+" "+d.TimestampType(),
	)
	stmts := []string{d.CreateTable(table, strings.Join(defs, ",\n  "))}

	base := table
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[i+1:]
	}
	for _, f := range IndexedColumns {
		stmts = append(stmts, d.CreateIndex(table, fmt.Sprintf("ix_%s_%s", base, f), f.String()))
	}
	return stmts
}

// Row is a scan target for one full property row.
type Row struct {
	Rec              property.Record
	created, updated any
}

// Dest returns scan destinations in Select column order.
func (r *Row) Dest() []any {
	fields := property.Fields()
	out := make([]any, 0, len(fields)+2)
	for _, f := range fields {
		out = append(out, r.Rec.Dest(f))
	}
	return append(out, &r.created, &r.updated)
}

// Record finalizes the scan, decoding timestamps.
func (r *Row) Record() (*property.Record, error) {
	var err error
	if r.Rec.CreatedAt, err = DecodeTime(r.created); err != nil {
		return nil, err
	}
	if r.Rec.UpdatedAt, err = DecodeTime(r.updated); err != nil {
		return nil, err
	}
	rec := r.Rec
	return &rec, nil
}

// Stamp sets the bookkeeping timestamps for an insert (both) or update.
func Stamp(r *property.Record, now time.Time, insert bool) {
	now = now.UTC()
	if insert && r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
}
