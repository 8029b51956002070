package transformer

import (
	"errors"
	"fmt"

	"propetl/internal/parser/csv"
	"propetl/internal/property"
)

// ErrEmptyFolio marks rows whose folio cell is empty or "nan". Callers skip
// them without counting an error.
var ErrEmptyFolio = errors.New("empty folio number")

type step struct {
	field property.Field
	col   int
	parse ParseFunc
}

// Plan is the per-file coercion plan: one step per mapped column, compiled
// from the resolved header so rows need no map lookups.
type Plan struct {
	c     *Coercer
	steps []step
	folio int
}

// Compile builds a Plan for layout.
func Compile(layout *csv.Layout, c *Coercer) *Plan {
	if c == nil {
		c = NewCoercer(nil)
	}
	p := &Plan{c: c, folio: layout.FolioIndex()}
	for _, col := range layout.Columns {
		p.steps = append(p.steps, step{field: col.Field, col: col.Index, parse: ParserFor(col.Field)})
	}
	return p
}

// Folio returns the trimmed folio cell of row, or "" when it is empty, a
// null marker or "nan". It is recoverable even when the rest of the row
// fails.
func (p *Plan) Folio(row csv.Row) string {
	if s := p.c.Text(row.Cell(p.folio)); s != nil {
		return *s
	}
	return ""
}

// Record coerces every mapped cell and computes the derived fields. It
// returns ErrEmptyFolio for rows without a usable key. Short rows read the
// missing cells as empty.
func (p *Plan) Record(row csv.Row) (*property.Record, error) {
	if row.Err != nil {
		return nil, row.Err
	}
	folio := p.Folio(row)
	if folio == "" {
		return nil, ErrEmptyFolio
	}
	rec := &property.Record{}
	for _, s := range p.steps {
		if s.field == property.FolioNumber {
			continue
		}
		if err := rec.Set(s.field, s.parse(p.c, row.Cell(s.col))); err != nil {
			return nil, fmt.Errorf("column %d: %w", s.col+1, err)
		}
	}
	rec.FolioNumber = folio
	Derive(rec)
	return rec, nil
}
