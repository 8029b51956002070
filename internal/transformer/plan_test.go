package transformer

import (
	"errors"
	"testing"

	"propetl/internal/parser/csv"
	"propetl/internal/property"
)

func compile(t *testing.T, header ...string) *Plan {
	t.Helper()
	l, err := csv.ResolveHeader(header, nil)
	if err != nil {
		t.Fatalf("ResolveHeader: %v", err)
	}
	return Compile(l, nil)
}

func TestPlanRecord(t *testing.T) {
	t.Parallel()

	p := compile(t, "Parcel ID", "Owner", "Beds", "Just Value", "Homestead", "Doc Stamps", "Deed Type", "Ignored")
	rec, err := p.Record(csv.Row{Index: 1, Cells: []string{" 0123 ", "Doe, J", "3.0", "$250,000", "Y", "700", "WD", "zzz"}})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.FolioNumber != "0123" {
		t.Fatalf("folio = %q", rec.FolioNumber)
	}
	if rec.NameLine1 == nil || *rec.NameLine1 != "Doe, J" {
		t.Fatalf("owner = %v", rec.NameLine1)
	}
	if rec.Beds == nil || *rec.Beds != 3 {
		t.Fatalf("beds = %v", rec.Beds)
	}
	if !rec.HomesteadFlag {
		t.Fatalf("homestead = false")
	}
	if !eqF(rec.EstimatedPurchasePrice, f(100000)) || rec.CalcConfidence != property.ConfidenceHigh {
		t.Fatalf("derived price = %v %s", show(rec.EstimatedPurchasePrice), rec.CalcConfidence)
	}
	if !eqF(rec.PotentialEquity, f(150000)) {
		t.Fatalf("equity = %v", show(rec.PotentialEquity))
	}
}

// A malformed numeric cell degrades to null; the row still yields a record.
func TestPlanRecordLenient(t *testing.T) {
	t.Parallel()

	p := compile(t, "folio", "year_built", "just_value")
	rec, err := p.Record(csv.Row{Cells: []string{"F1", "unknown", "n/a dollars"}})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.BldgYearBuilt != nil || rec.JustValue != nil {
		t.Fatalf("expected nulls, got %v %v", rec.BldgYearBuilt, rec.JustValue)
	}
	if rec.CalcConfidence != property.ConfidenceNone {
		t.Fatalf("confidence = %q", rec.CalcConfidence)
	}
}

func TestPlanEmptyFolio(t *testing.T) {
	t.Parallel()

	p := compile(t, "folio", "owner")
	for _, cell := range []string{"", "  ", "nan", "NaN", "NULL"} {
		_, err := p.Record(csv.Row{Cells: []string{cell, "x"}})
		if !errors.Is(err, ErrEmptyFolio) {
			t.Errorf("folio %q: err = %v, want ErrEmptyFolio", cell, err)
		}
	}
	// short row: folio column missing entirely
	if _, err := p.Record(csv.Row{Cells: nil}); !errors.Is(err, ErrEmptyFolio) {
		t.Errorf("short row err = %v", err)
	}
}

func TestPlanParseErrorPassesThrough(t *testing.T) {
	t.Parallel()

	p := compile(t, "folio")
	want := errors.New("parse: bad quote")
	if _, err := p.Record(csv.Row{Err: want}); !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
}

func TestPlanShortRow(t *testing.T) {
	t.Parallel()

	p := compile(t, "folio", "owner", "beds")
	rec, err := p.Record(csv.Row{Cells: []string{"F1"}})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.NameLine1 != nil || rec.Beds != nil {
		t.Fatalf("missing cells must be null: %+v", rec)
	}
}
