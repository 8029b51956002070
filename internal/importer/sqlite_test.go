package importer

import (
	"context"
	"testing"

	"propetl/internal/property"
	"propetl/internal/storage"
	_ "propetl/internal/storage/sqlite"
)

// TestImportIntoSQLite runs the engine against the default backend.
func TestImportIntoSQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: ":memory:", Table: "properties", AutoCreateTable: true})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer s.Close()

	path := writeCSV(t, "sq.csv", header+
		"F1,Ann,MIAMI,250000,700,WD,FL\n"+
		"F2,Bob,TAMPA,100000,350,SWD,NY\n"+
		"F1,Ann B,MIAMI,260000,700,WD,FL\n")
	res := importInto(t, s, path, Options{ChunkSize: 2})
	if res.Inserted != 2 || res.Updated != 1 || res.Chunks != 2 {
		t.Fatalf("result = %+v", res)
	}

	var got []*property.Record
	if err := s.Scan(ctx, property.Filter{}, func(r *property.Record) error {
		got = append(got, r)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d", len(got))
	}
	f1, f2 := got[0], got[1]
	if *f1.NameLine1 != "Ann B" || *f1.PotentialEquity != 160000 {
		t.Fatalf("F1 = %+v", f1)
	}
	if f2.CalcConfidence != property.ConfidenceMedium || *f2.EstimatedPurchasePrice != 50000 || !f2.IsAbsenteeOwner {
		t.Fatalf("F2 = %+v", f2)
	}
}
