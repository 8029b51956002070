package export

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"propetl/internal/property"
	"propetl/internal/storage"
	"propetl/internal/storage/memory"
	"propetl/internal/transformer"
)

func ptr[T any](v T) *T { return &v }

var fixed = func() time.Time { return time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC) }

func seed(t *testing.T, recs ...*property.Record) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	b, err := s.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range recs {
		if err := b.Insert(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.Commit(); err != nil {
		t.Fatal(err)
	}
	return s
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestRunWritesCanonicalCSV(t *testing.T) {
	t.Parallel()

	s := seed(t,
		&property.Record{FolioNumber: "B2", SitusCity: ptr("MIAMI"), Beds: ptr(int64(3)), Baths: ptr(2.5), JustValue: ptr(300000.0), HomesteadFlag: true, CalcConfidence: property.ConfidenceHigh},
		&property.Record{FolioNumber: "A1", SitusCity: ptr("MIAMI"), CalcConfidence: property.ConfidenceNone},
		&property.Record{FolioNumber: "C3", SitusCity: ptr("TAMPA")},
	)
	dir := t.TempDir()
	path, err := Run(context.Background(), s, Filter{City: "MIAMI"}, Options{Dir: dir, Now: fixed})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if filepath.Base(path) != "bcpa_export_20240305_140709.csv" {
		t.Fatalf("path = %s", path)
	}

	rows := readCSV(t, path)
	if strings.Join(rows[0], ",") != strings.Join(property.Columns(), ",") {
		t.Fatalf("header = %v", rows[0])
	}
	if len(rows) != 3 || rows[1][0] != "A1" || rows[2][0] != "B2" {
		t.Fatalf("rows = %v", rows)
	}
	col := func(name string) int {
		for i, c := range rows[0] {
			if c == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}
	b2 := rows[2]
	for name, want := range map[string]string{
		"beds":              "3",
		"baths":             "2.5",
		"just_value":        "300000",
		"homestead_flag":    "true",
		"is_absentee_owner": "false",
		"name_line_1":       "",
		"calc_confidence":   "High",
	} {
		if got := b2[col(name)]; got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestRunNeverOverwrites(t *testing.T) {
	t.Parallel()

	s := seed(t, &property.Record{FolioNumber: "A1"})
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 3; i++ {
		p, err := Run(context.Background(), s, Filter{}, Options{Dir: dir, Prefix: "weekly", Now: fixed})
		if err != nil {
			t.Fatal(err)
		}
		paths = append(paths, filepath.Base(p))
	}
	want := []string{"weekly_20240305_140709.csv", "weekly_20240305_140709_1.csv", "weekly_20240305_140709_2.csv"}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("paths = %v, want %v", paths, want)
		}
	}
}

func TestRunFilters(t *testing.T) {
	t.Parallel()

	s := seed(t,
		&property.Record{FolioNumber: "A", SitusCity: ptr("MIAMI"), UseType: ptr("SFR"), JustValue: ptr(100.0)},
		&property.Record{FolioNumber: "B", SitusCity: ptr("MIAMI"), UseType: ptr("SFR"), JustValue: ptr(500.0), IsAbsenteeOwner: true},
		&property.Record{FolioNumber: "C", SitusCity: ptr("MIAMI"), UseType: ptr("CONDO"), JustValue: ptr(900.0), IsAbsenteeOwner: true},
		&property.Record{FolioNumber: "D", SitusCity: ptr("MIAMI"), UseType: ptr("SFR")},
	)
	cases := []struct {
		name string
		f    Filter
		want string
	}{
		{"none", Filter{}, "ABCD"},
		{"use type", Filter{UseType: "SFR"}, "ABD"},
		{"min value excludes null", Filter{MinValue: ptr(500.0)}, "BC"},
		{"absentee", Filter{Absentee: ptr(true)}, "BC"},
		{"conjunctive", Filter{City: "MIAMI", UseType: "SFR", MinValue: ptr(200.0), Absentee: ptr(true)}, "B"},
		{"empty result", Filter{City: "TAMPA"}, ""},
	}
	for _, tc := range cases {
		p, err := Run(context.Background(), s, tc.f, Options{Dir: t.TempDir(), Now: fixed})
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		got := ""
		for _, r := range readCSV(t, p)[1:] {
			got += r[0]
		}
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

// Exported values read back through the coercer reproduce the record.
func TestRenderInvertsCoercion(t *testing.T) {
	t.Parallel()

	c := transformer.NewCoercer(nil)
	for _, v := range []float64{0, 1, 2.5, 123456.789, 1e15, -42.125, 0.1} {
		got := c.Decimal(Render(v))
		if got == nil || *got != v {
			t.Errorf("decimal %v -> %q -> %v", v, Render(v), got)
		}
	}
	for _, v := range []int64{0, 7, -3, math.MaxInt32 + 1} {
		got := c.Integer(Render(v))
		if got == nil || *got != v {
			t.Errorf("integer %v -> %q -> %v", v, Render(v), got)
		}
	}
	for _, v := range []bool{true, false} {
		if got := c.Bool(Render(v)); got != v {
			t.Errorf("bool %v -> %q -> %v", v, Render(v), got)
		}
	}
	if Render(nil) != "" || c.Text(Render(nil)) != nil {
		t.Errorf("null must render empty and read back as null")
	}
}

type failingStore struct{ storage.Store }

func (failingStore) Scan(context.Context, property.Filter, func(*property.Record) error) error {
	return errors.New("connection reset")
}

func TestRunRemovesPartialFileOnError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Run(context.Background(), failingStore{memory.New()}, Filter{}, Options{Dir: dir, Now: fixed})
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("err = %v", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("partial export left behind: %v", entries)
	}
}
