package csv

import (
	"errors"
	"testing"

	"propetl/internal/property"
)

func TestNormalizeHeader(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Parcel ID":          "parcel_id",
		"parcel_id":          "parcel_id",
		"ParcelID ":          "parcelid",
		"\uFEFFFolio":        "folio",
		`"Owner Name"`:       "owner_name",
		"'zip4'":             "zip4",
		"  Just--Value ($) ": "just_value",
		"__a__b__":           "a_b",
		"Año Built":          "a_o_built",
		"Año Construído":     "a_o_constru_do",
		"Sq. Footage":        "sq_footage",
		"":                   "",
		"###":                "",
	}
	for in, want := range cases {
		if got := NormalizeHeader(in); got != want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", in, got, want)
		}
		if again := NormalizeHeader(NormalizeHeader(in)); again != want {
			t.Errorf("NormalizeHeader not idempotent for %q: %q", in, again)
		}
	}
}

// TestSchemaTolerance: the common folio spellings all land on folio_number.
func TestSchemaTolerance(t *testing.T) {
	t.Parallel()

	for _, h := range []string{"Parcel ID", "parcel_id", "ParcelID ", "FOLIO", "Folio Number", "folionumber", "parcel"} {
		l, err := ResolveHeader([]string{"x", h}, nil)
		if err != nil {
			t.Fatalf("ResolveHeader(%q): %v", h, err)
		}
		if l.FolioIndex() != 1 {
			t.Fatalf("%q: folio index = %d, want 1", h, l.FolioIndex())
		}
	}
}

func TestResolveHeaderNoFolio(t *testing.T) {
	t.Parallel()

	_, err := ResolveHeader([]string{"owner", "city", "just_value"}, nil)
	if err == nil {
		t.Fatalf("expected schema error")
	}
	if !errors.Is(err, ErrNoFolioColumn) {
		t.Fatalf("errors.Is(err, ErrNoFolioColumn) = false: %v", err)
	}
	var se *SchemaError
	if !errors.As(err, &se) || len(se.Headers) != 3 || se.Headers[0] != "owner" {
		t.Fatalf("unexpected SchemaError: %#v", se)
	}
}

func TestResolveHeaderLayout(t *testing.T) {
	t.Parallel()

	raw := []string{"Folio", "Owner", "Mystery Column", "City", "Mailing City", "Estimated Purchase Price", "Beds"}
	l, err := ResolveHeader(raw, nil)
	if err != nil {
		t.Fatalf("ResolveHeader: %v", err)
	}

	got := map[property.Field]int{}
	for _, c := range l.Columns {
		got[c.Field] = c.Index
	}
	want := map[property.Field]int{
		property.FolioNumber: 0,
		property.NameLine1:   1,
		property.MailingCity: 4, // last of city / mailing city wins
		property.Beds:        6,
	}
	if len(got) != len(want) {
		t.Fatalf("columns = %+v, want %+v", got, want)
	}
	for f, i := range want {
		if got[f] != i {
			t.Errorf("%s at %d, want %d", f, got[f], i)
		}
	}
	if len(l.Shadowed) != 1 || l.Shadowed[0] != "City" {
		t.Errorf("Shadowed = %v, want [City]", l.Shadowed)
	}
	// derived fields are never read from the source
	if len(l.Unmapped) != 2 {
		t.Errorf("Unmapped = %v, want mystery_column and estimated_purchase_price", l.Unmapped)
	}
	for i := 1; i < len(l.Columns); i++ {
		if l.Columns[i-1].Field >= l.Columns[i].Field {
			t.Fatalf("columns not in canonical order: %+v", l.Columns)
		}
	}
}

func TestNewHeaderMap(t *testing.T) {
	t.Parallel()

	hm, err := NewHeaderMap(map[string]string{"Account #": "folio_number"})
	if err != nil {
		t.Fatalf("NewHeaderMap: %v", err)
	}
	l, err := ResolveHeader([]string{"Owner", "ACCOUNT #"}, hm)
	if err != nil {
		t.Fatalf("ResolveHeader: %v", err)
	}
	if l.FolioIndex() != 1 {
		t.Fatalf("folio index = %d", l.FolioIndex())
	}

	if _, err := NewHeaderMap(map[string]string{"x": "nope"}); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if _, err := NewHeaderMap(map[string]string{"x": "potential_equity"}); err == nil {
		t.Fatalf("expected derived field error")
	}
}

// Every built-in synonym key must already be normalized, otherwise it can
// never match.
func TestSynonymKeysNormalized(t *testing.T) {
	t.Parallel()

	for k, f := range synonyms {
		if NormalizeHeader(k) != k {
			t.Errorf("synonym %q is not normalized", k)
		}
		if f.Derived() {
			t.Errorf("synonym %q targets derived field %s", k, f)
		}
	}
}
