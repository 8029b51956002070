package csv

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"propetl/internal/property"
)

// ErrNoFolioColumn is matched (errors.Is) by the *SchemaError returned when no
// header resolves to folio_number.
var ErrNoFolioColumn = errors.New("no column maps to folio_number")

const utf8BOM = "\uFEFF"

// SchemaError reports a header that cannot be ingested. Headers holds the
// normalized names that were seen.
type SchemaError struct {
	Headers []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %v (normalized headers: %s)", ErrNoFolioColumn, strings.Join(e.Headers, ", "))
}

func (e *SchemaError) Is(target error) bool { return target == ErrNoFolioColumn }

// NormalizeHeader canonicalizes one raw header cell: BOM and surrounding
// quotes stripped, lowercased, every run outside [a-z0-9] (accented letters
// included) collapsed to "_" and edge underscores trimmed. It is pure.
func NormalizeHeader(raw string) string {
	s := strings.TrimPrefix(raw, utf8BOM)
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// HeaderMap resolves normalized header names to canonical fields.
type HeaderMap map[string]property.Field

// NewHeaderMap returns the built-in synonym table extended with extra
// (synonym -> canonical field name). Extra synonyms are normalized before
// insertion and override built-ins. Unknown or derived targets are an error.
func NewHeaderMap(extra map[string]string) (HeaderMap, error) {
	hm := make(HeaderMap, len(synonyms)+len(extra))
	for k, f := range synonyms {
		hm[k] = f
	}
	for syn, target := range extra {
		f, ok := property.Lookup(target)
		if !ok {
			return nil, fmt.Errorf("header_map %q: unknown field %q", syn, target)
		}
		if f.Derived() {
			return nil, fmt.Errorf("header_map %q: field %q is computed", syn, target)
		}
		hm[NormalizeHeader(syn)] = f
	}
	return hm, nil
}

// Column binds a canonical field to a source column.
type Column struct {
	Field  property.Field
	Index  int
	Header string // raw header text
}

// Layout is the resolved header of one source file.
type Layout struct {
	Columns []Column // one per mapped field, in canonical field order
	// Unmapped lists normalized headers that matched nothing; they are inert.
	Unmapped []string
	// Shadowed lists raw headers that lost to a later column mapping to the
	// same field.
	Shadowed []string

	folio int
}

// FolioIndex returns the source column index of folio_number.
func (l *Layout) FolioIndex() int { return l.folio }

// ResolveHeader maps a raw header row. When several columns resolve to the
// same field the last one wins. Fails with *SchemaError when folio_number is
// not present.
func ResolveHeader(raw []string, hm HeaderMap) (*Layout, error) {
	if hm == nil {
		hm = HeaderMap(synonyms)
	}
	idx := map[property.Field]int{}
	normalized := make([]string, len(raw))
	l := &Layout{folio: -1}

	for i, h := range raw {
		n := NormalizeHeader(h)
		normalized[i] = n
		f, ok := hm[n]
		if !ok {
			if fd, found := property.Lookup(n); found && !fd.Derived() {
				f, ok = fd, true
			}
		}
		if !ok {
			l.Unmapped = append(l.Unmapped, n)
			continue
		}
		if prev, dup := idx[f]; dup {
			l.Shadowed = append(l.Shadowed, raw[prev])
		}
		idx[f] = i
	}

	fi, ok := idx[property.FolioNumber]
	if !ok {
		return nil, &SchemaError{Headers: normalized}
	}
	l.folio = fi

	for f, i := range idx {
		l.Columns = append(l.Columns, Column{Field: f, Index: i, Header: raw[i]})
	}
	sort.Slice(l.Columns, func(a, b int) bool { return l.Columns[a].Field < l.Columns[b].Field })
	return l, nil
}

// stripBOM drops a BOM left on the first header cell, e.g. one that sat
// inside quotes and survived the stream decoder.
func stripBOM(header []string) []string {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	return header
}
