// Package transformer converts parsed CSV rows into typed property records.
//
// Coercion is lenient by design of the input: assessor exports are messy, so
// a cell that cannot be parsed degrades to null (or false for booleans) and
// never fails the row. The per-field parser table is compiled once per file
// from the resolved header layout.
package transformer

import (
	"math"
	"strconv"
	"strings"

	"propetl/internal/property"
)

// DefaultNullTokens are cell values treated as null in addition to the empty
// string and any case variant of "nan".
var DefaultNullTokens = []string{"NA", "N/A", "null", "NULL"}

// Coercer holds the null-token vocabulary used by every parser.
type Coercer struct {
	null map[string]struct{}
}

// NewCoercer returns a Coercer. A nil tokens slice selects DefaultNullTokens;
// an empty non-nil slice disables token matching.
func NewCoercer(tokens []string) *Coercer {
	if tokens == nil {
		tokens = DefaultNullTokens
	}
	c := &Coercer{null: make(map[string]struct{}, len(tokens))}
	for _, t := range tokens {
		c.null[t] = struct{}{}
	}
	return c
}

// isNull reports whether a trimmed cell is a null marker.
func (c *Coercer) isNull(s string) bool {
	if s == "" || strings.EqualFold(s, "nan") {
		return true
	}
	_, ok := c.null[s]
	return ok
}

// Text trims s and returns nil for null markers.
func (c *Coercer) Text(raw string) *string {
	s := strings.TrimSpace(raw)
	if c.isNull(s) {
		return nil
	}
	return &s
}

// Decimal parses a number after removing thousands separators and currency
// symbols. Unparsable or non-finite input is nil.
func (c *Coercer) Decimal(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if c.isNull(s) {
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "$", "")
	return parseFloat(strings.TrimSpace(s))
}

// Integer removes thousands separators only and truncates toward zero, so
// "1,234.0" is 1234 and "$1,200" is nil. Values outside the int64 range are
// nil.
func (c *Coercer) Integer(raw string) *int64 {
	s := strings.TrimSpace(raw)
	if c.isNull(s) {
		return nil
	}
	f := parseFloat(strings.ReplaceAll(s, ",", ""))
	if f == nil {
		return nil
	}
	t := math.Trunc(*f)
	if t >= math.MaxInt64 || t < math.MinInt64 {
		return nil
	}
	n := int64(t)
	return &n
}

// parseFloat accepts plain decimal notation with an optional exponent. Hex
// mantissas and p exponents, which strconv also understands, are rejected.
func parseFloat(s string) *float64 {
	if strings.ContainsAny(s, "xXpP_") {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Bool is true for yes/true/1/y in any case; everything else is false.
func (c *Coercer) Bool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "true", "1", "y":
		return true
	}
	return false
}

// ParseFunc converts one raw cell into the value Record.Set expects for the
// field's kind: nil, string, int64, float64 or bool.
type ParseFunc func(c *Coercer, raw string) any

var parsers = map[property.Kind]ParseFunc{
	property.KindIdentifier: func(_ *Coercer, raw string) any { return strings.TrimSpace(raw) },
	property.KindText:       textValue,
	property.KindDate:       textValue,
	property.KindInteger: func(c *Coercer, raw string) any {
		if n := c.Integer(raw); n != nil {
			return *n
		}
		return nil
	},
	property.KindDecimal: func(c *Coercer, raw string) any {
		if f := c.Decimal(raw); f != nil {
			return *f
		}
		return nil
	},
	property.KindBoolean: func(c *Coercer, raw string) any { return c.Bool(raw) },
}

func textValue(c *Coercer, raw string) any {
	if s := c.Text(raw); s != nil {
		return *s
	}
	return nil
}

// ParserFor returns the parser for a field's declared kind.
func ParserFor(f property.Field) ParseFunc { return parsers[f.Kind()] }
