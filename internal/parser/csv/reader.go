// Package csv streams assessor exports in bounded chunks.
//
// The reader never buffers the whole file: one chunk of rows is materialised
// at a time. Bytes pass through a UTF-8 decoder that strips a leading BOM and
// replaces invalid sequences with U+FFFD, so encoding damage never stops a
// run. Malformed records (quote errors) come back as rows carrying Err rather
// than failing the stream.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"propetl/internal/config"
)

// ErrHeader wraps failures to read the header row.
var ErrHeader = errors.New("read csv header")

// Row is one data record.
type Row struct {
	// Index is the 1-based data-row number (the header is not counted).
	Index int
	// Line is the 1-based physical line the record started on.
	Line  int
	Cells []string
	// Err is set when the record could not be parsed; Cells is then nil.
	Err error
}

// Cell returns the cell at i, or "" when the row is short.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// Options tunes the underlying csv.Reader.
type Options struct {
	Comma      rune // default ','
	LazyQuotes bool
}

// OptionsFrom reads parser.options from a pipeline. lazy_quotes defaults to
// false so a stray quote becomes a row-level parse error instead of
// swallowing the lines after it.
func OptionsFrom(o config.Options) Options {
	return Options{
		Comma:      o.Rune("comma", ','),
		LazyQuotes: o.Bool("lazy_quotes", false),
	}
}

// Reader yields chunks of rows after consuming the header.
type Reader struct {
	cr     *csv.Reader
	header []string
	rows   int
	eof    bool
	lazy   bool
}

// NewReader wraps r and reads the header row. An empty input or unreadable
// header returns an error wrapping ErrHeader.
func NewReader(r io.Reader, opt Options) (*Reader, error) {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(dec)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	h, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrHeader)
		}
		return nil, fmt.Errorf("%w: %v", ErrHeader, err)
	}
	header := stripBOM(append([]string(nil), h...))
	return &Reader{cr: cr, header: header, lazy: opt.LazyQuotes}, nil
}

// Header returns the raw header cells.
func (r *Reader) Header() []string { return r.header }

// Consumed returns the number of data rows read so far, including rows with
// parse errors.
func (r *Reader) Consumed() int { return r.rows }

// next reads one record. ok is false at EOF.
func (r *Reader) next() (row Row, ok bool, err error) {
	if r.eof {
		return Row{}, false, nil
	}
	rec, err := r.cr.Read()
	if errors.Is(err, io.EOF) {
		r.eof = true
		return Row{}, false, nil
	}
	r.rows++
	row = Row{Index: r.rows}
	if err != nil {
		var pe *csv.ParseError
		if !errors.As(err, &pe) {
			// I/O failure underneath the parser; nothing more can be read.
			return Row{}, false, fmt.Errorf("read row %d: %w", r.rows, err)
		}
		row.Line = pe.StartLine
		row.Err = fmt.Errorf("parse: %w", err)
		return row, true, nil
	}
	row.Line, _ = r.cr.FieldPos(0)
	if r.lazy {
		if i := runawayCell(rec); i >= 0 {
			row.Err = fmt.Errorf("parse: unbalanced quote in column %d absorbed %d following lines", i+1, strings.Count(rec[i], "\n"))
			return row, true, nil
		}
	}
	row.Cells = append([]string(nil), rec...)
	return row, true, nil
}

// runawayCell returns the index of a cell that spans lines and still holds a
// bare quote, the shape lazy quoting leaves when a stray quote opened a field
// and the following records were read into it. -1 when there is none.
func runawayCell(rec []string) int {
	for i, c := range rec {
		if strings.Contains(c, "\n") && strings.Contains(c, `"`) {
			return i
		}
	}
	return -1
}

// ReadChunk returns up to n rows. It returns io.EOF only when no rows remain.
func (r *Reader) ReadChunk(n int) ([]Row, error) {
	if n <= 0 {
		n = 1
	}
	out := make([]Row, 0, n)
	for len(out) < n {
		row, ok, err := r.next()
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		out = append(out, row)
	}
	if len(out) == 0 {
		return nil, io.EOF
	}
	return out, nil
}

// Skip discards up to n data rows (used when resuming). It returns the
// number actually skipped.
func (r *Reader) Skip(n int) (int, error) {
	skipped := 0
	for skipped < n {
		_, ok, err := r.next()
		if err != nil {
			return skipped, err
		}
		if !ok {
			break
		}
		skipped++
	}
	return skipped, nil
}
