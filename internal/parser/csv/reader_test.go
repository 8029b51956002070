package csv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"propetl/internal/config"
)

/*
makeCSV builds a CSV document in-memory with the given header and rows. The
delimiter is configurable; CRLF line endings can be requested by setting
useCRLF.
*/
func makeCSV(delim rune, header []string, rows [][]string, useCRLF bool) []byte {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	w.Comma = delim
	w.UseCRLF = useCRLF
	if header != nil {
		_ = w.Write(header)
	}
	for _, r := range rows {
		_ = w.Write(r)
	}
	w.Flush()
	return b.Bytes()
}

func TestReaderChunks(t *testing.T) {
	t.Parallel()

	rows := [][]string{{"1", "a"}, {"2", "b"}, {"3", "c"}, {"4", "d"}, {"5", "e"}}
	data := makeCSV(';', []string{"\uFEFFfolio", "owner"}, rows, true)

	r, err := NewReader(bytes.NewReader(data), Options{Comma: ';'})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if h := r.Header(); len(h) != 2 || h[0] != "folio" {
		t.Fatalf("header = %q", h)
	}

	var sizes []int
	var seen []string
	for {
		chunk, err := r.ReadChunk(2)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadChunk: %v", err)
		}
		sizes = append(sizes, len(chunk))
		for _, row := range chunk {
			seen = append(seen, row.Cell(0))
		}
	}
	if got := len(sizes); got != 3 || sizes[0] != 2 || sizes[2] != 1 {
		t.Fatalf("chunk sizes = %v, want [2 2 1]", sizes)
	}
	if strings.Join(seen, "") != "12345" {
		t.Fatalf("order = %v", seen)
	}
	if r.Consumed() != 5 {
		t.Fatalf("Consumed = %d", r.Consumed())
	}
}

// Rows must not alias each other even though the csv.Reader reuses records.
func TestReaderRowsDoNotAlias(t *testing.T) {
	t.Parallel()

	data := makeCSV(',', []string{"folio"}, [][]string{{"A"}, {"B"}}, false)
	r, err := NewReader(bytes.NewReader(data), Options{})
	if err != nil {
		t.Fatal(err)
	}
	chunk, err := r.ReadChunk(10)
	if err != nil {
		t.Fatal(err)
	}
	if chunk[0].Cell(0) != "A" || chunk[1].Cell(0) != "B" {
		t.Fatalf("rows aliased: %+v", chunk)
	}
	if chunk[0].Index != 1 || chunk[1].Index != 2 || chunk[1].Line != 3 {
		t.Fatalf("positions: %+v", chunk)
	}
}

func TestReaderMalformedRowIsSoft(t *testing.T) {
	t.Parallel()

	data := "folio,owner\n1,ok\n2,\"broken\"x\n3,fine\n"
	r, err := NewReader(strings.NewReader(data), Options{LazyQuotes: false})
	if err != nil {
		t.Fatal(err)
	}
	chunk, err := r.ReadChunk(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunk) != 3 {
		t.Fatalf("rows = %d, want 3", len(chunk))
	}
	if chunk[1].Err == nil || chunk[1].Index != 2 || chunk[1].Line != 3 {
		t.Fatalf("row 2 = %+v, want parse error at line 3", chunk[1])
	}
	if chunk[2].Err != nil || chunk[2].Cell(1) != "fine" {
		t.Fatalf("row 3 = %+v", chunk[2])
	}
}

func TestReaderLazyRunawayQuoteIsRowError(t *testing.T) {
	t.Parallel()

	data := "folio,owner,city\n1,ok,X\n2,\"Bob \"Jr,X\n3,lost,X\n4,lost,X\n"
	r, err := NewReader(strings.NewReader(data), Options{LazyQuotes: true})
	if err != nil {
		t.Fatal(err)
	}
	chunk, err := r.ReadChunk(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunk) != 2 || chunk[0].Err != nil {
		t.Fatalf("rows = %+v", chunk)
	}
	if chunk[1].Err == nil || chunk[1].Cells != nil || chunk[1].Line != 3 {
		t.Fatalf("row 2 = %+v, want parse error at line 3", chunk[1])
	}
	if !strings.Contains(chunk[1].Err.Error(), "unbalanced quote in column 2") {
		t.Fatalf("err = %v", chunk[1].Err)
	}
}

func TestReaderLazyKeepsQuotedMultilineCell(t *testing.T) {
	t.Parallel()

	data := "folio,owner\n1,\"line one\nline two\"\n2,ok\n"
	r, err := NewReader(strings.NewReader(data), Options{LazyQuotes: true})
	if err != nil {
		t.Fatal(err)
	}
	chunk, err := r.ReadChunk(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunk) != 2 || chunk[0].Err != nil || chunk[0].Cell(1) != "line one\nline two" {
		t.Fatalf("rows = %+v", chunk)
	}
}

func TestOptionsFromDefaultsToStrictQuotes(t *testing.T) {
	t.Parallel()

	if got := OptionsFrom(config.Options{}); got.Comma != ',' || got.LazyQuotes {
		t.Fatalf("OptionsFrom(empty) = %+v", got)
	}
}

func TestReaderInvalidUTF8Replaced(t *testing.T) {
	t.Parallel()

	data := []byte("folio,owner\n1,Jos\xe9\n")
	r, err := NewReader(bytes.NewReader(data), Options{})
	if err != nil {
		t.Fatal(err)
	}
	chunk, err := r.ReadChunk(1)
	if err != nil {
		t.Fatal(err)
	}
	if got := chunk[0].Cell(1); got != "Jos\uFFFD" {
		t.Fatalf("owner = %q, want replacement char", got)
	}
}

func TestReaderEmptyInput(t *testing.T) {
	t.Parallel()

	_, err := NewReader(strings.NewReader(""), Options{})
	if !errors.Is(err, ErrHeader) {
		t.Fatalf("err = %v, want ErrHeader", err)
	}
}

func TestReaderSkip(t *testing.T) {
	t.Parallel()

	data := makeCSV(',', []string{"folio"}, [][]string{{"1"}, {"2"}, {"3"}}, false)
	r, err := NewReader(bytes.NewReader(data), Options{})
	if err != nil {
		t.Fatal(err)
	}
	n, err := r.Skip(2)
	if err != nil || n != 2 {
		t.Fatalf("Skip = %d, %v", n, err)
	}
	chunk, err := r.ReadChunk(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunk) != 1 || chunk[0].Cell(0) != "3" || chunk[0].Index != 3 {
		t.Fatalf("after skip: %+v", chunk)
	}
	if n, _ := r.Skip(5); n != 0 {
		t.Fatalf("Skip past EOF = %d", n)
	}
}

func TestCountRows(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"":                   0,
		"folio\n":            0,
		"folio":              0,
		"folio\n1\n2\n":      2,
		"folio\n1\n2":        2,
		"folio\r\n1\r\n2\r\n": 2,
	}
	for in, want := range cases {
		got, err := CountRows(strings.NewReader(in))
		if err != nil {
			t.Fatalf("CountRows(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("CountRows(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestCountRowsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "big.csv")
	var b strings.Builder
	b.WriteString("folio,owner\n")
	for i := 0; i < 10_000; i++ {
		b.WriteString("F,owner\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, err := CountRows(f)
	if err != nil || got != 10_000 {
		t.Fatalf("CountRows = %d, %v", got, err)
	}
}
