package progress

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// ErrorLog writes every row error of a run to a CSV file, with no cap.
type ErrorLog struct {
	mu   sync.Mutex
	f    *os.File
	w    *csv.Writer
	n    int
	path string
}

// NewErrorLog creates path (and its directory) and writes the header row.
func NewErrorLog(path string) (*ErrorLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("error log dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("error log: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"row", "line", "folio_number", "message"}); err != nil {
		f.Close()
		return nil, fmt.Errorf("error log: %w", err)
	}
	return &ErrorLog{f: f, w: w, path: path}, nil
}

// Add appends e.
func (l *ErrorLog) Add(e RowError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.n++
	line := ""
	if e.Line > 0 {
		line = strconv.Itoa(e.Line)
	}
	_ = l.w.Write([]string{strconv.Itoa(e.Row), line, e.Folio, e.Message})
}

// Count returns the number of errors written.
func (l *ErrorLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

func (l *ErrorLog) Path() string { return l.path }

// Close flushes and closes the file, reporting any earlier write error.
func (l *ErrorLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	werr := l.w.Error()
	cerr := l.f.Close()
	if werr != nil {
		return fmt.Errorf("error log write: %w", werr)
	}
	return cerr
}
