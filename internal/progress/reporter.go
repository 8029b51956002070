// Package progress tracks a single import run: running counts, a bounded
// list of row errors, and a snapshot after every chunk for whoever is
// watching (logs, metrics, an HTTP poller).
package progress

import (
	"fmt"
	"math"
	"sync"
)

// DefaultMaxErrors caps the detailed error list when the caller gives no cap.
const DefaultMaxErrors = 100

// RowError describes one failed data row.
type RowError struct {
	Row     int    `json:"row"`             // 1-based data row number
	Line    int    `json:"line,omitempty"`  // physical line in the source, when known
	Folio   string `json:"folio,omitempty"` // empty when not recoverable
	Message string `json:"message"`
}

func (e RowError) String() string {
	s := fmt.Sprintf("row %d", e.Row)
	if e.Line > 0 {
		s += fmt.Sprintf(" (line %d)", e.Line)
	}
	if e.Folio != "" {
		s += fmt.Sprintf(" folio %s", e.Folio)
	}
	return s + ": " + e.Message
}

// Snapshot is the reporter state after a chunk.
type Snapshot struct {
	Chunk     int `json:"chunk"`
	Processed int `json:"processed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
	Imported  int `json:"imported"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Delta is one chunk's contribution. Rows counts every data row the chunk
// consumed, whatever its outcome.
type Delta struct {
	Rows     int
	Imported int
	Updated  int
	Skipped  int
}

// Sink observes snapshots. Sinks must not block for long; they run on the
// import goroutine.
type Sink interface {
	Observe(Snapshot)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Snapshot)

func (f SinkFunc) Observe(s Snapshot) { f(s) }

// Reporter accumulates counts for one run. It is safe for concurrent use so
// that an HTTP handler may read Snapshot while the engine writes.
type Reporter struct {
	mu        sync.Mutex
	total     int
	maxErrors int
	sinks     []Sink

	chunk     int
	processed int
	imported  int
	updated   int
	skipped   int
	errTotal  int
	errs      []RowError
	errLog    *ErrorLog
}

// New returns a Reporter for a run of total data rows. maxErrors <= 0 means
// DefaultMaxErrors.
func New(total, maxErrors int, sinks ...Sink) *Reporter {
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	return &Reporter{total: total, maxErrors: maxErrors, sinks: sinks}
}

// Resume marks rows already handled by an earlier run as processed.
func (r *Reporter) Resume(rows, chunk int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed += rows
	r.chunk = chunk
}

// LogErrorsTo additionally writes every later error to l.
func (r *Reporter) LogErrorsTo(l *ErrorLog) {
	r.mu.Lock()
	r.errLog = l
	r.mu.Unlock()
}

// AddError records a row error; past the cap only the total grows.
func (r *Reporter) AddError(e RowError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errTotal++
	if r.errLog != nil {
		r.errLog.Add(e)
	}
	if len(r.errs) < r.maxErrors {
		r.errs = append(r.errs, e)
	}
}

// ChunkDone applies d and notifies the sinks.
func (r *Reporter) ChunkDone(chunk int, d Delta) Snapshot {
	r.mu.Lock()
	r.chunk = chunk
	r.processed += d.Rows
	r.imported += d.Imported
	r.updated += d.Updated
	r.skipped += d.Skipped
	s := r.snapshotLocked()
	sinks := r.sinks
	r.mu.Unlock()

	for _, sk := range sinks {
		sk.Observe(s)
	}
	return s
}

// Snapshot returns the current state without notifying sinks.
func (r *Reporter) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Errors returns a copy of the retained errors and the total seen.
func (r *Reporter) Errors() ([]RowError, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RowError, len(r.errs))
	copy(out, r.errs)
	return out, r.errTotal
}

func (r *Reporter) snapshotLocked() Snapshot {
	processed := r.processed
	if processed > r.total {
		processed = r.total
	}
	return Snapshot{
		Chunk:     r.chunk,
		Processed: processed,
		Total:     r.total,
		Percent:   Percent(processed, r.total),
		Imported:  r.imported,
		Updated:   r.updated,
		Skipped:   r.skipped,
		Errors:    r.errTotal,
	}
}

// Percent returns round(100*done/total) capped at 100; an empty run is 100%.
func Percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	p := int(math.Round(float64(done) * 100 / float64(total)))
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}
