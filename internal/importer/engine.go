// Package importer merges an assessor export into the property store.
//
// One Import call is one run. The source is opened and its header resolved
// (any failure there is fatal and returns no Result). Rows then stream in
// chunks from a reader goroutine to the consumer, which coerces each row,
// computes derived fields and upserts it by folio number inside the
// chunk's store batch. Each chunk commits on its own: a row that fails is
// recorded and skipped, a chunk whose commit fails is reported row by row,
// and neither stops the run.
//
// Concurrency model:
//
//	reader (csv.Reader.ReadChunk) --chan []Row (cap 1)--> consumer (rows in order) --> store.Batch
//
// so at most two chunks are in memory at a time.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"propetl/internal/datasource"
	"propetl/internal/datasource/file"
	"propetl/internal/metrics"
	"propetl/internal/parser/csv"
	"propetl/internal/progress"
	"propetl/internal/storage"
	"propetl/internal/transformer"
)

// DefaultChunkSize is the number of rows per committed batch.
const DefaultChunkSize = 5000

// ErrSourceNotFound is returned when the input file does not exist. It also
// matches fs.ErrNotExist.
var ErrSourceNotFound = errors.New("source file not found")

// State is the engine's position in a run.
type State int

const (
	StateOpening State = iota
	StateStreaming
	StateCommitting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateStreaming:
		return "streaming"
	case StateCommitting:
		return "committing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options tune one run. The zero value is usable.
type Options struct {
	ChunkSize int
	MaxErrors int
	CSV       csv.Options
	// HeaderMap adds synonym -> canonical field name entries.
	HeaderMap map[string]string
	// NullTokens replaces transformer.DefaultNullTokens when non-nil.
	NullTokens []string

	// CheckpointDir enables checkpoints; Resume applies an existing one.
	CheckpointDir string
	Resume        bool

	// ErrorLog, when set, receives every row error as CSV; the Result list
	// stays capped at MaxErrors.
	ErrorLog string

	Sinks []progress.Sink
	// OnState, when set, observes state transitions (chunk is 0 outside
	// Streaming/Committing).
	OnState func(s State, chunk int)
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.MaxErrors <= 0 {
		o.MaxErrors = progress.DefaultMaxErrors
	}
	if o.CSV.Comma == 0 {
		o.CSV.Comma = ','
	}
	return o
}

// Result summarises a run. Errors holds at most MaxErrors entries;
// ErrorCount is the full count.
type Result struct {
	Source     string              `json:"source"`
	Total      int                 `json:"total"`
	Inserted   int                 `json:"inserted"`
	Updated    int                 `json:"updated"`
	Skipped    int                 `json:"skipped"`
	Errors     []progress.RowError `json:"errors"`
	ErrorCount int                 `json:"error_count"`
	Chunks     int                 `json:"chunks"`
	ErrorLog   string              `json:"error_log,omitempty"`
	// Resumed is the number of rows skipped because a checkpoint covered them.
	Resumed int `json:"resumed"`
	// Offset is the number of data rows consumed through the last finished
	// chunk; a resumed run starts after it.
	Offset   int           `json:"offset"`
	Duration time.Duration `json:"duration_ns"`
}

// Engine runs imports against one store.
type Engine struct {
	store storage.Store
	log   *zap.Logger
	job   string
	now   func() time.Time
}

// NewEngine returns an Engine. A nil logger logs nothing.
func NewEngine(store storage.Store, log *zap.Logger, job string) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if job == "" {
		job = "propetl"
	}
	return &Engine{store: store, log: log, job: job, now: time.Now}
}

type outcome int

const (
	outFailed outcome = iota
	outInserted
	outUpdated
	outSkipped
)

type staged struct {
	row   csv.Row
	folio string
}

// run carries the per-Import state.
type run struct {
	e    *Engine
	opt  Options
	plan *transformer.Plan
	rep  *progress.Reporter
	res  *Result

	cps   checkpointStore
	fp    string
	chunk int // last finished chunk index
	first bool
	start time.Time
}

// Import merges the file at path into the store. On cancellation it returns
// the partial Result together with an error wrapping ctx.Err().
func (e *Engine) Import(ctx context.Context, path string, opt Options) (res *Result, err error) {
	start := e.now()
	defer func() { metrics.RecordStep(e.job, "import", err, e.now().Sub(start)) }()

	opt = opt.withDefaults()
	r := &run{e: e, opt: opt, start: start, first: true}
	r.state(StateOpening, 0)

	rd, closeSrc, total, err := r.open(ctx, path)
	if err != nil {
		r.state(StateFailed, 0)
		return nil, err
	}
	defer closeSrc()

	r.res = &Result{Source: path, Total: total}
	r.rep = progress.New(total, opt.MaxErrors, opt.Sinks...)
	if opt.ErrorLog != "" {
		el, err := progress.NewErrorLog(opt.ErrorLog)
		if err != nil {
			r.state(StateFailed, 0)
			return nil, err
		}
		defer func() {
			if cerr := el.Close(); cerr != nil {
				e.log.Warn("error log close", zap.Error(cerr))
				return
			}
			e.log.Info("error log written", zap.String("path", el.Path()), zap.Int("errors", el.Count()))
		}()
		r.rep.LogErrorsTo(el)
		r.res.ErrorLog = opt.ErrorLog
	}

	if err := r.resume(rd, path); err != nil {
		r.state(StateFailed, 0)
		return nil, err
	}

	streamErr := r.stream(ctx, rd)
	r.finish()

	if streamErr != nil {
		if ctx.Err() != nil {
			e.log.Warn("import canceled", zap.String("source", path), zap.Int("offset", r.res.Offset), zap.Int("rows_read", rd.Consumed()))
			return r.res, fmt.Errorf("import %s canceled after %d rows: %w", path, r.res.Offset, ctx.Err())
		}
		if r.first {
			// Nothing was attempted; the store could not be used at all.
			r.state(StateFailed, 0)
			return nil, streamErr
		}
		e.log.Error("import stopped", zap.String("source", path), zap.Error(streamErr))
		return r.res, fmt.Errorf("import %s: %w", path, streamErr)
	}

	if r.fp != "" {
		if err := r.cps.remove(r.fp); err != nil {
			e.log.Warn("checkpoint cleanup failed", zap.Error(err))
		}
	}
	r.state(StateDone, 0)
	e.logSummary(r.res)
	return r.res, nil
}

func (r *run) state(s State, chunk int) {
	if r.opt.OnState != nil {
		r.opt.OnState(s, chunk)
	}
}

// open counts the data rows, opens the stream and resolves the header.
func (r *run) open(ctx context.Context, path string) (*csv.Reader, func(), int, error) {
	src := file.NewLocal(path)

	total, err := countRows(ctx, src)
	if err != nil {
		return nil, nil, 0, sourceErr(path, err)
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return nil, nil, 0, sourceErr(path, err)
	}
	closeSrc := func() { _ = rc.Close() }

	rd, err := csv.NewReader(rc, r.opt.CSV)
	if err != nil {
		closeSrc()
		return nil, nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	hm, err := csv.NewHeaderMap(r.opt.HeaderMap)
	if err != nil {
		closeSrc()
		return nil, nil, 0, fmt.Errorf("header map: %w", err)
	}
	layout, err := csv.ResolveHeader(rd.Header(), hm)
	if err != nil {
		closeSrc()
		return nil, nil, 0, err
	}
	for _, h := range layout.Shadowed {
		r.e.log.Warn("duplicate column mapping; later column wins", zap.String("header", h))
	}
	if len(layout.Unmapped) > 0 {
		r.e.log.Debug("unmapped columns ignored", zap.Strings("headers", layout.Unmapped))
	}
	r.plan = transformer.Compile(layout, transformer.NewCoercer(r.opt.NullTokens))

	r.e.log.Info("import opened",
		zap.String("source", path),
		zap.Bool("compressed", src.Compressed()),
		zap.Int("total_rows", total),
		zap.Int("mapped_columns", len(layout.Columns)),
		zap.Int("chunk_size", r.opt.ChunkSize),
	)
	return rd, closeSrc, total, nil
}

// countRows makes a full pass over src; the engine opens it again to stream.
func countRows(ctx context.Context, src datasource.Source) (int, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	return csv.CountRows(rc)
}

func sourceErr(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s: %w", ErrSourceNotFound, path, err)
	}
	return err
}

// resume applies a matching checkpoint by skipping already committed rows.
func (r *run) resume(rd *csv.Reader, path string) error {
	if r.opt.CheckpointDir == "" {
		return nil
	}
	r.cps = checkpointStore{dir: r.opt.CheckpointDir}
	fp, err := Fingerprint(path)
	if err != nil {
		return sourceErr(path, err)
	}
	r.fp = fp
	if !r.opt.Resume {
		return nil
	}
	cp, err := r.cps.load(fp)
	if err != nil {
		return err
	}
	if cp == nil {
		return nil
	}
	n, err := rd.Skip(cp.Rows)
	if err != nil {
		return fmt.Errorf("resume %s: %w", path, err)
	}
	r.chunk = cp.Chunk
	r.res.Resumed = n
	r.res.Offset = n
	r.rep.Resume(n, cp.Chunk)
	r.e.log.Info("resuming import", zap.String("source", path), zap.Int("skipped_rows", n), zap.Int("chunk", cp.Chunk))
	return nil
}

// stream runs the reader and consumer goroutines until EOF, a fatal error
// or cancellation.
func (r *run) stream(ctx context.Context, rd *csv.Reader) error {
	g, gctx := errgroup.WithContext(ctx)
	chunks := make(chan []csv.Row, 1)

	g.Go(func() error {
		defer close(chunks)
		for {
			rows, err := rd.ReadChunk(r.opt.ChunkSize)
			if len(rows) > 0 {
				select {
				case chunks <- rows:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
		}
	})

	g.Go(func() error {
		for rows := range chunks {
			if err := r.chunkRows(gctx, r.chunk+1, rows); err != nil {
				return err
			}
		}
		return nil
	})

	return g.Wait()
}

// chunkRows applies one chunk inside one batch. It returns an error only
// when the run must stop.
func (r *run) chunkRows(ctx context.Context, n int, rows []csv.Row) error {
	r.state(StateStreaming, n)
	chunkStart := r.e.now()

	b, err := r.e.store.Begin(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if r.first {
			return fmt.Errorf("begin chunk %d: %w", n, err)
		}
		r.failChunk(n, rows, nil, fmt.Errorf("begin chunk %d: %w", n, err))
		return nil
	}
	r.first = false

	var (
		d       = progress.Delta{Rows: len(rows)}
		written []staged
		rowErrs []progress.RowError
	)
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			_ = b.Rollback()
			return err
		}
		out, folio, err := r.apply(ctx, b, row)
		switch out {
		case outInserted:
			d.Imported++
			written = append(written, staged{row: row, folio: folio})
		case outUpdated:
			d.Updated++
			written = append(written, staged{row: row, folio: folio})
		case outSkipped:
			d.Skipped++
		default:
			rowErrs = append(rowErrs, progress.RowError{Row: row.Index, Line: row.Line, Folio: folio, Message: err.Error()})
		}
	}

	if err := ctx.Err(); err != nil {
		_ = b.Rollback()
		return err
	}

	r.state(StateCommitting, n)
	if err := b.Commit(); err != nil {
		_ = b.Rollback()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for _, e := range rowErrs {
			r.rep.AddError(e)
		}
		d.Imported, d.Updated = 0, 0
		r.failChunk(n, nil, written, fmt.Errorf("commit chunk %d: %w", n, err))
		r.chunkDone(n, d, false, chunkStart)
		return nil
	}

	for _, e := range rowErrs {
		r.rep.AddError(e)
	}
	r.res.Chunks++
	r.chunkDone(n, d, true, chunkStart)
	return nil
}

// apply upserts one row. Panics are turned into row errors.
func (r *run) apply(ctx context.Context, b storage.Batch, row csv.Row) (out outcome, folio string, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = outFailed, fmt.Errorf("panic: %v", p)
		}
	}()

	folio = r.plan.Folio(row)
	rec, err := r.plan.Record(row)
	if errors.Is(err, transformer.ErrEmptyFolio) {
		return outSkipped, "", nil
	}
	if err != nil {
		return outFailed, folio, err
	}

	existing, err := b.FindByKey(ctx, folio)
	if err != nil {
		return outFailed, folio, err
	}
	if existing != nil {
		existing.CopyFrom(rec)
		if err := b.Update(ctx, existing); err != nil {
			return outFailed, folio, err
		}
		return outUpdated, folio, nil
	}
	if err := b.Insert(ctx, rec); err != nil {
		return outFailed, folio, err
	}
	return outInserted, folio, nil
}

// failChunk records one error per affected row. rows is used when nothing
// was attempted; written when the batch was rolled back after the fact.
func (r *run) failChunk(n int, rows []csv.Row, written []staged, cause error) {
	r.e.log.Error("chunk failed", zap.Int("chunk", n), zap.Error(cause))
	for _, row := range rows {
		r.rep.AddError(progress.RowError{Row: row.Index, Line: row.Line, Folio: r.plan.Folio(row), Message: cause.Error()})
	}
	for _, s := range written {
		r.rep.AddError(progress.RowError{Row: s.row.Index, Line: s.row.Line, Folio: s.folio, Message: cause.Error()})
	}
	if rows != nil {
		r.chunkDone(n, progress.Delta{Rows: len(rows)}, false, r.e.now())
	}
}

func (r *run) chunkDone(n int, d progress.Delta, committed bool, chunkStart time.Time) {
	r.chunk = n
	r.res.Offset += d.Rows
	snap := r.rep.ChunkDone(n, d)
	metrics.RecordChunk(r.e.job, committed)
	if !committed {
		return
	}

	if r.fp != "" {
		cp := Checkpoint{Fingerprint: r.fp, Source: r.res.Source, Rows: r.res.Offset, Chunk: n, UpdatedAt: r.e.now().UTC()}
		if err := r.cps.save(cp); err != nil {
			r.e.log.Warn("checkpoint save failed", zap.Int("chunk", n), zap.Error(err))
		}
	}

	elapsed := r.e.now().Sub(r.start)
	var rps int64
	if s := elapsed.Seconds(); s > 0 {
		rps = int64(float64(snap.Imported+snap.Updated) / s)
	}
	r.e.log.Info("chunk committed",
		zap.Int("chunk", n),
		zap.Int("rows", d.Rows),
		zap.Int("inserted", d.Imported),
		zap.Int("updated", d.Updated),
		zap.Int64("rps", rps),
		zap.Int("total_inserted", snap.Imported),
		zap.Int("total_updated", snap.Updated),
		zap.Duration("chunk_elapsed", r.e.now().Sub(chunkStart).Truncate(time.Millisecond)),
		zap.Duration("elapsed", elapsed.Truncate(time.Millisecond)),
	)
}

// finish copies the reporter state into the Result.
func (r *run) finish() {
	s := r.rep.Snapshot()
	r.res.Inserted = s.Imported
	r.res.Updated = s.Updated
	r.res.Skipped = s.Skipped
	r.res.Errors, r.res.ErrorCount = r.rep.Errors()
	r.res.Duration = r.e.now().Sub(r.start)
}

func (e *Engine) logSummary(res *Result) {
	e.log.Info("summary",
		zap.String("source", res.Source),
		zap.Int("total", res.Total),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", res.ErrorCount),
		zap.Int("chunks", res.Chunks),
		zap.Int("resumed", res.Resumed),
		zap.Duration("duration", res.Duration.Truncate(time.Millisecond)),
	)
	for i, re := range res.Errors {
		if i == 3 {
			e.log.Info("additional row errors suppressed", zap.Int("count", res.ErrorCount-3))
			break
		}
		e.log.Info("row error", zap.String("detail", re.String()))
	}
}
