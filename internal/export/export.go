// Package export writes filtered property records to a timestamped CSV file.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"propetl/internal/metrics"
	"propetl/internal/property"
	"propetl/internal/storage"
)

// DefaultPrefix names export files when Options.Prefix is empty.
const DefaultPrefix = "bcpa_export"

// Filter selects the exported records; see property.Filter.
type Filter = property.Filter

// Options control where the artifact goes.
type Options struct {
	Dir    string // default "."
	Prefix string // default DefaultPrefix
	Now    func() time.Time
	Job    string
	Log    *zap.Logger
}

// maxSuffix bounds the search for a free file name.
const maxSuffix = 10000

// Run streams every record matching f, in folio order, into a new CSV file
// and returns its path. An existing file is never overwritten.
func Run(ctx context.Context, s storage.Store, f Filter, opt Options) (path string, err error) {
	start := time.Now()
	if opt.Job == "" {
		opt.Job = "propetl"
	}
	defer func() { metrics.RecordStep(opt.Job, "export", err, time.Since(start)) }()

	log := opt.Log
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now
	if opt.Now != nil {
		now = opt.Now
	}
	prefix := opt.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	dir := opt.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export dir: %w", err)
	}

	out, path, err := create(dir, prefix+"_"+now().Format("20060102_150405"))
	if err != nil {
		return "", err
	}
	n, werr := write(ctx, out, s, f)
	if cerr := out.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(path)
		return "", fmt.Errorf("export: %w", werr)
	}

	metrics.RecordRows(opt.Job, "exported", int64(n))
	log.Info("export written", zap.String("path", path), zap.Int("rows", n), zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
	return path, nil
}

// create opens base.csv, or base_N.csv for the first free N.
func create(dir, base string) (*os.File, string, error) {
	for i := 0; i < maxSuffix; i++ {
		name := base + ".csv"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.csv", base, i)
		}
		p := filepath.Join(dir, name)
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, p, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create export: %w", err)
		}
	}
	return nil, "", fmt.Errorf("create export: no free name for %s", base)
}

func write(ctx context.Context, out *os.File, s storage.Store, f Filter) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write(property.Columns()); err != nil {
		return 0, err
	}
	fields := property.Fields()
	row := make([]string, len(fields))
	n := 0
	err := s.Scan(ctx, f, func(r *property.Record) error {
		for i, fld := range fields {
			row[i] = Render(r.Value(fld))
		}
		n++
		return w.Write(row)
	})
	if err != nil {
		return n, err
	}
	w.Flush()
	return n, w.Error()
}

// Render formats a field value the way the coercer would read it back:
// null is empty, booleans are true/false, integers have no decimals and
// decimals use the shortest exact representation.
func Render(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
