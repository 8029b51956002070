// Package file implements a local filesystem-backed data source.
package file

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"propetl/internal/datasource"
)

var _ datasource.Source = (*Local)(nil)

// Local opens files from the local disk. Paths ending in ".gz" or ".zst" are
// decompressed transparently.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Compressed reports whether Open will decompress the file.
func (l *Local) Compressed() bool {
	p := strings.ToLower(l.path)
	return strings.HasSuffix(p, ".gz") || strings.HasSuffix(p, ".zst")
}

// Open returns the (decompressed) content of the file.
//
// A context that is already done short-circuits without touching the
// filesystem. Filesystem errors are wrapped with the path and keep
// errors.Is(err, os.ErrNotExist) working.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}

	switch p := strings.ToLower(l.path); {
	case strings.HasSuffix(p, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip %s: %w", l.path, err)
		}
		return &stacked{Reader: zr, closers: []func() error{zr.Close, f.Close}}, nil
	case strings.HasSuffix(p, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd %s: %w", l.path, err)
		}
		return &stacked{Reader: zr, closers: []func() error{
			func() error { zr.Close(); return nil },
			f.Close,
		}}, nil
	}
	return f, nil
}

// stacked closes a decoder and its underlying file in order.
type stacked struct {
	io.Reader
	closers []func() error
}

func (s *stacked) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
