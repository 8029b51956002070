// Package datasource abstracts where an assessor export is read from.
package datasource

import (
	"context"
	"io"
)

// Source yields the decoded bytes of one export. Open may be called more than
// once per import (a counting pass, then the streaming pass); each call
// returns an independent reader positioned at the start.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
