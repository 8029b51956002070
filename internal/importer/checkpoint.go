package importer

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/xxh3"
)

// fingerprintPrefix bounds how much of the source is hashed.
const fingerprintPrefix = 1 << 20

// Checkpoint records how far an import of one source got. It is written
// after every committed chunk and removed when the run completes.
type Checkpoint struct {
	Fingerprint string    `json:"fingerprint"`
	Source      string    `json:"source"`
	Rows        int       `json:"rows"`  // data rows consumed through the last committed chunk
	Chunk       int       `json:"chunk"` // index of the last committed chunk
	UpdatedAt   time.Time `json:"updated_at"`
}

// Fingerprint identifies a source file by size, modification time and the
// xxh3 hash of its first MiB. A rewritten export gets a new fingerprint, so
// a stale checkpoint is never applied to it.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return "", err
	}

	h := xxh3.New()
	var meta [16]byte
	binary.LittleEndian.PutUint64(meta[:8], uint64(st.Size()))
	binary.LittleEndian.PutUint64(meta[8:], uint64(st.ModTime().UnixNano()))
	_, _ = h.Write(meta[:])
	if _, err := io.CopyN(h, f, fingerprintPrefix); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

type checkpointStore struct {
	dir string
}

func (c checkpointStore) path(fp string) string {
	return filepath.Join(c.dir, "propetl-"+fp+".json")
}

// load returns (nil, nil) when no checkpoint exists for fp.
func (c checkpointStore) load(fp string) (*Checkpoint, error) {
	b, err := os.ReadFile(c.path(fp))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(b, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", c.path(fp), err)
	}
	if cp.Fingerprint != fp {
		return nil, nil
	}
	return &cp, nil
}

// save writes through a temp file and rename so a crash never leaves a
// torn checkpoint.
func (c checkpointStore) save(cp Checkpoint) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint dir: %w", err)
	}
	b, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}
	dst := c.path(cp.Fingerprint)
	tmp, err := os.CreateTemp(c.dir, ".propetl-*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint temp: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

func (c checkpointStore) remove(fp string) error {
	if err := os.Remove(c.path(fp)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	return nil
}
