package csv

import (
	"bytes"
	"errors"
	"io"
	"os"
)

// CountRows returns the number of newline-delimited data records in r, header
// excluded. A final line without a trailing newline still counts. Quoted
// fields spanning lines make this an upper bound; progress caps processed
// rows at this total.
func CountRows(r io.Reader) (int, error) {
	if f, ok := r.(*os.File); ok {
		adviseSequential(f)
	}
	buf := make([]byte, 256<<10)
	lines := 0
	var last byte
	seen := false
	for {
		n, err := r.Read(buf)
		if n > 0 {
			lines += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
			seen = true
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if seen && last != '\n' {
		lines++
	}
	if lines > 0 {
		lines-- // header
	}
	return lines, nil
}
