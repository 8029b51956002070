package progress

import (
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPercent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		done, total, want int
	}{
		{0, 0, 100},
		{5, 0, 100},
		{0, 10, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 200, 1}, // 0.5 rounds away from zero
		{10, 10, 100},
		{11, 10, 100},
	}
	for _, tc := range cases {
		if got := Percent(tc.done, tc.total); got != tc.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tc.done, tc.total, got, tc.want)
		}
	}
}

func TestErrorCapKeepsTotal(t *testing.T) {
	t.Parallel()

	r := New(10, 2)
	for i := 1; i <= 5; i++ {
		r.AddError(RowError{Row: i, Message: fmt.Sprintf("bad %d", i)})
	}
	errs, total := r.Errors()
	if len(errs) != 2 || total != 5 {
		t.Fatalf("errors = %d retained, %d total", len(errs), total)
	}
	if errs[0].Row != 1 || errs[1].Row != 2 {
		t.Fatalf("retained the wrong errors: %+v", errs)
	}
	if s := r.Snapshot(); s.Errors != 5 {
		t.Fatalf("snapshot errors = %d", s.Errors)
	}
}

func TestDefaultCap(t *testing.T) {
	t.Parallel()

	r := New(0, 0)
	for i := 0; i < DefaultMaxErrors+7; i++ {
		r.AddError(RowError{Row: i})
	}
	errs, total := r.Errors()
	if len(errs) != DefaultMaxErrors || total != DefaultMaxErrors+7 {
		t.Fatalf("got %d/%d", len(errs), total)
	}
}

func TestChunkDoneNotifiesSinks(t *testing.T) {
	t.Parallel()

	var seen []Snapshot
	r := New(7, 0, SinkFunc(func(s Snapshot) { seen = append(seen, s) }))
	r.ChunkDone(1, Delta{Rows: 5, Imported: 3, Updated: 1, Skipped: 1})
	r.ChunkDone(2, Delta{Rows: 4, Imported: 2})

	if len(seen) != 2 {
		t.Fatalf("sink calls = %d", len(seen))
	}
	last := seen[1]
	// 9 rows consumed against a count of 7 (e.g. quoted newlines): capped.
	want := Snapshot{Chunk: 2, Processed: 7, Total: 7, Percent: 100, Imported: 5, Updated: 1, Skipped: 1}
	if last != want {
		t.Fatalf("snapshot = %+v\nwant %+v", last, want)
	}
}

func TestResume(t *testing.T) {
	t.Parallel()

	r := New(100, 0)
	r.Resume(40, 4)
	s := r.ChunkDone(5, Delta{Rows: 10, Imported: 10})
	if s.Processed != 50 || s.Percent != 50 || s.Imported != 10 || s.Chunk != 5 {
		t.Fatalf("snapshot = %+v", s)
	}
}

func TestConcurrentReaders(t *testing.T) {
	t.Parallel()

	r := New(1000, 10)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 100; i++ {
			r.ChunkDone(i, Delta{Rows: 10, Imported: 10})
			r.AddError(RowError{Row: i})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = r.Snapshot()
		}
	}()
	wg.Wait()
	if s := r.Snapshot(); s.Processed != 1000 || s.Errors != 100 {
		t.Fatalf("final = %+v", s)
	}
}

func TestRowErrorString(t *testing.T) {
	t.Parallel()

	got := RowError{Row: 3, Line: 4, Folio: "F1", Message: "boom"}.String()
	if got != "row 3 (line 4) folio F1: boom" {
		t.Fatalf("String() = %q", got)
	}
	if got := (RowError{Row: 1, Message: "x"}).String(); got != "row 1: x" {
		t.Fatalf("String() = %q", got)
	}
}

func TestLogSink(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	r := New(10, 0, LogSink(zap.New(core)))
	r.ChunkDone(1, Delta{Rows: 5, Imported: 5})

	entries := logs.FilterMessage("progress").All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d", len(entries))
	}
	if got := entries[0].ContextMap()["percent"]; got != int64(50) {
		t.Fatalf("percent field = %v (%T)", got, got)
	}
}
