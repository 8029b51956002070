package datadog

import (
	"reflect"
	"testing"

	"propetl/internal/metrics"
)

type call struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	calls  []call
	closed bool
}

func (f *fakeClient) Count(name string, value int64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"count", name, float64(value), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"histogram", name, value, tags})
	return nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestNewBackendRequiresAddr(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(Config{}); err == nil {
		t.Fatalf("NewBackend without Addr must fail")
	}
}

func TestNewBackendUDP(t *testing.T) {
	t.Parallel()

	// UDP "connects" without a listener, so this only exercises option wiring.
	b, err := NewBackend(Config{Addr: "127.0.0.1:8125", Namespace: "propetl.", GlobalTags: []string{"env:test"}})
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func TestBackendForwardsWithSortedTags(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := &Backend{client: fc}

	b.IncCounter(metrics.RowsTotal, 4, metrics.Labels{"kind": "inserted", "job": "bcpa"})
	b.ObserveHistogram(metrics.StepDuration, 0.25, metrics.Labels{"step": "import"})
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}

	want := []call{
		{"count", metrics.RowsTotal, 4, []string{"job:bcpa", "kind:inserted"}},
		{"histogram", metrics.StepDuration, 0.25, []string{"step:import"}},
	}
	if !reflect.DeepEqual(fc.calls, want) {
		t.Fatalf("calls = %#v\nwant %#v", fc.calls, want)
	}
	if !fc.closed {
		t.Fatalf("Flush did not close the client")
	}
}

func TestNilClientIsNoop(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter("x", 1, nil)
	b.ObserveHistogram("x", 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}
}
