package progress

import (
	"sync"

	"go.uber.org/zap"

	"propetl/internal/metrics"
)

// LogSink logs every snapshot at info level.
func LogSink(log *zap.Logger) Sink {
	if log == nil {
		log = zap.NewNop()
	}
	return SinkFunc(func(s Snapshot) {
		log.Info("progress",
			zap.Int("chunk", s.Chunk),
			zap.Int("processed", s.Processed),
			zap.Int("total", s.Total),
			zap.Int("percent", s.Percent),
			zap.Int("imported", s.Imported),
			zap.Int("updated", s.Updated),
			zap.Int("skipped", s.Skipped),
			zap.Int("errors", s.Errors),
		)
	})
}

// MetricsSink converts cumulative snapshots into row counter increments on
// the global metrics backend.
type MetricsSink struct {
	Job string

	mu   sync.Mutex
	last Snapshot
}

// NewMetricsSink returns a sink that reports under job.
func NewMetricsSink(job string) *MetricsSink { return &MetricsSink{Job: job} }

func (m *MetricsSink) Observe(s Snapshot) {
	m.mu.Lock()
	prev := m.last
	m.last = s
	m.mu.Unlock()

	metrics.RecordRows(m.Job, "inserted", int64(s.Imported-prev.Imported))
	metrics.RecordRows(m.Job, "updated", int64(s.Updated-prev.Updated))
	metrics.RecordRows(m.Job, "skipped", int64(s.Skipped-prev.Skipped))
	metrics.RecordRows(m.Job, "errors", int64(s.Errors-prev.Errors))
}
