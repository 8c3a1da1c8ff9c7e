package dbow2

import (
	"sync/atomic"
	"time"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/database"
)

var (
	_ database.Metrics = NoopMetricsCollector{}
	_ database.Metrics = (*BasicMetricsCollector)(nil)
)

// MetricsCollector receives operation timings from a Database. Implement it
// to integrate with monitoring systems like Prometheus; collectors must be
// safe for concurrent use.
type MetricsCollector interface {
	// RecordAdd is called after each insertion.
	RecordAdd(duration time.Duration, err error)

	// RecordQuery is called after each query.
	RecordQuery(duration time.Duration, err error)
}

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration, error)   {}
func (NoopMetricsCollector) RecordQuery(time.Duration, error) {}

// BasicMetricsCollector keeps simple in-memory counters. Useful for
// debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	AddCount        atomic.Int64
	AddErrors       atomic.Int64
	AddTotalNanos   atomic.Int64
	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryTotalNanos atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(duration time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// Stats returns a snapshot of the counters.
func (b *BasicMetricsCollector) Stats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:      b.AddCount.Load(),
		AddErrors:     b.AddErrors.Load(),
		AddAvgNanos:   avg(b.AddTotalNanos.Load(), b.AddCount.Load()),
		QueryCount:    b.QueryCount.Load(),
		QueryErrors:   b.QueryErrors.Load(),
		QueryAvgNanos: avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount      int64
	AddErrors     int64
	AddAvgNanos   int64
	QueryCount    int64
	QueryErrors   int64
	QueryAvgNanos int64
}
