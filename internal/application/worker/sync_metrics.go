package worker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// syncMetrics instruments batch execution.
type syncMetrics struct {
	recordsProcessed metric.Int64Counter
	recordsFailed    metric.Int64Counter
	batchDuration    metric.Float64Histogram
}

func newSyncMetrics() (*syncMetrics, error) {
	meter := otel.Meter("vectorsync/worker")

	recordsProcessed, err := meter.Int64Counter(
		"sync.records.processed",
		metric.WithDescription("Number of source records processed by sync batches"),
	)
	if err != nil {
		return nil, err
	}

	recordsFailed, err := meter.Int64Counter(
		"sync.records.failed",
		metric.WithDescription("Number of source records that failed to sync"),
	)
	if err != nil {
		return nil, err
	}

	batchDuration, err := meter.Float64Histogram(
		"sync.batch.duration",
		metric.WithDescription("Duration of one batch execution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &syncMetrics{
		recordsProcessed: recordsProcessed,
		recordsFailed:    recordsFailed,
		batchDuration:    batchDuration,
	}, nil
}

func (m *syncMetrics) recordBatch(ctx context.Context, mode string, successful, failed int, duration time.Duration) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("mode", mode))
	m.recordsProcessed.Add(ctx, int64(successful+failed), attrs)
	m.recordsFailed.Add(ctx, int64(failed), attrs)
	m.batchDuration.Record(ctx, duration.Seconds(), attrs)
}
