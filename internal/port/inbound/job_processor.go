package inbound

import (
	"context"

	"vectorsync/internal/domain/messaging"
)

// JobProcessor executes one dispatched sync job.
//
// A returned error means the dispatch itself could not be handled (job or
// datasource could not be loaded) and the message should be redelivered.
// A job that ran and failed is recorded in the job row and returns nil.
type JobProcessor interface {
	ProcessJob(ctx context.Context, message messaging.SyncJobMessage) error
}

// Consumer pulls dispatch messages from the durable queue and drives a
// JobProcessor.
type Consumer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
