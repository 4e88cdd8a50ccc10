package outbound

import (
	"context"

	"vectorsync/internal/domain/messaging"
)

// MessagePublisher enqueues sync job dispatch messages on the durable queue.
type MessagePublisher interface {
	PublishSyncJob(ctx context.Context, message messaging.SyncJobMessage) error
}
