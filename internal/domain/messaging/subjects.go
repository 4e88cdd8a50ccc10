package messaging

// JetStream wire names shared by the publisher and the consumer.
const (
	// StreamName is the durable work-queue stream holding sync job dispatches.
	StreamName = "SYNC"

	// SyncJobSubject is the subject sync job dispatch messages are published on.
	SyncJobSubject = "sync.job"
)
