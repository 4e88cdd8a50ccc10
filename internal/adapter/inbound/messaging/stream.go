package messaging

import (
	"errors"
	"fmt"
	"time"

	"vectorsync/internal/domain/messaging"

	"github.com/nats-io/nats.go"
)

const streamMaxAge = 24 * time.Hour

// EnsureStream creates the SYNC work-queue stream if it does not exist. Both
// the API publisher and the worker consumer call this so either side can come
// up first.
func EnsureStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(messaging.StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:      messaging.StreamName,
		Subjects:  []string{messaging.SyncJobSubject},
		Retention: nats.WorkQueuePolicy,
		Storage:   nats.FileStorage,
		MaxAge:    streamMaxAge,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}
