package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"vectorsync/internal/application/common/slogger"
	"vectorsync/internal/config"
	"vectorsync/internal/domain/messaging"

	"github.com/nats-io/nats.go"
)

const (
	natsConnectionTimeout = 5 * time.Second

	// streamMaxAge bounds how long an undelivered dispatch can sit in the queue.
	streamMaxAge = 24 * time.Hour
)

// NATSSyncJobPublisher publishes sync job dispatch messages to JetStream.
type NATSSyncJobPublisher struct {
	config config.NATSConfig
	conn   *nats.Conn
	js     nats.JetStreamContext
	mu     sync.RWMutex
}

// NewNATSSyncJobPublisher creates a new NATS publisher.
func NewNATSSyncJobPublisher(cfg config.NATSConfig) (*NATSSyncJobPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("NATS URL cannot be empty")
	}
	if !strings.HasPrefix(cfg.URL, "nats://") {
		return nil, errors.New("invalid NATS URL scheme")
	}
	if cfg.MaxReconnects < 0 {
		return nil, errors.New("max reconnects cannot be negative")
	}
	if cfg.ReconnectWait < 0 {
		return nil, errors.New("reconnect wait cannot be negative")
	}

	return &NATSSyncJobPublisher{config: cfg}, nil
}

// Connect establishes the NATS connection and ensures the work-queue stream
// exists.
func (p *NATSSyncJobPublisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		return nil
	}

	conn, err := nats.Connect(p.config.URL,
		nats.Timeout(natsConnectionTimeout),
		nats.MaxReconnects(p.config.MaxReconnects),
		nats.ReconnectWait(p.config.ReconnectWait),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := ensureStream(js); err != nil {
		conn.Close()
		return err
	}

	p.conn = conn
	p.js = js
	return nil
}

// Close closes the NATS connection.
func (p *NATSSyncJobPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
		p.js = nil
	}
}

// PublishSyncJob publishes a sync job dispatch message. The message ID doubles
// as the JetStream deduplication ID.
func (p *NATSSyncJobPublisher) PublishSyncJob(ctx context.Context, message messaging.SyncJobMessage) error {
	if err := message.Validate(); err != nil {
		return fmt.Errorf("invalid sync job message: %w", err)
	}

	p.mu.RLock()
	js := p.js
	p.mu.RUnlock()

	if js == nil {
		return errors.New("publisher is not connected")
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal sync job message: %w", err)
	}

	_, err = js.Publish(messaging.SyncJobSubject, data,
		nats.MsgId(message.MessageID),
		nats.Context(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to publish sync job message: %w", err)
	}

	slogger.Debug(ctx, "Published sync job dispatch", slogger.Fields{
		"message_id": message.MessageID,
		"job_id":     message.JobID,
		"mode":       message.Mode,
	})

	return nil
}

// ensureStream creates the SYNC work-queue stream if it does not exist.
func ensureStream(js nats.JetStreamContext) error {
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
