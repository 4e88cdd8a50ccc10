package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"vectorsync/internal/application/common/slogger"
	"vectorsync/internal/config"
	"vectorsync/internal/domain/messaging"
	"vectorsync/internal/port/inbound"

	"github.com/nats-io/nats.go"
)

const (
	defaultFetchBatch   = 1
	defaultFetchTimeout = 5 * time.Second
	defaultJobTimeout   = 30 * time.Minute
)

// ConsumerConfig holds configuration for the sync job consumer.
type ConsumerConfig struct {
	DurableName   string
	AckWait       time.Duration
	MaxDeliver    int
	MaxAckPending int
	Concurrency   int
	FetchTimeout  time.Duration
	JobTimeout    time.Duration
}

// Validate checks the consumer configuration.
func (c ConsumerConfig) Validate() error {
	if c.DurableName == "" {
		return errors.New("durable name cannot be empty")
	}
	if c.AckWait <= 0 {
		return errors.New("ack wait duration must be positive")
	}
	if c.MaxDeliver <= 0 {
		return errors.New("max deliver count must be positive")
	}
	if c.Concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}
	return nil
}

// NATSConsumer pulls sync job dispatches from JetStream and drives a
// JobProcessor. Dispatch-level failures are Nak'd for redelivery up to
// MaxDeliver; jobs that ran and failed are recorded in the job row and Ack'd.
type NATSConsumer struct {
	config     ConsumerConfig
	natsConfig config.NATSConfig
	processor  inbound.JobProcessor

	conn *nats.Conn
	sub  *nats.Subscription

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    sync.WaitGroup
}

// NewNATSConsumer creates a new sync job consumer.
func NewNATSConsumer(
	cfg ConsumerConfig,
	natsConfig config.NATSConfig,
	processor inbound.JobProcessor,
) (*NATSConsumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid consumer configuration: %w", err)
	}
	if processor == nil {
		return nil, errors.New("job processor cannot be nil")
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	if cfg.MaxAckPending <= 0 {
		cfg.MaxAckPending = cfg.Concurrency
	}

	return &NATSConsumer{
		config:     cfg,
		natsConfig: natsConfig,
		processor:  processor,
	}, nil
}

// Start connects to NATS and begins pulling messages.
func (c *NATSConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return errors.New("consumer already running")
	}

	conn, err := nats.Connect(c.natsConfig.URL,
		nats.MaxReconnects(c.natsConfig.MaxReconnects),
		nats.ReconnectWait(c.natsConfig.ReconnectWait),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := EnsureStream(js); err != nil {
		conn.Close()
		return err
	}

	sub, err := js.PullSubscribe(messaging.SyncJobSubject, c.config.DurableName,
		nats.BindStream(messaging.StreamName),
		nats.AckWait(c.config.AckWait),
		nats.MaxDeliver(c.config.MaxDeliver),
		nats.MaxAckPending(c.config.MaxAckPending),
		nats.ManualAck(),
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create pull subscription: %w", err)
	}

	c.conn = conn
	c.sub = sub
	c.stop = make(chan struct{})
	c.running = true

	c.done.Add(1)
	go c.run(ctx)

	slogger.Info(ctx, "Sync job consumer started", slogger.Fields{
		"durable":     c.config.DurableName,
		"concurrency": c.config.Concurrency,
		"max_deliver": c.config.MaxDeliver,
	})

	return nil
}

// Stop drains in-flight work and closes the connection.
func (c *NATSConsumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	close(c.stop)
	c.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		c.done.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		return fmt.Errorf("consumer shutdown interrupted: %w", ctx.Err())
	}

	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			slogger.WarnNoCtx("Failed to unsubscribe", slogger.Field("error", err.Error()))
		}
	}
	if c.conn != nil {
		c.conn.Close()
	}

	return nil
}

func (c *NATSConsumer) run(ctx context.Context) {
	defer c.done.Done()

	// Semaphore bounding concurrent job executions.
	slots := make(chan struct{}, c.config.Concurrency)
	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := c.sub.Fetch(defaultFetchBatch, nats.MaxWait(c.config.FetchTimeout))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
				return
			}
			slogger.Error(ctx, "Fetch from sync queue failed", slogger.Field("error", err.Error()))
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			slots <- struct{}{}
			inflight.Add(1)
			go func(m *nats.Msg) {
				defer inflight.Done()
				defer func() { <-slots }()
				c.handleMessage(ctx, m)
			}(msg)
		}
	}
}

func (c *NATSConsumer) handleMessage(ctx context.Context, msg *nats.Msg) {
	var message messaging.SyncJobMessage
	if err := json.Unmarshal(msg.Data, &message); err != nil {
		slogger.Error(ctx, "Discarding malformed sync job message", slogger.Field("error", err.Error()))
		c.terminate(msg)
		return
	}

	if err := message.Validate(); err != nil {
		slogger.Error(ctx, "Discarding invalid sync job message", slogger.Fields{
			"message_id": message.MessageID,
			"error":      err.Error(),
		})
		c.terminate(msg)
		return
	}

	jobCtx := slogger.WithCorrelationID(ctx, message.MessageID)
	jobCtx, cancel := context.WithTimeout(jobCtx, c.config.JobTimeout)
	defer cancel()

	if err := c.processor.ProcessJob(jobCtx, message); err != nil {
		slogger.Error(jobCtx, "Sync job dispatch failed, requesting redelivery", slogger.Fields{
			"job_id": message.JobID,
			"error":  err.Error(),
		})
		if nakErr := msg.Nak(); nakErr != nil {
			slogger.Error(jobCtx, "Failed to nak message", slogger.Field("error", nakErr.Error()))
		}
		return
	}

	if ackErr := msg.Ack(); ackErr != nil {
		slogger.Error(jobCtx, "Failed to ack message", slogger.Field("error", ackErr.Error()))
	}
}

// terminate acks a message that can never be processed so the work queue does
// not redeliver it.
func (c *NATSConsumer) terminate(msg *nats.Msg) {
	if err := msg.Term(); err != nil {
		slogger.ErrorNoCtx("Failed to terminate message", slogger.Field("error", err.Error()))
	}
}
