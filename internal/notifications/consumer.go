package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ecomstack/notification-service/internal/orders"
	"github.com/ecomstack/notification-service/internal/ws"
)

const (
	// DefaultTopic is the order-created event topic.
	DefaultTopic = "order-created"
	// DefaultGroupID distinguishes this service's offset cursor from any
	// other consumer of the same topic.
	DefaultGroupID = "notification-service-group"

	// Start-offset policies.
	StartOffsetEarliest = "earliest"
	StartOffsetLatest   = "latest"
)

// EventHandler processes one decoded order event.
type EventHandler interface {
	Handle(ctx context.Context, event InboundOrderEvent) error
}

// ConsumerConfig holds configuration for the order event consumer.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// StartOffset is "earliest" or "latest". It applies both when the group
	// has no committed offset and when a committed offset is out of range:
	// the reader resets to the same policy instead of stalling.
	StartOffset string
	// CommitInterval is the auto-commit cadence. Commits are decoupled from
	// handler outcome: a message whose handler failed still has its offset
	// advance once the interval elapses. That keeps delivery at-least-once
	// overall but means a crash mid-sequence can lose the retry opportunity.
	CommitInterval time.Duration
}

// Consumer maintains a long-lived consumer-group subscription on the
// order-created topic and hands each decoded message to the handler. Messages
// are handled one at a time per reader, preserving partition order.
type Consumer struct {
	reader  *kafka.Reader
	handler EventHandler
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewConsumer creates a Consumer. Call Start to begin consumption and Stop
// for a cooperative shutdown.
func NewConsumer(cfg ConsumerConfig, handler EventHandler) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker address is required")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.GroupID == "" {
		cfg.GroupID = DefaultGroupID
	}
	if cfg.CommitInterval <= 0 {
		cfg.CommitInterval = 5 * time.Second
	}

	startOffset, err := parseStartOffset(cfg.StartOffset)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		StartOffset:    startOffset,
		CommitInterval: cfg.CommitInterval,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        500 * time.Millisecond,
	})

	return &Consumer{
		reader:  reader,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

func parseStartOffset(policy string) (int64, error) {
	switch policy {
	case "", StartOffsetEarliest:
		return kafka.FirstOffset, nil
	case StartOffsetLatest:
		return kafka.LastOffset, nil
	default:
		return 0, fmt.Errorf("invalid start offset policy %q (want %q or %q)", policy, StartOffsetEarliest, StartOffsetLatest)
	}
}

// Start begins consuming in a background goroutine.
func (c *Consumer) Start() {
	c.wg.Add(1)
	go c.run()
}

func (c *Consumer) run() {
	defer c.wg.Done()

	rc := c.reader.Config()
	log.Printf("consumer: joining group %s on topic %s", rc.GroupID, rc.Topic)

	// Stop cancels the wait for the next message, never an in-flight handler
	// sequence: side effects always run to completion.
	handlerCtx := context.WithoutCancel(c.ctx)

	for {
		msg, err := c.reader.ReadMessage(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			// Broker or group-level trouble: the reader reconnects and
			// rebalances internally, the loop keeps running.
			log.Printf("consumer: transport error: %v", err)
			continue
		}
		c.processMessage(handlerCtx, msg)
	}
}

// processMessage decodes one message and hands it to the handler. Every
// per-event error is contained here; nothing terminates the consume loop.
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) {
	var event InboundOrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// Malformed payloads cannot become valid by retrying.
		log.Printf("consumer: dropping undecodable message at %s/%d offset %d: %v",
			msg.Topic, msg.Partition, msg.Offset, err)
		return
	}

	if err := c.handler.Handle(ctx, event); err != nil {
		var ve *ValidationError
		switch {
		case errors.Is(err, ws.ErrNotStarted):
			log.Printf("consumer: BUG: broadcast hub used before start: %v", err)
		case errors.As(err, &ve):
			log.Printf("consumer: dropping invalid order event at offset %d: %v", msg.Offset, err)
		case errors.Is(err, orders.ErrNotFound):
			log.Printf("consumer: order missing for event at offset %d, notification kept without status sync: %v", msg.Offset, err)
		default:
			log.Printf("consumer: failed to process order event at offset %d: %v", msg.Offset, err)
		}
	}
}

// Stop cancels consumption, waits for the in-flight handler call to finish,
// and releases the group subscription. Side effects are never interrupted
// mid-sequence.
func (c *Consumer) Stop() error {
	c.cancel()
	c.wg.Wait()
	return c.reader.Close()
}
