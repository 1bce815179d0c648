package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/ecomstack/notification-service/internal/orders"
	"github.com/ecomstack/notification-service/internal/ws"
)

type recordingHandler struct {
	events []InboundOrderEvent
	err    error
}

func (h *recordingHandler) Handle(ctx context.Context, event InboundOrderEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func TestParseStartOffset(t *testing.T) {
	cases := []struct {
		policy  string
		want    int64
		wantErr bool
	}{
		{"earliest", kafka.FirstOffset, false},
		{"latest", kafka.LastOffset, false},
		{"", kafka.FirstOffset, false},
		{"beginning", 0, true},
	}

	for _, tc := range cases {
		got, err := parseStartOffset(tc.policy)
		if tc.wantErr {
			if err == nil {
				t.Errorf("policy %q: expected error", tc.policy)
			}
			continue
		}
		if err != nil {
			t.Errorf("policy %q: unexpected error: %v", tc.policy, err)
			continue
		}
		if got != tc.want {
			t.Errorf("policy %q: expected offset %d, got %d", tc.policy, tc.want, got)
		}
	}
}

func TestNewConsumer_RequiresBrokers(t *testing.T) {
	if _, err := NewConsumer(ConsumerConfig{}, &recordingHandler{}); err == nil {
		t.Error("expected error for empty brokers list")
	}
}

func TestNewConsumer_RejectsUnknownStartOffset(t *testing.T) {
	_, err := NewConsumer(ConsumerConfig{
		Brokers:     []string{"localhost:9092"},
		StartOffset: "from-the-top",
	}, &recordingHandler{})
	if err == nil {
		t.Error("expected error for unknown start offset policy")
	}
}

func TestNewConsumer_Defaults(t *testing.T) {
	c, err := NewConsumer(ConsumerConfig{
		Brokers: []string{"localhost:9092"},
	}, &recordingHandler{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Stop()

	cfg := c.reader.Config()
	if cfg.Topic != "order-created" {
		t.Errorf("expected default topic 'order-created', got %s", cfg.Topic)
	}
	if cfg.GroupID != "notification-service-group" {
		t.Errorf("expected default group id, got %s", cfg.GroupID)
	}
	if cfg.StartOffset != kafka.FirstOffset {
		t.Errorf("expected earliest start offset by default, got %d", cfg.StartOffset)
	}
	if cfg.CommitInterval <= 0 {
		t.Error("expected a positive auto-commit interval")
	}
}

func TestProcessMessage_MalformedPayloadDropped(t *testing.T) {
	handler := &recordingHandler{}
	c := &Consumer{handler: handler}

	c.processMessage(context.Background(), kafka.Message{
		Topic: "order-created",
		Value: []byte("{not json"),
	})

	if len(handler.events) != 0 {
		t.Error("malformed payload must not reach the handler")
	}
}

func TestProcessMessage_DecodesAndInvokesHandler(t *testing.T) {
	handler := &recordingHandler{}
	c := &Consumer{handler: handler}

	c.processMessage(context.Background(), kafka.Message{
		Topic: "order-created",
		Value: []byte(`{"userId":"u1","productId":"p1","_id":"o1","orderDate":"2024-01-01T00:00:00Z"}`),
	})

	if len(handler.events) != 1 {
		t.Fatalf("expected handler to be invoked once, got %d", len(handler.events))
	}
	ev := handler.events[0]
	if ev.UserID != "u1" || ev.ProductID != "p1" || ev.OrderID != "o1" {
		t.Errorf("unexpected decoded event %+v", ev)
	}
	if ev.OrderDate.Year() != 2024 {
		t.Errorf("unexpected order date %s", ev.OrderDate)
	}
}

func TestProcessMessage_HandlerErrorsContained(t *testing.T) {
	// Every error class is logged and contained; none may panic or stop
	// further processing.
	errs := []error{
		&ValidationError{Field: "userId"},
		errors.Join(errors.New("update order o1"), orders.ErrNotFound),
		ws.ErrNotStarted,
		errors.New("store unavailable"),
	}

	for _, handlerErr := range errs {
		handler := &recordingHandler{err: handlerErr}
		c := &Consumer{handler: handler}

		for i := 0; i < 2; i++ {
			c.processMessage(context.Background(), kafka.Message{
				Value: []byte(`{"userId":"u1","productId":"p1","_id":"o1"}`),
			})
		}

		if len(handler.events) != 2 {
			t.Errorf("error %v: expected processing to continue, handler saw %d events", handlerErr, len(handler.events))
		}
	}
}
