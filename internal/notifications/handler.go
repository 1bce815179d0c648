package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ecomstack/notification-service/internal/orders"
)

// NotificationCreator is the slice of the notification store the handler
// needs: append a record, get back its id.
type NotificationCreator interface {
	Insert(ctx context.Context, n *Notification) (string, error)
}

// OrderUpdater is the slice of the order store the handler needs.
type OrderUpdater interface {
	UpdateStatus(ctx context.Context, orderID, status string, ts time.Time) (*orders.Order, error)
}

// Broadcaster publishes a named event to all connected real-time clients.
type Broadcaster interface {
	Publish(event string, payload any) error
}

// notificationFrame wraps the serialized NotificationMessage the way the
// frontend consumes it: a single JSON-string "message" field.
type notificationFrame struct {
	Message string `json:"message"`
}

// OrderEventHandler materializes a notification for each order-created event,
// marks the order completed, and pushes both outcomes to connected clients.
//
// The two stores live in separate databases with no shared transaction, so
// the sequence is deliberately notification-first, order-second with no
// compensation: a failed order update leaves the notification in place. Under
// at-least-once delivery a duplicate event simply creates a second
// notification and rewrites the same order status.
type OrderEventHandler struct {
	notifications NotificationCreator
	orders        OrderUpdater
	hub           Broadcaster
	now           func() time.Time
}

// NewOrderEventHandler creates an OrderEventHandler.
func NewOrderEventHandler(notifications NotificationCreator, orderStore OrderUpdater, hub Broadcaster) *OrderEventHandler {
	return &OrderEventHandler{
		notifications: notifications,
		orders:        orderStore,
		hub:           hub,
		now:           time.Now,
	}
}

// Handle processes one decoded order event. It is safe to call concurrently
// for different events; each invocation runs its step sequence to completion.
func (h *OrderEventHandler) Handle(ctx context.Context, event InboundOrderEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	// One clock read covers both writes, so the notification's created_at
	// and the order's last_updated always agree.
	now := h.now().UTC()

	orderID := event.OrderID
	orderDate := event.OrderDate
	n := &Notification{
		UserID:    event.UserID,
		Message:   fmt.Sprintf("New order created for product: %s", event.ProductID),
		Read:      false,
		CreatedAt: now,
		OrderID:   &orderID,
		OrderDate: &orderDate,
	}

	notificationID, err := h.notifications.Insert(ctx, n)
	if err != nil {
		return fmt.Errorf("create notification for order %s: %w", event.OrderID, err)
	}

	updated, err := h.orders.UpdateStatus(ctx, event.OrderID, orders.StatusCompleted, now)
	if err != nil {
		// The notification stays; there is no compensating delete. A missing
		// order surfaces as orders.ErrNotFound, never a silent skip.
		return fmt.Errorf("update order %s after notification %s: %w", event.OrderID, notificationID, err)
	}

	msg := NotificationMessage{
		OrderID:        updated.ID,
		NotificationID: notificationID,
		Status:         updated.Status,
		LastUpdated:    now.Format(time.RFC3339),
		ProductID:      event.ProductID,
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification message for order %s: %w", event.OrderID, err)
	}

	// Both publishes are fire-and-forget towards individual subscribers; the
	// only publish error is the hub being unwired, which is a bug worth
	// surfacing.
	if err := h.hub.Publish(EventNotification, notificationFrame{Message: string(raw)}); err != nil {
		return fmt.Errorf("broadcast notification for order %s: %w", event.OrderID, err)
	}
	if err := h.hub.Publish(EventOrderStatusUpdate, OrderStatusUpdate{
		OrderID:     updated.ID,
		Status:      updated.Status,
		LastUpdated: now.Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("broadcast status update for order %s: %w", event.OrderID, err)
	}

	return nil
}
