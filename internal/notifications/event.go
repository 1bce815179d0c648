package notifications

import (
	"time"
)

// Names of the real-time events pushed through the hub.
const (
	EventNotification        = "notification"
	EventOrderStatusUpdate   = "orderStatusUpdate"
	EventNotificationDeleted = "notificationDeleted"
)

// InboundOrderEvent is the wire payload of one order-created message. The
// order service publishes its raw document, so the order id arrives as "_id".
// The payload is untrusted and must be validated before use.
type InboundOrderEvent struct {
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	OrderID   string    `json:"_id"`
	OrderDate time.Time `json:"orderDate"`
}

// ValidationError reports a required field missing from an inbound event.
// Invalid events are dropped; they cannot become valid by retrying.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "missing required field: " + e.Field
}

// Validate checks that the identities the handler depends on are present.
func (e *InboundOrderEvent) Validate() error {
	switch {
	case e.UserID == "":
		return &ValidationError{Field: "userId"}
	case e.ProductID == "":
		return &ValidationError{Field: "productId"}
	case e.OrderID == "":
		return &ValidationError{Field: "_id"}
	}
	return nil
}

// NotificationMessage is serialized to a JSON string and carried inside the
// notification event's "message" field, matching what the frontend expects.
type NotificationMessage struct {
	OrderID        string `json:"orderId"`
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"`
	LastUpdated    string `json:"lastUpdated"`
	ProductID      string `json:"productId"`
}

// OrderStatusUpdate is the payload of the orderStatusUpdate event.
type OrderStatusUpdate struct {
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	LastUpdated string `json:"lastUpdated"`
}

// NotificationDeleted is the payload of the notificationDeleted event,
// emitted by the delete endpoint so connected clients refresh their lists.
type NotificationDeleted struct {
	NotificationID string `json:"notificationId"`
}
