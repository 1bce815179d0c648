package notifications

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNotification_JSONSerialization(t *testing.T) {
	orderID := "o1"
	orderDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := Notification{
		ID:        "n1",
		UserID:    "u1",
		Message:   "New order created for product: p1",
		Read:      false,
		CreatedAt: time.Now(),
		OrderID:   &orderID,
		OrderDate: &orderDate,
	}

	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Notification
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.ID != "n1" {
		t.Errorf("expected ID n1, got %s", decoded.ID)
	}
	if decoded.Read {
		t.Error("expected read=false")
	}
	if decoded.OrderID == nil || *decoded.OrderID != "o1" {
		t.Errorf("expected order_id o1, got %v", decoded.OrderID)
	}
}

func TestNotification_OmitsEmptyOrderFields(t *testing.T) {
	// Notifications created via the notify endpoint have no correlated order.
	n := Notification{ID: "n2", UserID: "u1", Message: "hello"}

	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var m map[string]any
	json.Unmarshal(data, &m)
	if _, ok := m["order_id"]; ok {
		t.Error("expected order_id to be omitted when nil")
	}
	if _, ok := m["order_date"]; ok {
		t.Error("expected order_date to be omitted when nil")
	}
}

func TestInboundOrderEvent_Validate(t *testing.T) {
	ev := InboundOrderEvent{UserID: "u1", ProductID: "p1", OrderID: "o1"}
	if err := ev.Validate(); err != nil {
		t.Errorf("expected valid event, got %v", err)
	}

	ev.OrderID = ""
	if err := ev.Validate(); err == nil {
		t.Error("expected validation error for missing order id")
	}
}

func TestNewNotificationStore_Constructor(t *testing.T) {
	if NewNotificationStore(nil) == nil {
		t.Fatal("expected non-nil store")
	}
}
