package models

import "time"

// Event types
const (
	EventTypeSessionCreated     = "PAYMENT_SESSION_CREATED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionCreatedEvent published when a payment session is created
type SessionCreatedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
}

// OrderStatusChangedEvent published when webhook reconciliation overwrites
// an order's status
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID           string `json:"order_id"`
	Status            string `json:"status"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
}
