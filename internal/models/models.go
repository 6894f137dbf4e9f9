package models

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Order represents a payment order. One row exists per order_id; the row is
// created once by session creation and overwritten by webhook reconciliation.
type Order struct {
	OrderID          string         `db:"order_id" json:"order_id"`
	UserID           string         `db:"user_id" json:"user_id"`
	Amount           int64          `db:"amount" json:"amount"`
	Status           string         `db:"status" json:"status"`
	SessionToken     string         `db:"session_token" json:"session_token,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	PaidAt           sql.NullTime   `db:"paid_at" json:"paid_at,omitempty"`
	RawGatewayStatus types.JSONText `db:"raw_gateway_status" json:"raw_gateway_status,omitempty"`
}

// GatewayNotification is an append-only audit record of every verified
// webhook delivery, including redeliveries.
type GatewayNotification struct {
	ID                int64          `db:"id" json:"id"`
	OrderID           string         `db:"order_id" json:"order_id"`
	TransactionStatus string         `db:"transaction_status" json:"transaction_status"`
	FraudStatus       string         `db:"fraud_status" json:"fraud_status"`
	StatusCode        string         `db:"status_code" json:"status_code"`
	Payload           types.JSONText `db:"payload" json:"payload"`
	ReceivedAt        time.Time      `db:"received_at" json:"received_at"`
}

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusSuccess   = "SUCCESS"
	OrderStatusFailed    = "FAILED"
	OrderStatusChallenge = "CHALLENGE"
)

// UserGuest is the user_id sentinel for unauthenticated purchases.
const UserGuest = "guest"
