package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"payment-service/internal/models"
)

// ErrOrderNotFound is returned when an order_id has no row.
var ErrOrderNotFound = errors.New("order not found")

// CreateOrder inserts a new order row. A duplicate order_id fails on the
// primary key rather than merging into the existing row.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (order_id, user_id, amount, status, session_token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	return s.db.GetContext(ctx, &order.CreatedAt, query,
		order.OrderID, order.UserID, order.Amount, order.Status, order.SessionToken)
}

// GetOrderByID retrieves an order by its order_id
func (s *Store) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE order_id = $1", orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ApplyReconciliation overwrites the order's status, reconciliation
// timestamp and raw gateway payload. The update is a full overwrite, so a
// redelivered notification converges to the same stored state.
func (s *Store) ApplyReconciliation(ctx context.Context, orderID, status string, rawStatus []byte, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, paid_at = $2, raw_gateway_status = $3 WHERE order_id = $4",
		status, at, rawStatus, orderID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return nil
}

// GetOrdersByUserID retrieves orders for a user
func (s *Store) GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// RecordNotification appends a verified webhook delivery to the audit log
func (s *Store) RecordNotification(ctx context.Context, n *models.GatewayNotification) error {
	query := `
		INSERT INTO gateway_notifications (order_id, transaction_status, fraud_status, status_code, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, received_at`

	return s.db.QueryRowxContext(ctx, query,
		n.OrderID, n.TransactionStatus, n.FraudStatus, n.StatusCode, n.Payload).
		Scan(&n.ID, &n.ReceivedAt)
}

// GetNotificationsByOrderID retrieves the audit trail for an order
func (s *Store) GetNotificationsByOrderID(ctx context.Context, orderID string) ([]models.GatewayNotification, error) {
	var notifications []models.GatewayNotification
	err := s.db.SelectContext(ctx, &notifications,
		"SELECT * FROM gateway_notifications WHERE order_id = $1 ORDER BY received_at", orderID)
	return notifications, err
}
