package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"payment-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return &Store{db: sqlx.NewDb(mockDB, "sqlmock")}, mock
}

func TestCreateOrder(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs("ORDER-1700000000000-4821", "user-42", int64(150000), models.OrderStatusPending, "snap-token-abc").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	order := &models.Order{
		OrderID:      "ORDER-1700000000000-4821",
		UserID:       "user-42",
		Amount:       150000,
		Status:       models.OrderStatusPending,
		SessionToken: "snap-token-abc",
	}

	err := s.CreateOrder(ctx, order)
	assert.NoError(t, err)
	assert.Equal(t, now, order.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByIDNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM orders WHERE order_id = $1")).
		WithArgs("ORDER-missing").
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}))

	_, err := s.GetOrderByID(context.Background(), "ORDER-missing")
	assert.True(t, errors.Is(err, ErrOrderNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyReconciliation(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Now()
	raw := []byte(`{"transaction_status":"settlement"}`)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = $1, paid_at = $2, raw_gateway_status = $3 WHERE order_id = $4")).
		WithArgs(models.OrderStatusSuccess, at, raw, "ORDER-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.ApplyReconciliation(context.Background(), "ORDER-1", models.OrderStatusSuccess, raw, at)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyReconciliationUnknownOrder(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET")).
		WithArgs(models.OrderStatusFailed, at, []byte(`{}`), "ORDER-unknown").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.ApplyReconciliation(context.Background(), "ORDER-unknown", models.OrderStatusFailed, []byte(`{}`), at)
	assert.True(t, errors.Is(err, ErrOrderNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordNotification(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO gateway_notifications")).
		WithArgs("ORDER-1", "settlement", "accept", "200", []byte(`{"order_id":"ORDER-1"}`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "received_at"}).AddRow(int64(7), now))

	n := &models.GatewayNotification{
		OrderID:           "ORDER-1",
		TransactionStatus: "settlement",
		FraudStatus:       "accept",
		StatusCode:        "200",
		Payload:           []byte(`{"order_id":"ORDER-1"}`),
	}

	err := s.RecordNotification(context.Background(), n)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), n.ID)
	assert.Equal(t, now, n.ReceivedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
