package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"payment-service/internal/gateway"
	"payment-service/internal/models"
	"payment-service/internal/store"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	orders        map[string]*models.Order
	notifications []*models.GatewayNotification
	createErr     error
	applyErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[string]*models.Order)}
}

func (f *fakeStore) CreateOrder(_ context.Context, order *models.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	order.CreatedAt = time.Now()
	clone := *order
	f.orders[order.OrderID] = &clone
	return nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, orderID string) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	clone := *order
	return &clone, nil
}

func (f *fakeStore) ApplyReconciliation(_ context.Context, orderID, status string, rawStatus []byte, at time.Time) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	order, ok := f.orders[orderID]
	if !ok {
		return store.ErrOrderNotFound
	}
	order.Status = status
	order.PaidAt.Time = at
	order.PaidAt.Valid = true
	order.RawGatewayStatus = types.JSONText(rawStatus)
	return nil
}

func (f *fakeStore) RecordNotification(_ context.Context, n *models.GatewayNotification) error {
	n.ID = int64(len(f.notifications) + 1)
	n.ReceivedAt = time.Now()
	f.notifications = append(f.notifications, n)
	return nil
}

type fakeGateway struct {
	session      *gateway.Session
	sessionErr   error
	status       *gateway.TransactionStatus
	verifyErr    error
	sessionCalls int
	verifyCalls  int
	lastParams   gateway.SessionParams
}

func (f *fakeGateway) CreateSession(_ context.Context, params gateway.SessionParams) (*gateway.Session, error) {
	f.sessionCalls++
	f.lastParams = params
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeGateway) VerifyNotification(_ context.Context, _ []byte) (*gateway.TransactionStatus, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.status, nil
}

type fakePublisher struct {
	sessionEvents []*models.SessionCreatedEvent
	statusEvents  []*models.OrderStatusChangedEvent
}

func (f *fakePublisher) PublishSessionCreated(_ context.Context, e *models.SessionCreatedEvent) error {
	f.sessionEvents = append(f.sessionEvents, e)
	return nil
}

func (f *fakePublisher) PublishOrderStatusChanged(_ context.Context, e *models.OrderStatusChangedEvent) error {
	f.statusEvents = append(f.statusEvents, e)
	return nil
}

type fakeCache struct {
	statuses map[string]string
}

func (f *fakeCache) GetOrderStatus(_ context.Context, orderID string) (string, error) {
	if status, ok := f.statuses[orderID]; ok {
		return status, nil
	}
	return "", errors.New("cache miss")
}

func (f *fakeCache) SetOrderStatus(_ context.Context, orderID, status string, _ time.Duration) error {
	f.statuses[orderID] = status
	return nil
}

func newTestService(st *fakeStore, gw *fakeGateway, pub *fakePublisher) *PaymentService {
	return NewPaymentService(st, gw, pub, &fakeCache{statuses: make(map[string]string)}, time.Minute)
}

func TestCreatePaymentSessionInvalidAmount(t *testing.T) {
	for _, amount := range []int64{0, -500} {
		st := newFakeStore()
		gw := &fakeGateway{}
		svc := newTestService(st, gw, &fakePublisher{})

		_, err := svc.CreatePaymentSession(context.Background(), &CreateSessionRequest{Amount: amount})
		assert.True(t, errors.Is(err, ErrInvalidAmount))
		assert.Zero(t, gw.sessionCalls, "gateway must not be called for invalid amount")
		assert.Empty(t, st.orders, "no order may be written for invalid amount")
	}
}

func TestCreatePaymentSession(t *testing.T) {
	st := newFakeStore()
	gw := &fakeGateway{session: &gateway.Session{Token: "snap-token-abc"}}
	pub := &fakePublisher{}
	svc := newTestService(st, gw, pub)

	resp, err := svc.CreatePaymentSession(context.Background(), &CreateSessionRequest{
		Amount: 150000,
		UserID: "user-42",
	})
	require.NoError(t, err)

	assert.Equal(t, "snap-token-abc", resp.Token)
	assert.True(t, strings.HasPrefix(resp.OrderID, "ORDER-"))
	assert.Equal(t, resp.OrderID, gw.lastParams.OrderID)
	assert.Equal(t, int64(150000), gw.lastParams.GrossAmount)

	require.Len(t, st.orders, 1)
	order := st.orders[resp.OrderID]
	require.NotNil(t, order)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "user-42", order.UserID)
	assert.Equal(t, int64(150000), order.Amount)
	assert.Equal(t, resp.Token, order.SessionToken, "returned token must match the stored one")

	require.Len(t, pub.sessionEvents, 1)
	assert.Equal(t, resp.OrderID, pub.sessionEvents[0].OrderID)
}

func TestCreatePaymentSessionGuestFallback(t *testing.T) {
	st := newFakeStore()
	gw := &fakeGateway{session: &gateway.Session{Token: "tok"}}
	svc := newTestService(st, gw, &fakePublisher{})

	resp, err := svc.CreatePaymentSession(context.Background(), &CreateSessionRequest{Amount: 100})
	require.NoError(t, err)
	assert.Equal(t, models.UserGuest, st.orders[resp.OrderID].UserID)
}

func TestCreatePaymentSessionGatewayFailure(t *testing.T) {
	st := newFakeStore()
	gw := &fakeGateway{sessionErr: errors.New("gateway unreachable")}
	svc := newTestService(st, gw, &fakePublisher{})

	_, err := svc.CreatePaymentSession(context.Background(), &CreateSessionRequest{Amount: 100})
	require.Error(t, err)
	assert.Empty(t, st.orders, "no order may be written when the gateway fails")
}

func TestCreatePaymentSessionStoreFailure(t *testing.T) {
	st := newFakeStore()
	st.createErr = errors.New("connection reset")
	gw := &fakeGateway{session: &gateway.Session{Token: "tok"}}
	svc := newTestService(st, gw, &fakePublisher{})

	_, err := svc.CreatePaymentSession(context.Background(), &CreateSessionRequest{Amount: 100})
	require.Error(t, err)
	assert.Equal(t, 1, gw.sessionCalls)
}

func settlementStatus(orderID string) *gateway.TransactionStatus {
	raw, _ := json.Marshal(map[string]string{
		"order_id":           orderID,
		"transaction_status": "settlement",
		"fraud_status":       "accept",
		"status_code":        "200",
	})
	return &gateway.TransactionStatus{
		OrderID:           orderID,
		TransactionStatus: "settlement",
		FraudStatus:       "accept",
		StatusCode:        "200",
		Raw:               raw,
	}
}

func seedOrder(st *fakeStore, orderID string) {
	st.orders[orderID] = &models.Order{
		OrderID:   orderID,
		UserID:    "user-42",
		Amount:    150000,
		Status:    models.OrderStatusPending,
		CreatedAt: time.Now(),
	}
}

func TestReconcileNotification(t *testing.T) {
	st := newFakeStore()
	seedOrder(st, "ORDER-1")
	gw := &fakeGateway{status: settlementStatus("ORDER-1")}
	pub := &fakePublisher{}
	svc := newTestService(st, gw, pub)

	err := svc.ReconcileNotification(context.Background(), []byte(`{"order_id":"ORDER-1"}`))
	require.NoError(t, err)

	order := st.orders["ORDER-1"]
	assert.Equal(t, models.OrderStatusSuccess, order.Status)
	assert.True(t, order.PaidAt.Valid, "reconciliation timestamp must be set")
	assert.JSONEq(t, string(gw.status.Raw), string(order.RawGatewayStatus))
	assert.Equal(t, int64(150000), order.Amount, "amount never comes from the webhook")

	require.Len(t, st.notifications, 1)
	assert.Equal(t, "settlement", st.notifications[0].TransactionStatus)

	require.Len(t, pub.statusEvents, 1)
	assert.Equal(t, models.OrderStatusSuccess, pub.statusEvents[0].Status)
}

func TestReconcileNotificationIdempotent(t *testing.T) {
	st := newFakeStore()
	seedOrder(st, "ORDER-1")
	gw := &fakeGateway{status: settlementStatus("ORDER-1")}
	svc := newTestService(st, gw, &fakePublisher{})

	payload := []byte(`{"order_id":"ORDER-1"}`)
	require.NoError(t, svc.ReconcileNotification(context.Background(), payload))

	first := *st.orders["ORDER-1"]

	require.NoError(t, svc.ReconcileNotification(context.Background(), payload))

	second := *st.orders["ORDER-1"]
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, string(first.RawGatewayStatus), string(second.RawGatewayStatus))
	assert.Len(t, st.notifications, 2, "every delivery is recorded in the audit trail")
}

func TestReconcileNotificationVerifyFailure(t *testing.T) {
	st := newFakeStore()
	seedOrder(st, "ORDER-1")
	gw := &fakeGateway{verifyErr: gateway.ErrInvalidSignature}
	svc := newTestService(st, gw, &fakePublisher{})

	err := svc.ReconcileNotification(context.Background(), []byte(`{"order_id":"ORDER-1"}`))
	require.Error(t, err)
	assert.Equal(t, models.OrderStatusPending, st.orders["ORDER-1"].Status, "no mutation on verification failure")
	assert.Empty(t, st.notifications)
}

func TestReconcileNotificationUnknownOrder(t *testing.T) {
	st := newFakeStore()
	gw := &fakeGateway{status: settlementStatus("ORDER-unknown")}
	svc := newTestService(st, gw, &fakePublisher{})

	err := svc.ReconcileNotification(context.Background(), []byte(`{"order_id":"ORDER-unknown"}`))
	assert.True(t, errors.Is(err, store.ErrOrderNotFound))
	assert.Empty(t, st.orders)
}

func TestReconcileNotificationOverwritesTerminalStatus(t *testing.T) {
	// Last write wins: a stale pending redelivery regresses a SUCCESS order.
	st := newFakeStore()
	seedOrder(st, "ORDER-1")
	st.orders["ORDER-1"].Status = models.OrderStatusSuccess

	gw := &fakeGateway{status: &gateway.TransactionStatus{
		OrderID:           "ORDER-1",
		TransactionStatus: "pending",
		StatusCode:        "201",
		Raw:               []byte(`{"order_id":"ORDER-1","transaction_status":"pending"}`),
	}}
	svc := newTestService(st, gw, &fakePublisher{})

	require.NoError(t, svc.ReconcileNotification(context.Background(), []byte(`{"order_id":"ORDER-1"}`)))
	assert.Equal(t, models.OrderStatusPending, st.orders["ORDER-1"].Status)
}

func TestGetOrderStatusCaching(t *testing.T) {
	st := newFakeStore()
	seedOrder(st, "ORDER-1")
	cache := &fakeCache{statuses: make(map[string]string)}
	svc := NewPaymentService(st, &fakeGateway{}, &fakePublisher{}, cache, time.Minute)

	status, err := svc.GetOrderStatus(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, status)
	assert.Equal(t, models.OrderStatusPending, cache.statuses["ORDER-1"], "miss populates the cache")

	// A cached value is served even if the row disappears.
	delete(st.orders, "ORDER-1")
	status, err = svc.GetOrderStatus(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, status)
}

func TestNewOrderIDFormat(t *testing.T) {
	id := newOrderID()
	parts := strings.Split(id, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "ORDER", parts[0])
	assert.Len(t, parts[2], 4, "random suffix is four digits")
}
