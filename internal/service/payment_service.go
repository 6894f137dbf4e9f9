package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"payment-service/internal/gateway"
	"payment-service/internal/models"
	"payment-service/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"
)

// ErrInvalidAmount is returned when a session is requested with a missing or
// non-positive amount. No side effects have occurred when it is returned.
var ErrInvalidAmount = errors.New("amount must be greater than zero")

// OrderStore is the persistence contract the service depends on
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, orderID string) (*models.Order, error)
	ApplyReconciliation(ctx context.Context, orderID, status string, rawStatus []byte, at time.Time) error
	RecordNotification(ctx context.Context, n *models.GatewayNotification) error
}

// GatewayClient is the payment-gateway contract the service depends on
type GatewayClient interface {
	CreateSession(ctx context.Context, params gateway.SessionParams) (*gateway.Session, error)
	VerifyNotification(ctx context.Context, payload []byte) (*gateway.TransactionStatus, error)
}

// StatusPublisher publishes domain events. Publish failures never fail the
// request; they are logged.
type StatusPublisher interface {
	PublishSessionCreated(ctx context.Context, event *models.SessionCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// StatusCache caches order statuses for the fast lookup path
type StatusCache interface {
	GetOrderStatus(ctx context.Context, orderID string) (string, error)
	SetOrderStatus(ctx context.Context, orderID, status string, ttl time.Duration) error
}

// PaymentService handles the checkout and reconciliation flows
type PaymentService struct {
	store     OrderStore
	gateway   GatewayClient
	publisher StatusPublisher
	cache     StatusCache
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	store OrderStore,
	gw GatewayClient,
	publisher StatusPublisher,
	cache StatusCache,
	cacheTTL time.Duration,
) *PaymentService {
	return &PaymentService{
		store:     store,
		gateway:   gw,
		publisher: publisher,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    util.GetLogger(),
	}
}

// CreateSessionRequest represents a request to create a payment session
type CreateSessionRequest struct {
	Amount        int64  `json:"amount"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`

	// UserID comes from the caller-identity context, not the body.
	UserID string `json:"-"`
}

// CreateSessionResponse carries the client-usable session token
type CreateSessionResponse struct {
	Token   string `json:"token"`
	OrderID string `json:"order_id"`
}

// CreatePaymentSession validates the amount, obtains a checkout session from
// the gateway and persists the initial PENDING order. On gateway failure no
// order is written.
func (s *PaymentService) CreatePaymentSession(ctx context.Context, req *CreateSessionRequest) (*CreateSessionResponse, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.CreatePaymentSession")
	defer span.End()

	if req.Amount <= 0 {
		util.PaymentSessionsFailedTotal.WithLabelValues("invalid_amount").Inc()
		return nil, ErrInvalidAmount
	}

	userID := req.UserID
	if userID == "" {
		userID = models.UserGuest
	}

	orderID := newOrderID()

	session, err := s.gateway.CreateSession(ctx, gateway.SessionParams{
		OrderID:       orderID,
		GrossAmount:   req.Amount,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		util.PaymentSessionsFailedTotal.WithLabelValues("gateway_error").Inc()
		return nil, fmt.Errorf("failed to create gateway session: %w", err)
	}

	order := &models.Order{
		OrderID:      orderID,
		UserID:       userID,
		Amount:       req.Amount,
		Status:       models.OrderStatusPending,
		SessionToken: session.Token,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		// The gateway session already exists at this point; the orphaned
		// token is an accepted inconsistency window.
		util.PaymentSessionsFailedTotal.WithLabelValues("db_error").Inc()
		s.logger.Error("Order write failed after gateway session was created",
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	util.PaymentSessionsCreatedTotal.Inc()
	s.logger.Info("Payment session created",
		zap.String("order_id", orderID),
		zap.String("user_id", userID),
		zap.Int64("amount", req.Amount))

	event := &models.SessionCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSessionCreated,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
		UserID:  userID,
		Amount:  req.Amount,
		Status:  models.OrderStatusPending,
	}

	if err := s.publisher.PublishSessionCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish SessionCreated event", zap.Error(err))
	}

	return &CreateSessionResponse{
		Token:   session.Token,
		OrderID: orderID,
	}, nil
}

// ReconcileNotification verifies an inbound webhook payload, derives the new
// order status and overwrites the stored order state. The overwrite is
// idempotent: redelivering the same payload converges to the same row.
func (s *PaymentService) ReconcileNotification(ctx context.Context, payload []byte) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.ReconcileNotification")
	defer span.End()

	util.NotificationsReceivedTotal.Inc()

	status, err := s.gateway.VerifyNotification(ctx, payload)
	if err != nil {
		util.NotificationsFailedTotal.WithLabelValues("verification").Inc()
		return fmt.Errorf("notification verification failed: %w", err)
	}

	newStatus := DeriveOrderStatus(status.TransactionStatus, status.FraudStatus)

	// paid_at records the time of the last reconciliation, whatever the
	// resulting status.
	if err := s.store.ApplyReconciliation(ctx, status.OrderID, newStatus, status.Raw, time.Now()); err != nil {
		util.NotificationsFailedTotal.WithLabelValues("persistence").Inc()
		return fmt.Errorf("failed to apply reconciliation: %w", err)
	}

	notification := &models.GatewayNotification{
		OrderID:           status.OrderID,
		TransactionStatus: status.TransactionStatus,
		FraudStatus:       status.FraudStatus,
		StatusCode:        status.StatusCode,
		Payload:           types.JSONText(status.Raw),
	}
	if err := s.store.RecordNotification(ctx, notification); err != nil {
		util.NotificationsFailedTotal.WithLabelValues("persistence").Inc()
		return fmt.Errorf("failed to record notification: %w", err)
	}

	util.NotificationsReconciledTotal.WithLabelValues(newStatus).Inc()
	s.logger.Info("Order reconciled",
		zap.String("order_id", status.OrderID),
		zap.String("transaction_status", status.TransactionStatus),
		zap.String("fraud_status", status.FraudStatus),
		zap.String("status", newStatus))

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:           status.OrderID,
		Status:            newStatus,
		TransactionStatus: status.TransactionStatus,
		FraudStatus:       status.FraudStatus,
	}

	if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	return nil
}

// GetOrder retrieves an order by its identifier
func (s *PaymentService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.store.GetOrderByID(ctx, orderID)
}

// GetOrderStatus returns the order's current status, cache first
func (s *PaymentService) GetOrderStatus(ctx context.Context, orderID string) (string, error) {
	if s.cache != nil {
		if status, err := s.cache.GetOrderStatus(ctx, orderID); err == nil {
			return status, nil
		}
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.SetOrderStatus(ctx, orderID, order.Status, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache order status",
				zap.String("order_id", orderID),
				zap.Error(err))
		}
	}

	return order.Status, nil
}

// newOrderID combines a millisecond timestamp with a four digit random
// suffix. Best-effort uniqueness, not collision-proof under concurrent load.
func newOrderID() string {
	return fmt.Sprintf("ORDER-%d-%d", time.Now().UnixMilli(), 1000+rand.Intn(9000))
}
