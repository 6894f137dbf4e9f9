package worker

import (
	"context"
	"log"
	"time"

	"payment-service/internal/broker"
	"payment-service/internal/models"
	"payment-service/internal/redisclient"
)

// StatusCacheWorker keeps the Redis order-status cache in sync by consuming
// the payment domain events.
type StatusCacheWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewStatusCacheWorker creates a new status cache worker
func NewStatusCacheWorker(
	consumer *broker.Consumer,
	cache *redisclient.Client,
	statusTTL time.Duration,
) *StatusCacheWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnSessionCreated(func(ctx context.Context, event *models.SessionCreatedEvent) error {
		return cache.SetOrderStatus(ctx, event.OrderID, event.Status, statusTTL)
	})

	eventHandler.OnOrderStatusChanged(func(ctx context.Context, event *models.OrderStatusChangedEvent) error {
		return cache.SetOrderStatus(ctx, event.OrderID, event.Status, statusTTL)
	})

	return &StatusCacheWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *StatusCacheWorker) Start(ctx context.Context) error {
	log.Println("Starting status cache worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StatusCacheWorker) Stop() error {
	log.Println("Stopping status cache worker...")
	return w.consumer.Close()
}
