package worker

import (
	"context"

	"tourpack-service/internal/broker"
	"tourpack-service/internal/service"
	"tourpack-service/internal/util"

	"go.uber.org/zap"
)

// Source delivers messages to a handler until ctx is done.
type Source interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// NotificationWorker turns domain events from Kafka into participant notifications
type NotificationWorker struct {
	source       Source
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(source Source, notifications *service.NotificationService) *NotificationWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnSpinIssued(notifications.HandleSpinIssued)
	eventHandler.OnDiscountRedeemed(notifications.HandleDiscountRedeemed)
	eventHandler.OnBooking(notifications.HandleBooking)

	return &NotificationWorker{
		source:       source,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start blocks consuming events until ctx is cancelled
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.source.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop closes the underlying consumer
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.source.Close()
}
