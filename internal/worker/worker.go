package worker

import (
	"context"
	"errors"
	"time"

	"shop-service/internal/broker"
	"shop-service/internal/models"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// Sender delivers an order summary
type Sender interface {
	NotifyOrderPlaced(ctx context.Context, notification *models.OrderNotification) error
}

// NotificationWorker consumes OrderPlaced events and mails the operator
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	sender       Sender
	timeout      time.Duration
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, sender Sender, timeout time.Duration) *NotificationWorker {
	w := &NotificationWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		sender:       sender,
		timeout:      timeout,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnOrderPlaced(w.HandleOrderPlaced)
	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

// HandleOrderPlaced sends one notification. Delivery failures are logged and the
// event is still acknowledged, so a broken mailbox never blocks the topic.
func (w *NotificationWorker) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationWorker.HandleOrderPlaced")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	err := w.sender.NotifyOrderPlaced(ctx, &event.Notification)
	util.NotificationLatency.WithLabelValues(util.NotifyStageDelivery).Observe(time.Since(start).Seconds())

	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		util.NotificationsFailedTotal.WithLabelValues(util.NotifyStageDelivery, reason).Inc()
		util.RecordError(span, err)
		w.logger.Error("Failed to deliver order notification",
			zap.String("event_id", event.EventID),
			zap.Int64("order_id", event.Notification.OrderID),
			zap.Error(err))
		return nil
	}

	util.NotificationsSentTotal.WithLabelValues(util.NotifyStageDelivery).Inc()
	w.logger.Info("Order notification delivered",
		zap.String("event_id", event.EventID),
		zap.Int64("order_id", event.Notification.OrderID))
	return nil
}
