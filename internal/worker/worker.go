// Package worker runs the order-events audit consumer: it tails the
// order topic and records what the engine has emitted, giving operators
// a counted, logged trail without touching engine state.
package worker

import (
	"context"
	"encoding/json"

	"storefront-engine/internal/broker"
	"storefront-engine/internal/models"
	"storefront-engine/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// AuditWorker consumes order events and records per-type metrics.
type AuditWorker struct {
	consumer *broker.Consumer
	logger   *zap.Logger
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(consumer *broker.Consumer) *AuditWorker {
	return &AuditWorker{
		consumer: consumer,
		logger:   util.GetLogger(),
	}
}

// Start starts the worker
func (w *AuditWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order events audit worker")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	w.logger.Info("Stopping order events audit worker")
	return w.consumer.Close()
}

func (w *AuditWorker) handleMessage(_ context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		w.logger.Warn("Failed to unmarshal event", zap.Error(err))
		return err
	}

	util.OrderEventsObserved.WithLabelValues(base.EventType).Inc()

	switch base.EventType {
	case models.EventTypeOrderConfirmed:
		var event models.OrderConfirmedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return err
		}
		w.logger.Info("Order confirmed",
			zap.String("order_id", event.OrderID),
			zap.String("customer_id", event.CustomerID),
			zap.Float64("total", event.Total))

	case models.EventTypeOrderCancelled:
		var event models.OrderCancelledEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return err
		}
		w.logger.Info("Order cancelled",
			zap.String("order_id", event.OrderID),
			zap.String("reason", event.Reason))

	case models.EventTypeOrderStatusChanged:
		var event models.OrderStatusChangedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return err
		}
		w.logger.Info("Order status changed",
			zap.String("order_id", event.OrderID),
			zap.String("from", string(event.From)),
			zap.String("to", string(event.To)))

	default:
		w.logger.Debug("Unhandled event type", zap.String("type", base.EventType))
	}

	return nil
}
