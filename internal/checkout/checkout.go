// Package checkout coordinates the cart store, product catalog and
// order ledger to turn a cart into a confirmed order as one atomic unit.
package checkout

import (
	"context"
	"fmt"
	"time"

	"storefront-engine/internal/cart"
	"storefront-engine/internal/catalog"
	"storefront-engine/internal/ledger"
	"storefront-engine/internal/models"
	"storefront-engine/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher publishes order lifecycle events. Publishing is
// fire-and-forget: a failed publish is logged, never surfaced.
type EventPublisher interface {
	PublishOrderConfirmed(ctx context.Context, event *models.OrderConfirmedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// Service runs the checkout and cancellation transactions.
type Service struct {
	catalog *catalog.Catalog
	carts   *cart.Store
	ledger  *ledger.Ledger
	events  EventPublisher // nil disables publishing
	logger  *zap.Logger
}

// NewService creates a checkout service. events may be nil.
func NewService(cat *catalog.Catalog, carts *cart.Store, led *ledger.Ledger, events EventPublisher) *Service {
	return &Service{
		catalog: cat,
		carts:   carts,
		ledger:  led,
		events:  events,
		logger:  util.GetLogger(),
	}
}

// Checkout converts the customer's cart into a confirmed order. Either
// every item is committed (stock decremented, order recorded, cart
// cleared) or nothing is: a validation failure or a partial commit
// failure leaves all three stores untouched.
func (s *Service) Checkout(ctx context.Context, customerID string) (models.Order, error) {
	ctx, span := util.StartSpan(ctx, "Checkout.Checkout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	items := s.carts.Items(customerID)
	if len(items) == 0 {
		util.CheckoutsFailedTotal.WithLabelValues("empty_cart").Inc()
		return models.Order{}, fmt.Errorf("customer %s: %w", customerID, models.ErrEmptyCart)
	}

	// Pin every product for the whole validate+commit window. Lock
	// acquisition is sorted by product id inside LockProducts, so two
	// overlapping checkouts cannot deadlock.
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	unlock := s.catalog.LockProducts(ids)
	defer unlock()

	products, err := s.validateItems(items)
	if err != nil {
		return models.Order{}, err
	}

	orderItems, err := s.commitStock(ctx, items, products)
	if err != nil {
		return models.Order{}, err
	}

	order := models.Order{
		CustomerID: customerID,
		Items:      orderItems,
		PlacedAt:   time.Now(),
		Status:     models.OrderStatusConfirmed,
	}
	order.Recalculate()

	s.ledger.Record(ctx, &order)
	s.carts.Clear(customerID)

	util.CheckoutsCompletedTotal.Inc()
	s.logger.Info("Checkout completed",
		zap.String("order_id", order.ID),
		zap.String("customer_id", customerID),
		zap.Float64("total", order.Total))

	s.publishConfirmed(ctx, order)
	return order, nil
}

// validateItems re-resolves every cart item against the catalog. Any
// miss fails the whole checkout before stock is touched.
func (s *Service) validateItems(items []models.CartItem) (map[string]models.Product, error) {
	products := make(map[string]models.Product, len(items))
	for _, item := range items {
		p, err := s.catalog.Get(item.ProductID)
		if err != nil {
			util.CheckoutsFailedTotal.WithLabelValues("product_not_found").Inc()
			return nil, err
		}
		if item.Quantity > p.Stock {
			util.CheckoutsFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, fmt.Errorf("product %s has %d in stock, cart holds %d: %w",
				p.ID, p.Stock, item.Quantity, models.ErrInsufficientStock)
		}
		products[item.ProductID] = p
	}
	return products, nil
}

// commitStock decrements stock for every item, snapshotting name and
// price into order items. If any decrement fails, every decrement
// already applied is rolled back before the error is returned.
func (s *Service) commitStock(ctx context.Context, items []models.CartItem, products map[string]models.Product) ([]models.OrderItem, error) {
	orderItems := make([]models.OrderItem, 0, len(items))
	applied := make([]models.CartItem, 0, len(items))

	for _, item := range items {
		if _, err := s.catalog.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
			s.rollbackStock(ctx, applied)
			util.CheckoutsFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, err
		}
		applied = append(applied, item)

		p := products[item.ProductID]
		orderItems = append(orderItems, models.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
			UnitPrice:   p.Price,
		})
	}
	return orderItems, nil
}

// rollbackStock restores decrements applied by a failed commit.
func (s *Service) rollbackStock(ctx context.Context, applied []models.CartItem) {
	for _, item := range applied {
		if _, err := s.catalog.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("Failed to roll back stock decrement",
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
		}
	}
}

// Cancel cancels an order, restoring its inventory. override permits an
// administrative cancellation of another customer's order.
func (s *Service) Cancel(ctx context.Context, orderID, customerID string, override bool, reason string) error {
	ctx, span := util.StartSpan(ctx, "Checkout.Cancel")
	defer span.End()

	if err := s.ledger.Cancel(ctx, orderID, customerID, override, s.catalog); err != nil {
		return err
	}

	if s.events != nil {
		event := &models.OrderCancelledEvent{
			BaseEvent:  newBaseEvent(models.EventTypeOrderCancelled),
			OrderID:    orderID,
			CustomerID: customerID,
			Reason:     reason,
		}
		if err := s.events.PublishOrderCancelled(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
		}
	}
	return nil
}

// UpdateStatus applies an admin status change through the state machine.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, to models.OrderStatus) error {
	ctx, span := util.StartSpan(ctx, "Checkout.UpdateStatus")
	defer span.End()

	from, err := s.ledger.SetStatus(ctx, orderID, to)
	if err != nil {
		return err
	}

	if s.events != nil {
		event := &models.OrderStatusChangedEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderStatusChanged),
			OrderID:   orderID,
			From:      from,
			To:        to,
		}
		if err := s.events.PublishOrderStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
		}
	}
	return nil
}

func (s *Service) publishConfirmed(ctx context.Context, order models.Order) {
	if s.events == nil {
		return
	}

	itemData := make([]models.OrderItemData, 0, len(order.Items))
	for _, item := range order.Items {
		itemData = append(itemData, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	event := &models.OrderConfirmedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeOrderConfirmed),
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Total:      order.Total,
		Items:      itemData,
	}
	if err := s.events.PublishOrderConfirmed(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderConfirmed event", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
