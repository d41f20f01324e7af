package models

import "time"

// Event types
const (
	EventTypeOrderConfirmed     = "ORDER_CONFIRMED"
	EventTypeOrderCancelled     = "ORDER_CANCELLED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// OrderConfirmedEvent is published when a checkout produces an order.
type OrderConfirmedEvent struct {
	BaseEvent
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Total      float64         `json:"total"`
	Items      []OrderItemData `json:"items"`
}

// OrderCancelledEvent is published after stock has been restored and the
// order marked cancelled.
type OrderCancelledEvent struct {
	BaseEvent
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
	Reason     string `json:"reason"`
}

// OrderStatusChangedEvent is published on admin status updates.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID string      `json:"order_id"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
}
