package models

import "time"

// Tax applied to every order subtotal. Flat rate, no jurisdiction logic.
const TaxRate = 0.08

// Product represents an item in the catalog. Stock is only ever mutated
// through the catalog's AdjustStock so it can never go negative.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"`
}

// Available reports whether the product has any stock left.
func (p Product) Available() bool {
	return p.Stock > 0
}

// CartItem is a weak reference into the catalog: it carries the product
// id only, so price and availability are always resolved live.
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderItem freezes the product name and unit price at purchase time.
// Later catalog edits do not change historical orders.
type OrderItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Subtotal returns price x quantity for this line.
func (i OrderItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Valid reports whether s is a known status value.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Cancellable reports whether an order in status s may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped:
		return true
	}
	return false
}

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered, OrderStatusCancelled},
}

// CanTransition reports whether an order may move from one status to
// another. Terminal states have no outgoing transitions.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is one entry in the append-only ledger. Totals are derived from
// the items via Recalculate and never hand-edited.
type Order struct {
	ID         string      `json:"id"`
	CustomerID string      `json:"customer_id"`
	Items      []OrderItem `json:"items"`
	Subtotal   float64     `json:"subtotal"`
	Tax        float64     `json:"tax"`
	Total      float64     `json:"total"`
	PlacedAt   time.Time   `json:"placed_at"`
	Status     OrderStatus `json:"status"`
}

// Recalculate recomputes subtotal, tax and total from the items.
func (o *Order) Recalculate() {
	o.Subtotal = 0
	for _, item := range o.Items {
		o.Subtotal += item.Subtotal()
	}
	o.Tax = o.Subtotal * TaxRate
	o.Total = o.Subtotal + o.Tax
}

// Role distinguishes the two kinds of users. Dispatch is purely on role,
// so this is a tagged variant rather than a type hierarchy.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

// User is a registered customer or administrator. Address is set for
// customers, AdminLevel for admins.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"-"`
	Phone      string `json:"phone"`
	Role       Role   `json:"role"`
	Address    string `json:"address,omitempty"`
	AdminLevel string `json:"admin_level,omitempty"`
}
