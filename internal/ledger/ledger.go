// Package ledger keeps the append-only history of orders. Orders are
// never deleted; status changes go through the validated state machine.
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"storefront-engine/internal/models"
	"storefront-engine/internal/recordstore"
	"storefront-engine/internal/util"

	"go.uber.org/zap"
)

// Order ids are ORD<counter>; the counter is seeded above this floor and
// above any persisted maximum, never reused.
const idFloor = 5000

// StockAdjuster restores inventory during cancellation. Satisfied by the
// product catalog.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, id string, delta int) (int, error)
}

// Ledger is the in-memory order history backed by a record store. One
// mutex serializes appends and status changes, which also satisfies the
// per-order no-lost-update requirement.
type Ledger struct {
	store  recordstore.Store
	logger *zap.Logger

	mu     sync.Mutex
	orders []*models.Order // append order
	byID   map[string]*models.Order
	seq    int
}

// New loads the ledger from the record store.
func New(ctx context.Context, store recordstore.Store) (*Ledger, error) {
	l := &Ledger{
		store:  store,
		logger: util.GetLogger(),
		byID:   make(map[string]*models.Order),
		seq:    idFloor,
	}

	lines, err := store.ReadAll(ctx, recordstore.CollectionOrders)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	for _, line := range lines {
		o, err := models.ParseOrder(line)
		if err != nil {
			l.logger.Warn("Skipping malformed order record",
				zap.String("line", line), zap.Error(err))
			continue
		}
		l.insert(o)
	}

	l.logger.Info("Order ledger loaded", zap.Int("orders", len(l.orders)))
	return l, nil
}

func key(id string) string {
	return strings.ToUpper(id)
}

func (l *Ledger) insert(o models.Order) {
	k := key(o.ID)
	if _, exists := l.byID[k]; exists {
		return
	}
	stored := o
	l.orders = append(l.orders, &stored)
	l.byID[k] = &stored
	if n := idNumber(o.ID); n > l.seq {
		l.seq = n
	}
}

func idNumber(id string) int {
	upper := strings.ToUpper(id)
	if !strings.HasPrefix(upper, "ORD") {
		return 0
	}
	n, err := strconv.Atoi(upper[3:])
	if err != nil {
		return 0
	}
	return n
}

// persistLocked writes the whole collection. Callers hold l.mu. A failed
// write is a warning; in-memory state stays authoritative.
func (l *Ledger) persistLocked(ctx context.Context) {
	lines := make([]string, 0, len(l.orders))
	for _, o := range l.orders {
		lines = append(lines, models.EncodeOrder(*o))
	}
	if err := l.store.WriteAll(ctx, recordstore.CollectionOrders, lines); err != nil {
		util.PersistenceWriteFailures.WithLabelValues(recordstore.CollectionOrders).Inc()
		l.logger.Warn("Failed to persist orders", zap.Error(err))
	}
}

// Record assigns the next order id and appends the order to the history.
func (l *Ledger) Record(ctx context.Context, o *models.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	o.ID = fmt.Sprintf("ORD%d", l.seq)

	stored := *o
	stored.Items = make([]models.OrderItem, len(o.Items))
	copy(stored.Items, o.Items)

	l.orders = append(l.orders, &stored)
	l.byID[key(stored.ID)] = &stored

	l.persistLocked(ctx)
	l.logger.Info("Order recorded",
		zap.String("order_id", stored.ID),
		zap.String("customer_id", stored.CustomerID),
		zap.Float64("total", stored.Total))
}

func clone(o *models.Order) models.Order {
	out := *o
	out.Items = make([]models.OrderItem, len(o.Items))
	copy(out.Items, o.Items)
	return out
}

// FindByID returns the order with the given id. Lookup is
// case-insensitive.
func (l *Ledger) FindByID(id string) (models.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.byID[key(id)]
	if !ok {
		return models.Order{}, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	return clone(o), nil
}

// FindByCustomer returns the customer's orders in ledger order.
func (l *Ledger) FindByCustomer(customerID string) []models.Order {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := []models.Order{}
	for _, o := range l.orders {
		if o.CustomerID == customerID {
			out = append(out, clone(o))
		}
	}
	return out
}

// All returns every order in ledger order.
func (l *Ledger) All() []models.Order {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Order, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, clone(o))
	}
	return out
}

// SetStatus moves an order to a new status if the state machine allows
// it, returning the previous status.
func (l *Ledger) SetStatus(ctx context.Context, orderID string, to models.OrderStatus) (models.OrderStatus, error) {
	if !to.Valid() {
		return "", fmt.Errorf("unknown status %q: %w", to, models.ErrInvalidArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.byID[key(orderID)]
	if !ok {
		return "", fmt.Errorf("order %s: %w", orderID, models.ErrNotFound)
	}

	from := o.Status
	if !models.CanTransition(from, to) {
		return from, fmt.Errorf("order %s cannot move from %s to %s: %w",
			o.ID, from, to, models.ErrInvalidTransition)
	}

	o.Status = to
	l.persistLocked(ctx)
	l.logger.Info("Order status updated",
		zap.String("order_id", o.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return from, nil
}

// Cancel cancels an order on behalf of its owner (or any caller when
// override is set). Stock is restored through the adjuster first; the
// order flips to CANCELLED only once every restore has succeeded, so a
// cancelled order never coexists with unrestored inventory.
func (l *Ledger) Cancel(ctx context.Context, orderID, customerID string, override bool, stock StockAdjuster) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.byID[key(orderID)]
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, models.ErrNotFound)
	}

	if !override && o.CustomerID != customerID {
		return fmt.Errorf("order %s does not belong to customer %s: %w",
			o.ID, customerID, models.ErrUnauthorized)
	}

	if !o.Status.Cancellable() {
		return fmt.Errorf("order %s is %s: %w", o.ID, o.Status, models.ErrInvalidTransition)
	}

	for i, item := range o.Items {
		if _, err := stock.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			// Undo the restores already applied so the ledger and
			// catalog stay consistent with each other.
			for j := 0; j < i; j++ {
				if _, undoErr := stock.AdjustStock(ctx, o.Items[j].ProductID, -o.Items[j].Quantity); undoErr != nil {
					l.logger.Error("Failed to undo stock restore",
						zap.String("order_id", o.ID),
						zap.String("product_id", o.Items[j].ProductID),
						zap.Error(undoErr))
				}
			}
			return fmt.Errorf("restore stock for %s: %w", item.ProductID, err)
		}
	}

	o.Status = models.OrderStatusCancelled
	util.OrdersCancelledTotal.Inc()
	l.persistLocked(ctx)
	l.logger.Info("Order cancelled",
		zap.String("order_id", o.ID),
		zap.String("customer_id", o.CustomerID))
	return nil
}
