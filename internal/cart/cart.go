// Package cart holds per-customer session carts. Carts reference
// products by id only and are never persisted; they are lost on restart
// by design.
package cart

import (
	"fmt"
	"strings"
	"sync"

	"storefront-engine/internal/catalog"
	"storefront-engine/internal/models"
)

// Store maps customer ids to their carts. A single mutex guards the map;
// cart operations are cheap and a customer only ever races the map
// structure, not other customers' carts.
type Store struct {
	catalog *catalog.Catalog

	mu    sync.Mutex
	carts map[string][]models.CartItem
}

// NewStore creates an empty cart store resolving products through the
// given catalog.
func NewStore(cat *catalog.Catalog) *Store {
	return &Store{
		catalog: cat,
		carts:   make(map[string][]models.CartItem),
	}
}

// AddItem puts quantity units of a product into the customer's cart,
// merging with an existing line for the same product. The combined
// quantity must fit the product's current stock.
func (s *Store) AddItem(customerID, productID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d: %w", quantity, models.ErrInvalidArgument)
	}

	p, err := s.catalog.Get(productID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[customerID]
	for i := range items {
		if strings.EqualFold(items[i].ProductID, p.ID) {
			combined := items[i].Quantity + quantity
			if combined > p.Stock {
				return fmt.Errorf("product %s has %d in stock, cart would hold %d: %w",
					p.ID, p.Stock, combined, models.ErrInsufficientStock)
			}
			items[i].Quantity = combined
			return nil
		}
	}

	if quantity > p.Stock {
		return fmt.Errorf("product %s has %d in stock, requested %d: %w",
			p.ID, p.Stock, quantity, models.ErrInsufficientStock)
	}

	s.carts[customerID] = append(items, models.CartItem{ProductID: p.ID, Quantity: quantity})
	return nil
}

// UpdateQuantity sets the quantity of a cart line. A quantity of zero or
// less removes the line; otherwise the new quantity is re-validated
// against current stock.
func (s *Store) UpdateQuantity(customerID, productID string, quantity int) error {
	p, err := s.catalog.Get(productID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[customerID]
	for i := range items {
		if !strings.EqualFold(items[i].ProductID, p.ID) {
			continue
		}
		if quantity <= 0 {
			s.carts[customerID] = append(items[:i], items[i+1:]...)
			return nil
		}
		if quantity > p.Stock {
			return fmt.Errorf("product %s has %d in stock, requested %d: %w",
				p.ID, p.Stock, quantity, models.ErrInsufficientStock)
		}
		items[i].Quantity = quantity
		return nil
	}

	return fmt.Errorf("product %s not in cart: %w", productID, models.ErrNotFound)
}

// RemoveItem drops a product from the customer's cart.
func (s *Store) RemoveItem(customerID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[customerID]
	for i := range items {
		if strings.EqualFold(items[i].ProductID, productID) {
			s.carts[customerID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("product %s not in cart: %w", productID, models.ErrNotFound)
}

// Clear empties the customer's cart.
func (s *Store) Clear(customerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, customerID)
}

// IsEmpty reports whether the customer's cart has no items.
func (s *Store) IsEmpty(customerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts[customerID]) == 0
}

// Items returns a copy of the customer's cart in insertion order.
func (s *Store) Items(customerID string) []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[customerID]
	out := make([]models.CartItem, len(items))
	copy(out, items)
	return out
}

// Total sums the cart at current catalog prices. Prices are re-resolved
// on every call, never cached, so the figure tracks catalog edits made
// after items were added.
func (s *Store) Total(customerID string) (float64, error) {
	items := s.Items(customerID)

	var total float64
	for _, item := range items {
		p, err := s.catalog.Get(item.ProductID)
		if err != nil {
			return 0, err
		}
		total += p.Price * float64(item.Quantity)
	}
	return total, nil
}
