// Package catalog owns the product set and its stock counters. All
// stock changes funnel through AdjustStock, which is the single
// serialization point for inventory.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"storefront-engine/internal/models"
	"storefront-engine/internal/recordstore"
	"storefront-engine/internal/util"

	"go.uber.org/zap"
)

// Product ids are P<counter>; the counter is seeded above this floor and
// above any persisted maximum, never reused.
const idFloor = 1000

// Catalog is the in-memory product catalog backed by a record store.
type Catalog struct {
	store  recordstore.Store
	logger *zap.Logger

	mu       sync.RWMutex
	products map[string]*models.Product // keyed by uppercased id
	order    []string                   // insertion order of keys
	seq      int

	// per-product mutexes used by checkout to pin a product for the
	// whole validate+commit window
	locks sync.Map
}

// New loads the catalog from the record store. An empty products
// collection gets the sample catalog seeded into it.
func New(ctx context.Context, store recordstore.Store) (*Catalog, error) {
	c := &Catalog{
		store:    store,
		logger:   util.GetLogger(),
		products: make(map[string]*models.Product),
		seq:      idFloor,
	}

	lines, err := store.ReadAll(ctx, recordstore.CollectionProducts)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	for _, line := range lines {
		p, err := models.ParseProduct(line)
		if err != nil {
			c.logger.Warn("Skipping malformed product record",
				zap.String("line", line), zap.Error(err))
			continue
		}
		c.insert(p)
	}

	if len(c.order) == 0 {
		c.seedSamples()
		c.persistLocked(ctx)
	}

	c.logger.Info("Catalog loaded", zap.Int("products", len(c.order)))
	return c, nil
}

func key(id string) string {
	return strings.ToUpper(id)
}

// insert assumes no concurrent access (load path only).
func (c *Catalog) insert(p models.Product) {
	k := key(p.ID)
	if _, exists := c.products[k]; exists {
		return
	}
	c.products[k] = &p
	c.order = append(c.order, k)
	if n := idNumber(p.ID); n > c.seq {
		c.seq = n
	}
}

func idNumber(id string) int {
	upper := strings.ToUpper(id)
	if !strings.HasPrefix(upper, "P") {
		return 0
	}
	n, err := strconv.Atoi(upper[1:])
	if err != nil {
		return 0
	}
	return n
}

func (c *Catalog) seedSamples() {
	samples := []models.Product{
		{ID: "P1001", Name: "Laptop", Description: "High-performance laptop", Price: 899.99, Stock: 10, Category: "Electronics"},
		{ID: "P1002", Name: "Smartphone", Description: "Latest model smartphone", Price: 599.99, Stock: 25, Category: "Electronics"},
		{ID: "P1003", Name: "Headphones", Description: "Wireless noise-canceling", Price: 149.99, Stock: 50, Category: "Electronics"},
		{ID: "P1004", Name: "Book - Go Programming", Description: "Complete Go guide", Price: 39.99, Stock: 100, Category: "Books"},
		{ID: "P1005", Name: "Coffee Maker", Description: "Automatic coffee machine", Price: 79.99, Stock: 30, Category: "Home"},
		{ID: "P1006", Name: "Desk Chair", Description: "Ergonomic office chair", Price: 199.99, Stock: 15, Category: "Furniture"},
		{ID: "P1007", Name: "Water Bottle", Description: "Stainless steel, 1L", Price: 24.99, Stock: 200, Category: "Sports"},
		{ID: "P1008", Name: "Backpack", Description: "Laptop backpack", Price: 49.99, Stock: 40, Category: "Accessories"},
	}
	for _, p := range samples {
		c.insert(p)
	}
	c.logger.Info("Seeded sample catalog", zap.Int("products", len(samples)))
}

// persistLocked writes the whole collection. Callers hold c.mu. A failed
// write is a warning; in-memory state stays authoritative.
func (c *Catalog) persistLocked(ctx context.Context) {
	lines := make([]string, 0, len(c.order))
	for _, k := range c.order {
		lines = append(lines, models.EncodeProduct(*c.products[k]))
	}
	if err := c.store.WriteAll(ctx, recordstore.CollectionProducts, lines); err != nil {
		util.PersistenceWriteFailures.WithLabelValues(recordstore.CollectionProducts).Inc()
		c.logger.Warn("Failed to persist products", zap.Error(err))
	}
}

// Get returns the product with the given id. Lookup is case-insensitive.
func (c *Catalog) Get(id string) (models.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[key(id)]
	if !ok {
		return models.Product{}, fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}
	return *p, nil
}

// All returns every product in stable insertion order.
func (c *Catalog) All() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Product, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, *c.products[k])
	}
	return out
}

// Add creates a product with the next id in sequence. The given id, if
// any, is ignored.
func (c *Catalog) Add(ctx context.Context, p models.Product) (models.Product, error) {
	if err := validate(p); err != nil {
		return models.Product{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	p.ID = fmt.Sprintf("P%d", c.seq)
	k := key(p.ID)
	c.products[k] = &p
	c.order = append(c.order, k)

	c.persistLocked(ctx)
	c.logger.Info("Product added", zap.String("product_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// Update replaces the mutable fields of an existing product.
func (c *Catalog) Update(ctx context.Context, id string, p models.Product) error {
	if err := validate(p); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.products[key(id)]
	if !ok {
		return fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}

	existing.Name = p.Name
	existing.Description = p.Description
	existing.Price = p.Price
	existing.Stock = p.Stock
	existing.Category = p.Category

	c.persistLocked(ctx)
	return nil
}

// Remove deletes a product from the catalog.
func (c *Catalog) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(id)
	if _, ok := c.products[k]; !ok {
		return fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}

	delete(c.products, k)
	for i, other := range c.order {
		if other == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	c.persistLocked(ctx)
	c.logger.Info("Product removed", zap.String("product_id", id))
	return nil
}

func validate(p models.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product name required: %w", models.ErrInvalidArgument)
	}
	if p.Price < 0 {
		return fmt.Errorf("product price must be non-negative: %w", models.ErrInvalidArgument)
	}
	if p.Stock < 0 {
		return fmt.Errorf("product stock must be non-negative: %w", models.ErrInvalidArgument)
	}
	return nil
}

// AdjustStock applies stock += delta and returns the new stock count.
// Concurrent calls against the same product are linearized by the
// catalog lock; a result that would go negative commits nothing.
func (c *Catalog) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[key(id)]
	if !ok {
		util.StockAdjustmentsTotal.WithLabelValues("not_found").Inc()
		return 0, fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}

	if p.Stock+delta < 0 {
		util.StockAdjustmentsTotal.WithLabelValues("insufficient").Inc()
		return p.Stock, fmt.Errorf("product %s has %d in stock, need %d: %w",
			p.ID, p.Stock, -delta, models.ErrInsufficientStock)
	}

	p.Stock += delta
	util.StockAdjustmentsTotal.WithLabelValues("ok").Inc()

	c.persistLocked(ctx)
	return p.Stock, nil
}

// LockProducts acquires the per-product mutexes for the given ids,
// sorted and deduplicated so multi-item checkouts cannot deadlock each
// other. The returned function releases them in reverse order.
func (c *Catalog) LockProducts(ids []string) func() {
	seen := make(map[string]bool, len(ids))
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		k := key(id)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	held := make([]*sync.Mutex, 0, len(keys))
	for _, k := range keys {
		v, _ := c.locks.LoadOrStore(k, &sync.Mutex{})
		m := v.(*sync.Mutex)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// SearchByName returns products whose name contains the keyword,
// case-insensitively, in stable catalog order.
func (c *Catalog) SearchByName(keyword string) []models.Product {
	needle := strings.ToLower(keyword)
	return c.filter(func(p models.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	})
}

// FilterByCategory returns products with exactly the given category.
func (c *Catalog) FilterByCategory(category string) []models.Product {
	return c.filter(func(p models.Product) bool {
		return strings.EqualFold(p.Category, category)
	})
}

// FilterByPriceRange returns products priced within [min, max].
func (c *Catalog) FilterByPriceRange(min, max float64) []models.Product {
	return c.filter(func(p models.Product) bool {
		return p.Price >= min && p.Price <= max
	})
}

// AvailableProducts returns products with stock remaining.
func (c *Catalog) AvailableProducts() []models.Product {
	return c.filter(models.Product.Available)
}

func (c *Catalog) filter(keep func(models.Product) bool) []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []models.Product{}
	for _, k := range c.order {
		if keep(*c.products[k]) {
			out = append(out, *c.products[k])
		}
	}
	return out
}

// Categories returns the distinct category labels, sorted.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	out := []string{}
	for _, k := range c.order {
		cat := c.products[k].Category
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	sort.Strings(out)
	return out
}
