package catalog

import (
	"context"
	"sync"
	"testing"

	"storefront-engine/internal/models"
	"storefront-engine/internal/recordstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T, products ...models.Product) (*Catalog, *recordstore.MemoryStore) {
	t.Helper()

	store := recordstore.NewMemoryStore()
	if len(products) > 0 {
		lines := make([]string, 0, len(products))
		for _, p := range products {
			lines = append(lines, models.EncodeProduct(p))
		}
		require.NoError(t, store.WriteAll(context.Background(), recordstore.CollectionProducts, lines))
	}

	c, err := New(context.Background(), store)
	require.NoError(t, err)
	return c, store
}

func laptop() models.Product {
	return models.Product{ID: "P1001", Name: "Laptop", Description: "High-performance laptop", Price: 899.99, Stock: 10, Category: "Electronics"}
}

func bottle() models.Product {
	return models.Product{ID: "P1007", Name: "Water Bottle", Description: "Stainless steel", Price: 24.99, Stock: 200, Category: "Sports"}
}

func TestGetCaseInsensitive(t *testing.T) {
	c, _ := newCatalog(t, laptop())

	p, err := c.Get("p1001")
	require.NoError(t, err)
	assert.Equal(t, "P1001", p.ID)

	_, err = c.Get("P9999")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSeedsSampleCatalogWhenEmpty(t *testing.T) {
	c, store := newCatalog(t)

	all := c.All()
	assert.Len(t, all, 8)
	assert.Equal(t, "P1001", all[0].ID)

	// the seed must have been written through
	lines, err := store.ReadAll(context.Background(), recordstore.CollectionProducts)
	require.NoError(t, err)
	assert.Len(t, lines, 8)
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	c, _ := newCatalog(t, models.Product{ID: "P1042", Name: "Lamp", Price: 10, Stock: 5, Category: "Home"})

	p, err := c.Add(context.Background(), models.Product{Name: "Rug", Price: 30, Stock: 3, Category: "Home"})
	require.NoError(t, err)
	assert.Equal(t, "P1043", p.ID)

	q, err := c.Add(context.Background(), models.Product{Name: "Vase", Price: 15, Stock: 7, Category: "Home"})
	require.NoError(t, err)
	assert.Equal(t, "P1044", q.ID)
}

func TestAddValidation(t *testing.T) {
	c, _ := newCatalog(t, laptop())

	_, err := c.Add(context.Background(), models.Product{Name: "", Price: 1, Stock: 1})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = c.Add(context.Background(), models.Product{Name: "X", Price: -1, Stock: 1})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = c.Add(context.Background(), models.Product{Name: "X", Price: 1, Stock: -1})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestUpdateAndRemove(t *testing.T) {
	c, _ := newCatalog(t, laptop(), bottle())

	err := c.Update(context.Background(), "P1001", models.Product{Name: "Laptop Pro", Price: 999.99, Stock: 4, Category: "Electronics"})
	require.NoError(t, err)

	p, err := c.Get("P1001")
	require.NoError(t, err)
	assert.Equal(t, "Laptop Pro", p.Name)
	assert.Equal(t, 4, p.Stock)

	require.NoError(t, c.Remove(context.Background(), "P1001"))
	_, err = c.Get("P1001")
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = c.Remove(context.Background(), "P1001")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAdjustStock(t *testing.T) {
	c, _ := newCatalog(t, laptop())
	ctx := context.Background()

	stock, err := c.AdjustStock(ctx, "P1001", -3)
	require.NoError(t, err)
	assert.Equal(t, 7, stock)

	stock, err = c.AdjustStock(ctx, "P1001", +3)
	require.NoError(t, err)
	assert.Equal(t, 10, stock)

	_, err = c.AdjustStock(ctx, "P1001", -11)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)

	// the failed adjustment committed nothing
	p, err := c.Get("P1001")
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)

	_, err = c.AdjustStock(ctx, "P9999", -1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAdjustStockPersists(t *testing.T) {
	c, store := newCatalog(t, laptop())

	_, err := c.AdjustStock(context.Background(), "P1001", -4)
	require.NoError(t, err)

	lines, err := store.ReadAll(context.Background(), recordstore.CollectionProducts)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	p, err := models.ParseProduct(lines[0])
	require.NoError(t, err)
	assert.Equal(t, 6, p.Stock)
}

func TestAdjustStockConcurrent(t *testing.T) {
	const stock = 60
	const workers = 100

	p := laptop()
	p.Stock = stock
	c, _ := newCatalog(t, p)

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.AdjustStock(context.Background(), "P1001", -1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, failed := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, models.ErrInsufficientStock)
			failed++
		}
	}

	assert.Equal(t, stock, succeeded)
	assert.Equal(t, workers-stock, failed)

	got, err := c.Get("P1001")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestSearchByName(t *testing.T) {
	c, _ := newCatalog(t, laptop(), bottle())

	results := c.SearchByName("laptop")
	require.Len(t, results, 1)
	assert.Equal(t, "P1001", results[0].ID)

	assert.Len(t, c.SearchByName("BOTTLE"), 1)
	assert.Empty(t, c.SearchByName("camera"))
}

func TestFilters(t *testing.T) {
	sold := bottle()
	sold.ID = "P1009"
	sold.Name = "Flask"
	sold.Stock = 0
	c, _ := newCatalog(t, laptop(), bottle(), sold)

	assert.Len(t, c.FilterByCategory("sports"), 2)
	assert.Len(t, c.FilterByCategory("Electronics"), 1)
	assert.Empty(t, c.FilterByCategory("Books"))

	ranged := c.FilterByPriceRange(20, 100)
	require.Len(t, ranged, 2)
	assert.Equal(t, "P1007", ranged[0].ID)

	available := c.AvailableProducts()
	require.Len(t, available, 2)
	for _, p := range available {
		assert.Greater(t, p.Stock, 0)
	}
}

func TestCategories(t *testing.T) {
	c, _ := newCatalog(t, laptop(), bottle())
	assert.Equal(t, []string{"Electronics", "Sports"}, c.Categories())
}

func TestSequenceSeededAbovePersistedMax(t *testing.T) {
	c, _ := newCatalog(t, models.Product{ID: "P1372", Name: "Lamp", Price: 10, Stock: 5, Category: "Home"})

	p, err := c.Add(context.Background(), models.Product{Name: "Rug", Price: 30, Stock: 3, Category: "Home"})
	require.NoError(t, err)
	assert.Equal(t, "P1373", p.ID)
}

func TestMalformedRecordsSkipped(t *testing.T) {
	store := recordstore.NewMemoryStore()
	lines := []string{
		models.EncodeProduct(laptop()),
		"garbage line",
	}
	require.NoError(t, store.WriteAll(context.Background(), recordstore.CollectionProducts, lines))

	c, err := New(context.Background(), store)
	require.NoError(t, err)
	assert.Len(t, c.All(), 1)
}

func TestLockProductsNoDeadlockAcrossOrders(t *testing.T) {
	c, _ := newCatalog(t, laptop(), bottle())

	// Two lockers acquiring the same pair in opposite argument order
	// must not deadlock; LockProducts sorts internally.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := c.LockProducts([]string{"P1001", "P1007"})
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := c.LockProducts([]string{"P1007", "P1001", "p1001"})
			unlock()
		}()
	}
	wg.Wait()
}

func TestStockNeverNegativeUnderMixedOps(t *testing.T) {
	p := laptop()
	p.Stock = 5
	c, _ := newCatalog(t, p)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		delta := -2
		if i%2 == 0 {
			delta = 1
		}
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			_, _ = c.AdjustStock(context.Background(), "P1001", d)
		}(delta)
	}
	wg.Wait()

	got, err := c.Get("P1001")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Stock, 0)
}

func TestAllStableOrder(t *testing.T) {
	c, _ := newCatalog(t, laptop(), bottle())

	first := c.All()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.All())
	}
	require.Len(t, first, 2)
	assert.Equal(t, "P1001", first[0].ID)
	assert.Equal(t, "P1007", first[1].ID)
}
