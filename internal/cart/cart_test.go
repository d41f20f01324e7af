package cart

import (
	"context"
	"testing"

	"storefront-engine/internal/catalog"
	"storefront-engine/internal/models"
	"storefront-engine/internal/recordstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, products ...models.Product) (*Store, *catalog.Catalog) {
	t.Helper()

	rs := recordstore.NewMemoryStore()
	lines := make([]string, 0, len(products))
	for _, p := range products {
		lines = append(lines, models.EncodeProduct(p))
	}
	require.NoError(t, rs.WriteAll(context.Background(), recordstore.CollectionProducts, lines))

	cat, err := catalog.New(context.Background(), rs)
	require.NoError(t, err)
	return NewStore(cat), cat
}

func headphones() models.Product {
	return models.Product{ID: "P1003", Name: "Headphones", Description: "Wireless", Price: 149.99, Stock: 3, Category: "Electronics"}
}

func book() models.Product {
	return models.Product{ID: "P1004", Name: "Book", Description: "Guide", Price: 39.99, Stock: 100, Category: "Books"}
}

func TestAddItem(t *testing.T) {
	s, _ := newStore(t, headphones())

	require.NoError(t, s.AddItem("C1001", "P1003", 2))

	items := s.Items("C1001")
	require.Len(t, items, 1)
	assert.Equal(t, "P1003", items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestAddItemRejectsOverStock(t *testing.T) {
	s, _ := newStore(t, headphones())

	err := s.AddItem("C1001", "P1003", 5)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)
	assert.True(t, s.IsEmpty("C1001"))
}

func TestAddItemMergesLines(t *testing.T) {
	s, _ := newStore(t, headphones())

	require.NoError(t, s.AddItem("C1001", "P1003", 1))
	require.NoError(t, s.AddItem("C1001", "p1003", 1))

	items := s.Items("C1001")
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestAddItemCombinedQuantityLimit(t *testing.T) {
	s, _ := newStore(t, headphones())

	require.NoError(t, s.AddItem("C1001", "P1003", 2))
	err := s.AddItem("C1001", "P1003", 2)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)

	// the failed add left the existing line untouched
	items := s.Items("C1001")
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestAddItemValidation(t *testing.T) {
	s, _ := newStore(t, headphones())

	assert.ErrorIs(t, s.AddItem("C1001", "P1003", 0), models.ErrInvalidArgument)
	assert.ErrorIs(t, s.AddItem("C1001", "P1003", -1), models.ErrInvalidArgument)
	assert.ErrorIs(t, s.AddItem("C1001", "P9999", 1), models.ErrNotFound)
}

func TestUpdateQuantity(t *testing.T) {
	s, _ := newStore(t, headphones())
	require.NoError(t, s.AddItem("C1001", "P1003", 1))

	require.NoError(t, s.UpdateQuantity("C1001", "P1003", 3))
	assert.Equal(t, 3, s.Items("C1001")[0].Quantity)

	assert.ErrorIs(t, s.UpdateQuantity("C1001", "P1003", 4), models.ErrInsufficientStock)
	assert.ErrorIs(t, s.UpdateQuantity("C1001", "P1004", 1), models.ErrNotFound)
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	s, _ := newStore(t, headphones())
	require.NoError(t, s.AddItem("C1001", "P1003", 2))

	require.NoError(t, s.UpdateQuantity("C1001", "P1003", 0))
	assert.True(t, s.IsEmpty("C1001"))
}

func TestRemoveItem(t *testing.T) {
	s, _ := newStore(t, headphones(), book())
	require.NoError(t, s.AddItem("C1001", "P1003", 1))
	require.NoError(t, s.AddItem("C1001", "P1004", 2))

	require.NoError(t, s.RemoveItem("C1001", "p1003"))

	items := s.Items("C1001")
	require.Len(t, items, 1)
	assert.Equal(t, "P1004", items[0].ProductID)

	assert.ErrorIs(t, s.RemoveItem("C1001", "P1003"), models.ErrNotFound)
}

func TestClear(t *testing.T) {
	s, _ := newStore(t, headphones())
	require.NoError(t, s.AddItem("C1001", "P1003", 1))

	s.Clear("C1001")
	assert.True(t, s.IsEmpty("C1001"))
	assert.Empty(t, s.Items("C1001"))
}

func TestCartsAreIndependent(t *testing.T) {
	s, _ := newStore(t, headphones())

	require.NoError(t, s.AddItem("C1001", "P1003", 1))
	require.NoError(t, s.AddItem("C1002", "P1003", 2))

	assert.Equal(t, 1, s.Items("C1001")[0].Quantity)
	assert.Equal(t, 2, s.Items("C1002")[0].Quantity)

	s.Clear("C1001")
	assert.False(t, s.IsEmpty("C1002"))
}

func TestTotalTracksCurrentPrices(t *testing.T) {
	s, cat := newStore(t, headphones(), book())
	require.NoError(t, s.AddItem("C1001", "P1003", 2))
	require.NoError(t, s.AddItem("C1001", "P1004", 1))

	total, err := s.Total("C1001")
	require.NoError(t, err)
	assert.InDelta(t, 2*149.99+39.99, total, 0.005)

	// a price edit after adding changes the total
	updated := headphones()
	updated.Price = 99.99
	require.NoError(t, cat.Update(context.Background(), "P1003", updated))

	total, err = s.Total("C1001")
	require.NoError(t, err)
	assert.InDelta(t, 2*99.99+39.99, total, 0.005)
}

func TestTotalFailsWhenProductGone(t *testing.T) {
	s, cat := newStore(t, headphones())
	require.NoError(t, s.AddItem("C1001", "P1003", 1))

	require.NoError(t, cat.Remove(context.Background(), "P1003"))

	_, err := s.Total("C1001")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestItemsReturnsCopy(t *testing.T) {
	s, _ := newStore(t, headphones())
	require.NoError(t, s.AddItem("C1001", "P1003", 1))

	items := s.Items("C1001")
	items[0].Quantity = 99

	assert.Equal(t, 1, s.Items("C1001")[0].Quantity)
}
