package recordstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	s := NewFileStore(t.TempDir())
	ctx := context.Background()

	lines := []string{"P1001,Laptop,High-performance,899.99,10,Electronics", "P1002,Smartphone,Latest,599.99,25,Electronics"}
	require.NoError(t, s.WriteAll(ctx, CollectionProducts, lines))

	got, err := s.ReadAll(ctx, CollectionProducts)
	require.NoError(t, err)
	assert.Equal(t, lines, got)
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(t.TempDir())

	got, err := s.ReadAll(context.Background(), CollectionOrders)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStoreMissingDirIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist"))

	got, err := s.ReadAll(context.Background(), CollectionOrders)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStoreSkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, CollectionUsers+".txt")
	require.NoError(t, os.WriteFile(path, []byte("one\n\n  \ntwo\n"), 0o644))

	s := NewFileStore(dir)
	got, err := s.ReadAll(context.Background(), CollectionUsers)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestFileStoreOverwrite(t *testing.T) {
	s := NewFileStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.WriteAll(ctx, CollectionProducts, []string{"a", "b", "c"}))
	require.NoError(t, s.WriteAll(ctx, CollectionProducts, []string{"d"}))

	got, err := s.ReadAll(ctx, CollectionProducts)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, got)
}

func TestFileStoreCreatesDirOnWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s := NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, s.WriteAll(ctx, CollectionProducts, []string{"a"}))

	got, err := s.ReadAll(ctx, CollectionProducts)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)
}

func TestFileStoreCollectionsAreSeparate(t *testing.T) {
	s := NewFileStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.WriteAll(ctx, CollectionProducts, []string{"product"}))
	require.NoError(t, s.WriteAll(ctx, CollectionOrders, []string{"order"}))

	products, err := s.ReadAll(ctx, CollectionProducts)
	require.NoError(t, err)
	orders, err := s.ReadAll(ctx, CollectionOrders)
	require.NoError(t, err)

	assert.Equal(t, []string{"product"}, products)
	assert.Equal(t, []string{"order"}, orders)
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	require.NoError(t, s.WriteAll(context.Background(), CollectionProducts, []string{"a"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, CollectionProducts+".txt", entries[0].Name())
}
