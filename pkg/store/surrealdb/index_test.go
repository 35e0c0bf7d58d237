package surrealdb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store"
)

// newTestIndex connects to the SurrealDB instance at SURREALDB_URL and
// skips the test when it is not set.
func newTestIndex(t *testing.T) *SurrealIndex {
	t.Helper()
	endpoint := os.Getenv("SURREALDB_URL")
	if endpoint == "" {
		t.Skip("SURREALDB_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	idx, err := NewSurrealIndex(ctx, Config{
		URL:       endpoint,
		Namespace: "surrealcatalog_test",
		Database:  "index",
		Username:  getenv("SURREALDB_USER", "root"),
		Password:  getenv("SURREALDB_PASS", "root"),
		Table:     fmt.Sprintf("product_search_%d", time.Now().UnixNano()),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = query[any](context.Background(), idx.db, "REMOVE TABLE IF EXISTS "+idx.table, nil)
		_ = idx.Close()
	})
	return idx
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestSurrealIndexRoundTrip(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.EnsureIndex(ctx, models.ProductIndexSchema))
	require.NoError(t, idx.EnsureIndex(ctx, models.ProductIndexSchema), "second EnsureIndex is a no-op")

	phones, laptops := uint(1), uint(2)
	original := 28000000.0
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	docs := []*models.SearchDocument{
		{ID: 1, Name: "iPhone 15", Brand: "Apple", Price: 25000000, OriginalPrice: &original, DiscountPercentage: 10, CategoryID: &phones, CategoryName: "Smartphones", Promotion: true, CreatedAt: created, UpdatedAt: created},
		{ID: 2, Name: "MacBook Pro", Brand: "Apple", Price: 50000000, CategoryID: &laptops, CategoryName: "Laptops", Views: 4, CreatedAt: created, UpdatedAt: created},
		{ID: 3, Name: "Dell XPS 13", Brand: "Dell", Price: 35000000, CategoryID: &laptops, CategoryName: "Laptops", CreatedAt: created, UpdatedAt: created},
	}
	for _, doc := range docs {
		require.NoError(t, idx.UpsertDocument(ctx, models.DocumentID(doc.ID), doc))
	}
	require.NoError(t, idx.Refresh(ctx))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	found, err := idx.Search(ctx, &store.IndexQuery{
		Filters: []store.Clause{{Field: "category_id", Op: store.OpEq, Value: laptops}},
	})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, uint(2), found[0].ID)
	assert.Equal(t, uint(3), found[1].ID)

	found, err = idx.Search(ctx, &store.IndexQuery{
		Filters: []store.Clause{
			{Field: "price", Op: store.OpGte, Value: 20000000.0},
			{Field: "promotion", Op: store.OpEq, Value: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, docs[0].Name, found[0].Name)
	require.NotNil(t, found[0].OriginalPrice)
	assert.Equal(t, original, *found[0].OriginalPrice)
	assert.True(t, created.Equal(found[0].CreatedAt))

	// replace semantics
	updated := *docs[2]
	updated.Views = 7
	require.NoError(t, idx.UpsertDocument(ctx, "3", &updated))
	require.NoError(t, idx.Refresh(ctx))
	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	found, err = idx.Search(ctx, &store.IndexQuery{
		Filters: []store.Clause{{Field: "views", Op: store.OpGte, Value: int64(5)}},
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, uint(3), found[0].ID)
}
