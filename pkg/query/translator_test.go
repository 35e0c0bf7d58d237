package query_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/query"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store/memindex"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store/postgres"
	gormlogger "gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

type catalog struct {
	store      *postgres.PostgresStore
	index      *memindex.Index
	categories map[string]uint
}

// newCatalog seeds the sample catalog, bumps views on a few products and
// projects every product into a fresh memory index.
func newCatalog(t *testing.T) *catalog {
	t.Helper()
	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := postgres.NewSQLiteStore(
		fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbCounter.Add(1)),
		postgres.Options{LogLevel: gormlogger.Silent},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	_, err = s.SeedSampleData(ctx)
	require.NoError(t, err)

	c := &catalog{store: s, index: memindex.New(), categories: map[string]uint{}}
	require.NoError(t, c.index.EnsureIndex(ctx, models.ProductIndexSchema))

	products, err := s.ListProductsWithCategory(ctx)
	require.NoError(t, err)
	for _, p := range products {
		// MacBook Pro gets 3 views, Samsung Galaxy S24 gets 1
		views := map[string]int{"MacBook Pro": 3, "Samsung Galaxy S24": 1}[p.Name]
		for i := 0; i < views; i++ {
			p, err = s.IncrementViews(ctx, p.ID)
			require.NoError(t, err)
		}
		c.categories[p.CategoryName] = *p.CategoryID
		require.NoError(t, c.index.UpsertDocument(ctx, models.DocumentID(p.ID), models.NewSearchDocument(p, p.CategoryName)))
	}
	require.NoError(t, c.index.Refresh(ctx))
	return c
}

func names(products []*models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name)
	}
	sort.Strings(out)
	return out
}

func ptr[T any](v T) *T { return &v }

func TestSearchConjoinsFilters(t *testing.T) {
	c := newCatalog(t)
	tr := query.New(c.store, c.index, query.DefaultConfig(), zerolog.Nop())
	ctx := context.Background()

	// iPhone 15 is promoted at 25M, MacBook Pro is promoted at 50M and
	// Samsung is 20M without promotion: only products with both properties
	// may come back.
	for _, backend := range []models.Backend{models.BackendSearchIndex, models.BackendRelational} {
		t.Run(string(backend), func(t *testing.T) {
			res, err := tr.Search(ctx, models.ProductFilter{
				MinPrice:      ptr(decimal.NewFromInt(30000000)),
				PromotionOnly: true,
				Backend:       backend,
			})
			require.NoError(t, err)
			assert.Equal(t, backend, res.Backend)
			assert.False(t, res.Degraded)
			assert.Equal(t, []string{"MacBook Pro"}, names(res.Products))
			for _, p := range res.Products {
				assert.True(t, p.Promotion)
				assert.True(t, p.Price.GreaterThanOrEqual(decimal.NewFromInt(30000000)))
			}

			res, err = tr.Search(ctx, models.ProductFilter{
				CategoryID: ptr(c.categories["Smartphones"]),
				MaxPrice:   ptr(decimal.NewFromInt(22000000)),
				Backend:    backend,
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"Samsung Galaxy S24"}, names(res.Products))

			res, err = tr.Search(ctx, models.ProductFilter{
				MinViews: ptr(int64(1)),
				Backend:  backend,
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"MacBook Pro", "Samsung Galaxy S24"}, names(res.Products))

			res, err = tr.Search(ctx, models.ProductFilter{
				Text:     "apple",
				MinViews: ptr(int64(1)),
				Backend:  backend,
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"MacBook Pro"}, names(res.Products))
		})
	}
}

func TestSearchWithoutTextMatchesAll(t *testing.T) {
	c := newCatalog(t)
	tr := query.New(c.store, c.index, query.DefaultConfig(), zerolog.Nop())

	res, err := tr.Search(context.Background(), models.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, res.Products, 4)
	assert.Equal(t, models.BackendSearchIndex, res.Backend)
}

func TestBackendEquivalenceOnCategory(t *testing.T) {
	c := newCatalog(t)
	tr := query.New(c.store, c.index, query.DefaultConfig(), zerolog.Nop())
	ctx := context.Background()

	for name, id := range c.categories {
		byIndex, err := tr.Search(ctx, models.ProductFilter{CategoryID: ptr(id)})
		require.NoError(t, err)
		byStore, err := tr.Search(ctx, models.ProductFilter{CategoryID: ptr(id), Backend: models.BackendRelational})
		require.NoError(t, err)

		assert.Equal(t, names(byStore.Products), names(byIndex.Products), name)
		assert.Len(t, byIndex.Products, 2, name)
	}
}

func TestLimitAppliesToBothBackends(t *testing.T) {
	c := newCatalog(t)
	cfg := query.DefaultConfig()
	cfg.Limit = 1
	tr := query.New(c.store, c.index, cfg, zerolog.Nop())
	ctx := context.Background()

	for name, id := range c.categories {
		byIndex, err := tr.Search(ctx, models.ProductFilter{CategoryID: ptr(id)})
		require.NoError(t, err)
		byStore, err := tr.Search(ctx, models.ProductFilter{CategoryID: ptr(id), Backend: models.BackendRelational})
		require.NoError(t, err)

		require.Len(t, byIndex.Products, 1, name)
		require.Len(t, byStore.Products, 1, name)
		assert.Equal(t, byStore.Products[0].ID, byIndex.Products[0].ID, name)
	}

	// a filter cannot raise the configured cap
	res, err := tr.Search(ctx, models.ProductFilter{Limit: 10, Backend: models.BackendRelational})
	require.NoError(t, err)
	assert.Len(t, res.Products, 1)
}

func TestUncategorizedIsNotSearchableText(t *testing.T) {
	c := newCatalog(t)
	tr := query.New(c.store, c.index, query.DefaultConfig(), zerolog.Nop())
	ctx := context.Background()

	detached, err := c.store.DeleteCategory(ctx, c.categories["Laptops"])
	require.NoError(t, err)
	require.Len(t, detached, 2)
	for _, id := range detached {
		p, err := c.store.GetProductByID(ctx, id)
		require.NoError(t, err)
		require.NoError(t, c.index.UpsertDocument(ctx, models.DocumentID(id), models.NewSearchDocument(p, p.CategoryName)))
	}
	require.NoError(t, c.index.Refresh(ctx))

	for _, backend := range []models.Backend{models.BackendSearchIndex, models.BackendRelational} {
		res, err := tr.Search(ctx, models.ProductFilter{Text: models.UncategorizedName, Backend: backend})
		require.NoError(t, err)
		assert.Empty(t, res.Products, backend)

		res, err = tr.Search(ctx, models.ProductFilter{Text: "dell", Backend: backend})
		require.NoError(t, err)
		require.Len(t, res.Products, 1, backend)
		assert.Empty(t, res.Products[0].CategoryName)
	}
}

func TestIndexResultsHaveStoreShape(t *testing.T) {
	c := newCatalog(t)
	tr := query.New(c.store, c.index, query.DefaultConfig(), zerolog.Nop())
	ctx := context.Background()

	res, err := tr.Search(ctx, models.ProductFilter{Text: "iphone"})
	require.NoError(t, err)
	require.Len(t, res.Products, 1)
	got := res.Products[0]

	want, err := c.store.GetProductByID(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Brand, got.Brand)
	assert.True(t, want.Price.Equal(got.Price))
	require.True(t, got.OriginalPrice.Valid)
	assert.True(t, want.OriginalPrice.Decimal.Equal(got.OriginalPrice.Decimal))
	assert.Equal(t, want.DiscountPercentage, got.DiscountPercentage)
	assert.Equal(t, want.CategoryID, got.CategoryID)
	assert.Equal(t, want.CategoryName, got.CategoryName)
	assert.Equal(t, want.ImageURL, got.ImageURL)
	assert.Equal(t, want.Promotion, got.Promotion)
}

func TestFuzzyTextOnlyOnIndex(t *testing.T) {
	c := newCatalog(t)
	tr := query.New(c.store, c.index, query.DefaultConfig(), zerolog.Nop())
	ctx := context.Background()

	res, err := tr.Search(ctx, models.ProductFilter{Text: "macbok"})
	require.NoError(t, err)
	assert.Equal(t, []string{"MacBook Pro"}, names(res.Products))

	res, err = tr.Search(ctx, models.ProductFilter{Text: "macbok", Backend: models.BackendRelational})
	require.NoError(t, err)
	assert.Empty(t, res.Products)

	res, err = tr.Search(ctx, models.ProductFilter{Text: "laptops"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dell XPS 13", "MacBook Pro"}, names(res.Products))
}

func TestFallbackToRelational(t *testing.T) {
	c := newCatalog(t)
	var buf bytes.Buffer
	tr := query.New(c.store, c.index, query.DefaultConfig(), zerolog.New(&buf))
	c.index.SetFailure(errors.New("connection refused"))

	res, err := tr.Search(context.Background(), models.ProductFilter{Text: "Apple"})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, models.BackendRelational, res.Backend)
	assert.Equal(t, []string{"MacBook Pro", "iPhone 15"}, names(res.Products))
	assert.Contains(t, buf.String(), "falling back to relational search")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestNoFallbackSurfacesTransientError(t *testing.T) {
	c := newCatalog(t)
	cfg := query.DefaultConfig()
	cfg.FallbackToRelational = false
	tr := query.New(c.store, c.index, cfg, zerolog.Nop())
	c.index.SetFailure(errors.New("connection refused"))

	_, err := tr.Search(context.Background(), models.ProductFilter{Text: "Apple"})
	require.Error(t, err)
	assert.True(t, models.IsTransient(err))

	res, err := tr.Search(context.Background(), models.ProductFilter{Text: "Apple", Backend: models.BackendRelational})
	require.NoError(t, err, "explicit relational searches never touch the index")
	assert.False(t, res.Degraded)
}

func TestSearchWithoutIndexUsesStore(t *testing.T) {
	c := newCatalog(t)
	tr := query.New(c.store, nil, query.DefaultConfig(), zerolog.Nop())

	res, err := tr.Search(context.Background(), models.ProductFilter{Text: "dell"})
	require.NoError(t, err)
	assert.Equal(t, models.BackendRelational, res.Backend)
	assert.Equal(t, []string{"Dell XPS 13"}, names(res.Products))
}

func TestSearchRejectsInvalidFilter(t *testing.T) {
	c := newCatalog(t)
	tr := query.New(c.store, c.index, query.DefaultConfig(), zerolog.Nop())

	_, err := tr.Search(context.Background(), models.ProductFilter{
		MinPrice: ptr(decimal.NewFromInt(10)),
		MaxPrice: ptr(decimal.NewFromInt(5)),
	})
	assert.True(t, models.IsValidation(err))

	_, err = tr.Search(context.Background(), models.ProductFilter{Backend: "elastic"})
	assert.True(t, models.IsValidation(err))
}

func TestBuildIndexQuery(t *testing.T) {
	q := query.BuildIndexQuery(models.ProductFilter{
		Text:          "phone",
		CategoryID:    ptr(uint(2)),
		MinPrice:      ptr(decimal.NewFromInt(100)),
		MaxPrice:      ptr(decimal.RequireFromString("250.50")),
		PromotionOnly: true,
		MinViews:      ptr(int64(3)),
		Limit:         20,
	})
	assert.Equal(t, "phone", q.Text)
	assert.Equal(t, 20, q.Limit)
	assert.Equal(t, query.TextFields, q.TextFields)
	assert.Equal(t, []store.Clause{
		{Field: "category_id", Op: store.OpEq, Value: uint(2)},
		{Field: "price", Op: store.OpGte, Value: 100.0},
		{Field: "price", Op: store.OpLte, Value: 250.5},
		{Field: "promotion", Op: store.OpEq, Value: true},
		{Field: "views", Op: store.OpGte, Value: int64(3)},
	}, q.Filters)

	q = query.BuildIndexQuery(models.ProductFilter{})
	assert.Empty(t, q.Text)
	assert.Empty(t, q.TextFields)
	assert.Empty(t, q.Filters, "promotionOnly=false adds no clause")
}

func TestParseFilter(t *testing.T) {
	f, err := query.ParseFilter(url.Values{
		"query":     {"  iphone "},
		"category":  {"3"},
		"minPrice":  {"100.5"},
		"maxPrice":  {"2000"},
		"promotion": {"true"},
		"minViews":  {"7"},
		"limit":     {"25"},
		"backend":   {"relational"},
	})
	require.NoError(t, err)
	assert.Equal(t, "iphone", f.Text)
	require.NotNil(t, f.CategoryID)
	assert.Equal(t, uint(3), *f.CategoryID)
	assert.Equal(t, "100.5", f.MinPrice.String())
	assert.Equal(t, "2000", f.MaxPrice.String())
	assert.True(t, f.PromotionOnly)
	require.NotNil(t, f.MinViews)
	assert.Equal(t, int64(7), *f.MinViews)
	assert.Equal(t, 25, f.Limit)
	assert.Equal(t, models.BackendRelational, f.Backend)

	f, err = query.ParseFilter(url.Values{"category": {""}, "promotion": {"false"}})
	require.NoError(t, err)
	assert.Nil(t, f.CategoryID)
	assert.False(t, f.PromotionOnly)
	assert.Equal(t, models.BackendSearchIndex, f.Backend)
	assert.Equal(t, models.DefaultSearchLimit, f.Limit)

	for name, values := range map[string]url.Values{
		"category":  {"category": {"phones"}},
		"minPrice":  {"minPrice": {"cheap"}},
		"promotion": {"promotion": {"maybe"}},
		"minViews":  {"minViews": {"1.5x"}},
		"limit":     {"limit": {"0"}},
		"range":     {"minPrice": {"10"}, "maxPrice": {"1"}},
		"backend":   {"backend": {"solr"}},
	} {
		_, err := query.ParseFilter(values)
		assert.True(t, models.IsValidation(err), name)
	}
}
