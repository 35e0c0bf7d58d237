// Package query answers product searches from either the search index or the
// relational store.
//
// A [models.ProductFilter] is translated into an [store.IndexQuery] for the
// index path or handed to [store.ProductStore.SearchProductsRelational] for
// the relational path. Both paths apply every present filter as a required
// condition and return the same Product shape, so callers do not need to
// know which backend answered.
//
// The two paths differ in text matching. The index matches text fuzzily and
// ranks by relevance; the relational path matches exact substrings and
// returns rows in id order. Both paths return at most filter.Limit products,
// [models.DefaultSearchLimit] unless set lower.
//
// Products without a category are indexed under [models.UncategorizedName].
// That placeholder is never matched by free text, as on the relational path.
package query

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store"
)

// Relevance weights of the text fields.
var TextFields = []store.TextField{
	{Name: "name", Boost: 3},
	{Name: "brand", Boost: 1},
	{Name: "category_name", Boost: 1, Ignore: models.UncategorizedName},
}

const DefaultIndexTimeout = 5 * time.Second

type Config struct {
	// FallbackToRelational answers from the store when the index fails with
	// a transient error.
	FallbackToRelational bool
	IndexTimeout         time.Duration
	// Limit caps the results of both backends. Zero uses
	// models.DefaultSearchLimit.
	Limit int
}

func DefaultConfig() Config {
	return Config{
		FallbackToRelational: true,
		IndexTimeout:         DefaultIndexTimeout,
	}
}

// Result is the answer to one search.
type Result struct {
	Products []*models.Product `json:"products"`
	// Backend is the backend that produced Products.
	Backend models.Backend `json:"backend"`
	// Degraded is set when the index failed and the store answered instead.
	Degraded bool `json:"degraded"`
}

type Translator struct {
	store store.ProductStore
	index store.SearchIndex
	cfg   Config
	log   zerolog.Logger
}

// New creates a Translator. idx may be nil, in which case every search is
// answered by the store.
func New(s store.ProductStore, idx store.SearchIndex, cfg Config, log zerolog.Logger) *Translator {
	if cfg.IndexTimeout <= 0 {
		cfg.IndexTimeout = DefaultIndexTimeout
	}
	return &Translator{
		store: s,
		index: idx,
		cfg:   cfg,
		log:   log.With().Str("component", "query").Logger(),
	}
}

// Search validates filter and runs it on the requested backend.
func (t *Translator) Search(ctx context.Context, filter models.ProductFilter) (*Result, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}
	if t.cfg.Limit > 0 && filter.Limit > t.cfg.Limit {
		filter.Limit = t.cfg.Limit
	}

	if filter.Backend == models.BackendRelational || t.index == nil {
		return t.searchRelational(ctx, filter, false)
	}

	products, err := t.searchIndex(ctx, filter)
	if err == nil {
		return &Result{Products: products, Backend: models.BackendSearchIndex}, nil
	}
	if !models.IsTransient(err) || !t.cfg.FallbackToRelational {
		return nil, err
	}
	t.log.Warn().Err(err).Str("text", filter.Text).Msg("search index unavailable, falling back to relational search")
	return t.searchRelational(ctx, filter, true)
}

func (t *Translator) searchRelational(ctx context.Context, filter models.ProductFilter, degraded bool) (*Result, error) {
	products, err := t.store.SearchProductsRelational(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Result{Products: products, Backend: models.BackendRelational, Degraded: degraded}, nil
}

func (t *Translator) searchIndex(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	start := time.Now()
	ictx, cancel := context.WithTimeout(ctx, t.cfg.IndexTimeout)
	defer cancel()

	q := BuildIndexQuery(filter)
	docs, err := t.index.Search(ictx, q)
	if err != nil {
		if ictx.Err() != nil && !models.IsTransient(err) {
			return nil, models.NewTransientBackendError("search", err)
		}
		return nil, err
	}

	products := make([]*models.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.Product())
	}
	t.log.Debug().
		Int("results", len(products)).
		Int("filters", len(q.Filters)).
		Dur("duration", time.Since(start)).
		Msg("index search")
	return products, nil
}

// BuildIndexQuery turns a normalized filter into an index query. Every
// present filter becomes its own required clause; promotion is only
// constrained when PromotionOnly is set.
func BuildIndexQuery(f models.ProductFilter) *store.IndexQuery {
	q := &store.IndexQuery{Text: f.Text, Limit: f.Limit}
	if f.Text != "" {
		q.TextFields = TextFields
	}
	if f.CategoryID != nil {
		q.Filters = append(q.Filters, store.Clause{Field: "category_id", Op: store.OpEq, Value: *f.CategoryID})
	}
	if f.MinPrice != nil {
		q.Filters = append(q.Filters, store.Clause{Field: "price", Op: store.OpGte, Value: f.MinPrice.InexactFloat64()})
	}
	if f.MaxPrice != nil {
		q.Filters = append(q.Filters, store.Clause{Field: "price", Op: store.OpLte, Value: f.MaxPrice.InexactFloat64()})
	}
	if f.PromotionOnly {
		q.Filters = append(q.Filters, store.Clause{Field: "promotion", Op: store.OpEq, Value: true})
	}
	if f.MinViews != nil {
		q.Filters = append(q.Filters, store.Clause{Field: "views", Op: store.OpGte, Value: *f.MinViews})
	}
	return q
}
