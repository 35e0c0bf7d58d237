// Package surrealdb provides a SurrealDB implementation of the
// [github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store.SearchIndex] interface.
//
// Documents live in one table keyed by the string-encoded product id.
// Full-text matching uses SurrealDB search indexes on the text fields, with
// BM25 scoring and an edge n-gram analyzer so that prefixes match while the
// user is still typing. Queries are rendered with the surrealql builder and
// every value is passed as a parameter.
//
// # Visibility
//
// SurrealDB makes a written record visible immediately, but search indexes
// can lag behind bulk writes. Refresh rebuilds the full-text indexes so a
// search issued after it observes every completed upsert.
//
// # Usage Example
//
//	idx, err := surrealdb.NewSurrealIndex(ctx, surrealdb.Config{
//		URL:       "ws://localhost:8000/rpc",
//		Namespace: "catalog",
//		Database:  "catalog",
//		Username:  "root",
//		Password:  "root",
//	})
//	if err != nil {
//		return err
//	}
//	defer idx.Close()
//
//	if err := idx.EnsureIndex(ctx, models.ProductIndexSchema); err != nil {
//		return err
//	}
package surrealdb

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	sdkmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

// DefaultTable holds the search documents when Config.Table is empty.
const DefaultTable = "product_search"

type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	Table     string
}

// SurrealIndex implements store.SearchIndex on top of SurrealDB.
type SurrealIndex struct {
	db     *surrealdb.DB
	table  string
	schema models.IndexSchema
}

var _ store.SearchIndex = (*SurrealIndex)(nil)

// NewSurrealIndex connects to SurrealDB, signs in when credentials are
// given and selects the namespace and database.
//
// The connection uses the surrealcbor codec so that time.Time and optional
// values round-trip in SurrealDB's native format.
func NewSurrealIndex(ctx context.Context, cfg Config) (*SurrealIndex, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	conn := gorillaws.New(conf)

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if cfg.Username != "" && cfg.Password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	return &SurrealIndex{db: db, table: table, schema: models.ProductIndexSchema}, nil
}

// record is the stored shape of a models.SearchDocument.
type record struct {
	ID                 *sdkmodels.RecordID `json:"id,omitempty"`
	ProductID          uint                `json:"product_id"`
	Name               string              `json:"name"`
	Brand              string              `json:"brand"`
	Price              float64             `json:"price"`
	OriginalPrice      *float64            `json:"original_price,omitempty"`
	DiscountPercentage int                 `json:"discount_percentage"`
	ImageURL           string              `json:"image_url"`
	CategoryID         *uint               `json:"category_id,omitempty"`
	CategoryName       string              `json:"category_name"`
	Promotion          bool                `json:"promotion"`
	Views              int64               `json:"views"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	Relevance          float64             `json:"relevance,omitempty"`
}

func newRecord(doc *models.SearchDocument) *record {
	return &record{
		ProductID:          doc.ID,
		Name:               doc.Name,
		Brand:              doc.Brand,
		Price:              doc.Price,
		OriginalPrice:      doc.OriginalPrice,
		DiscountPercentage: doc.DiscountPercentage,
		ImageURL:           doc.ImageURL,
		CategoryID:         doc.CategoryID,
		CategoryName:       doc.CategoryName,
		Promotion:          doc.Promotion,
		Views:              doc.Views,
		CreatedAt:          doc.CreatedAt.UTC(),
		UpdatedAt:          doc.UpdatedAt.UTC(),
	}
}

func (r *record) document() *models.SearchDocument {
	return &models.SearchDocument{
		ID:                 r.ProductID,
		Name:               r.Name,
		Brand:              r.Brand,
		Price:              r.Price,
		OriginalPrice:      r.OriginalPrice,
		DiscountPercentage: r.DiscountPercentage,
		ImageURL:           r.ImageURL,
		CategoryID:         r.CategoryID,
		CategoryName:       r.CategoryName,
		Promotion:          r.Promotion,
		Views:              r.Views,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func query[T any](ctx context.Context, db *surrealdb.DB, sql string, vars map[string]any) ([]T, error) {
	res, err := surrealdb.Query[[]T](ctx, db, sql, vars)
	if err != nil {
		return nil, err
	}
	if res == nil || len(*res) == 0 {
		return nil, nil
	}
	return (*res)[0].Result, nil
}

func (s *SurrealIndex) exec(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := surrealdb.Query[any](ctx, s.db, stmt, nil); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// EnsureIndex defines the table, its fields, the analyzer and one search
// index per text field.
func (s *SurrealIndex) EnsureIndex(ctx context.Context, schema models.IndexSchema) error {
	if err := s.exec(ctx, renderSchema(s.table, schema)); err != nil {
		return models.NewTransientBackendError("ensure index", err)
	}
	s.schema = schema
	return nil
}

func (s *SurrealIndex) UpsertDocument(ctx context.Context, id string, doc *models.SearchDocument) error {
	vars := map[string]any{
		"rid": sdkmodels.NewRecordID(s.table, id),
		"doc": newRecord(doc),
	}
	if _, err := surrealdb.Query[any](ctx, s.db, "UPSERT $rid CONTENT $doc RETURN NONE", vars); err != nil {
		return models.NewTransientBackendError("upsert", fmt.Errorf("document %s: %w", id, err))
	}
	return nil
}

func (s *SurrealIndex) Search(ctx context.Context, q *store.IndexQuery) ([]*models.SearchDocument, error) {
	sql, vars, err := renderSearch(s.table, q)
	if err != nil {
		return nil, err
	}
	records, err := query[record](ctx, s.db, sql, vars)
	if err != nil {
		return nil, models.NewTransientBackendError("search", err)
	}
	docs := make([]*models.SearchDocument, 0, len(records))
	for i := range records {
		docs = append(docs, records[i].document())
	}
	return docs, nil
}

func (s *SurrealIndex) Count(ctx context.Context) (int64, error) {
	sql, vars := renderCount(s.table)
	rows, err := query[struct {
		Count int64 `json:"count"`
	}](ctx, s.db, sql, vars)
	if err != nil {
		return 0, models.NewTransientBackendError("count", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Count, nil
}

// Refresh rebuilds the full-text indexes.
func (s *SurrealIndex) Refresh(ctx context.Context) error {
	if err := s.exec(ctx, renderRefresh(s.table, s.schema)); err != nil {
		return models.NewTransientBackendError("refresh", err)
	}
	return nil
}

func (s *SurrealIndex) Close() error {
	return s.db.Close(context.Background())
}
