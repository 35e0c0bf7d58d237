// Package store defines the persistence contracts of the catalog.
//
// The catalog keeps two copies of product data. The relational [CatalogStore]
// is the source of truth and owns every write. The [SearchIndex] holds a
// denormalized projection used for fuzzy, ranked search. Nothing in a
// CatalogStore implementation talks to the index; projecting store state into
// the index is the job of [github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store/cqrs.Coordinator].
//
// # Implementations
//
//   - [github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store/postgres.PostgresStore]: GORM-backed CatalogStore (PostgreSQL or SQLite)
//   - [github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store/surrealdb.SurrealIndex]: SearchIndex on SurrealDB full-text search
//   - [github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store/memindex.Index]: in-process SearchIndex for tests and local runs
//
// # Consistency
//
// The store gives row-level atomicity for view increments and read-committed
// semantics elsewhere. The index is eventually consistent: a document may lag
// behind its row until the projection for the latest mutation has completed,
// and it can always be rebuilt from the store with a reindex.
package store

import (
	"context"

	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
)

// ProductStore holds product rows.
type ProductStore interface {
	// CreateProduct validates in, inserts the row and returns it with its
	// assigned id and zero views. Missing name, brand, price or category_id
	// and an unknown category fail with *models.ValidationError.
	CreateProduct(ctx context.Context, in *models.ProductInput) (*models.Product, error)

	// GetProductByID returns the product joined with its category name,
	// or *models.NotFoundError.
	GetProductByID(ctx context.Context, id uint) (*models.Product, error)

	// IncrementViews atomically adds one to the view counter and returns the
	// updated row.
	IncrementViews(ctx context.Context, id uint) (*models.Product, error)

	// SetPrice replaces the prices of a product and recomputes its discount.
	SetPrice(ctx context.Context, id uint, in *models.PriceInput) (*models.Product, error)

	// ListProductsWithCategory returns every product left-joined with its
	// category name, ordered by category name then product name.
	ListProductsWithCategory(ctx context.Context) ([]*models.Product, error)

	// ListProductsPaginated returns one page of products, newest first,
	// optionally restricted to a category.
	ListProductsPaginated(ctx context.Context, categoryID *uint, page, pageSize int) (*models.Page, error)

	// SearchProductsRelational answers a filter with exact substring matching.
	// Every present filter is conjoined. No ordering is applied.
	SearchProductsRelational(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)

	// ListProductIDsAfter returns up to limit product ids greater than afterID
	// in ascending order. Used to page through the catalog without holding
	// locks across the whole scan.
	ListProductIDsAfter(ctx context.Context, afterID uint, limit int) ([]uint, error)

	CountProducts(ctx context.Context) (int64, error)

	// SeedSampleData inserts the demo catalog when no products exist and
	// returns the number of products inserted.
	SeedSampleData(ctx context.Context) (int, error)
}

// CategoryStore holds category rows.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	CreateCategory(ctx context.Context, in *models.CategoryInput) (*models.Category, error)
	GetCategoryByID(ctx context.Context, id uint) (*models.Category, error)

	// UpdateCategory changes the category and returns the ids of its
	// products. Their search documents carry the old name, so each of them is
	// queued as a pending projection in the same transaction.
	UpdateCategory(ctx context.Context, id uint, in *models.CategoryInput) (*models.Category, []uint, error)

	// DeleteCategory removes the category; its products keep existing with a
	// null category_id. The detached product ids are returned and queued as
	// pending projections in the same transaction.
	DeleteCategory(ctx context.Context, id uint) ([]uint, error)
}

// ProjectionQueue records products whose search document could not be
// written, so that a repair pass can retry them later.
type ProjectionQueue interface {
	// RecordPendingProjection upserts the queue row of productID, bumping its
	// retry count when one already exists.
	RecordPendingProjection(ctx context.Context, productID uint, reason models.ProjectionReason, cause error) error
	// ListPendingProjections returns up to limit rows, least recently attempted first.
	ListPendingProjections(ctx context.Context, limit int) ([]*models.PendingProjection, error)
	ResolvePendingProjection(ctx context.Context, productID uint) error
	PendingProjectionStats(ctx context.Context) (*models.ProjectionStats, error)
}

// CatalogStore is the relational source of truth of the catalog.
type CatalogStore interface {
	ProductStore
	CategoryStore
	ProjectionQueue

	// Migrate creates or updates the schema. It is idempotent.
	Migrate(ctx context.Context) error
	Close() error
}
