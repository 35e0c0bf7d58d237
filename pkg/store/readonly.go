package store

import (
	"context"
	"errors"

	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
)

// ErrReadOnly is returned by every write made through a ReadOnlyStore while
// read-only mode is on.
var ErrReadOnly = errors.New("operation denied: catalog is in read-only mode")

// ReadOnlyStore wraps a CatalogStore and rejects writes while isReadOnly
// reports true. Reads always pass through.
//
// The state is evaluated on every call, so a replica can be switched between
// read-only and read-write without rebuilding the store.
type ReadOnlyStore struct {
	CatalogStore
	isReadOnly func() bool
}

// NewReadOnlyStore creates a read-only wrapper for s.
func NewReadOnlyStore(s CatalogStore, isReadOnly func() bool) CatalogStore {
	return &ReadOnlyStore{
		CatalogStore: s,
		isReadOnly:   isReadOnly,
	}
}

// Unwrap returns the underlying store
func (r *ReadOnlyStore) Unwrap() CatalogStore {
	return r.CatalogStore
}

func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly() {
		return ErrReadOnly
	}
	return nil
}

func (r *ReadOnlyStore) CreateProduct(ctx context.Context, in *models.ProductInput) (*models.Product, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.CatalogStore.CreateProduct(ctx, in)
}

func (r *ReadOnlyStore) IncrementViews(ctx context.Context, id uint) (*models.Product, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.CatalogStore.IncrementViews(ctx, id)
}

func (r *ReadOnlyStore) SetPrice(ctx context.Context, id uint, in *models.PriceInput) (*models.Product, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.CatalogStore.SetPrice(ctx, id, in)
}

func (r *ReadOnlyStore) SeedSampleData(ctx context.Context) (int, error) {
	if err := r.checkReadOnly(); err != nil {
		return 0, err
	}
	return r.CatalogStore.SeedSampleData(ctx)
}

func (r *ReadOnlyStore) CreateCategory(ctx context.Context, in *models.CategoryInput) (*models.Category, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.CatalogStore.CreateCategory(ctx, in)
}

func (r *ReadOnlyStore) UpdateCategory(ctx context.Context, id uint, in *models.CategoryInput) (*models.Category, []uint, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, nil, err
	}
	return r.CatalogStore.UpdateCategory(ctx, id, in)
}

func (r *ReadOnlyStore) DeleteCategory(ctx context.Context, id uint) ([]uint, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.CatalogStore.DeleteCategory(ctx, id)
}

func (r *ReadOnlyStore) RecordPendingProjection(ctx context.Context, productID uint, reason models.ProjectionReason, cause error) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.CatalogStore.RecordPendingProjection(ctx, productID, reason, cause)
}

func (r *ReadOnlyStore) ResolvePendingProjection(ctx context.Context, productID uint) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.CatalogStore.ResolvePendingProjection(ctx, productID)
}

func (r *ReadOnlyStore) Migrate(ctx context.Context) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.CatalogStore.Migrate(ctx)
}
