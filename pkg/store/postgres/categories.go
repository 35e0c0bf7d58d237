package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"gorm.io/gorm"
)

func (s *PostgresStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	var categories []*models.Category
	err := s.getDB().WithContext(ctx).Order("id ASC").Find(&categories).Error
	return categories, err
}

func (s *PostgresStore) CreateCategory(ctx context.Context, in *models.CategoryInput) (*models.Category, error) {
	if err := models.ValidateCategory(in); err != nil {
		return nil, err
	}
	category := &models.Category{Name: in.Name, Description: in.Description}
	if err := s.getDB().WithContext(ctx).Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

func (s *PostgresStore) GetCategoryByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	err := s.getDB().WithContext(ctx).Take(&category, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("category", id)
		}
		return nil, err
	}
	return &category, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, id uint, in *models.CategoryInput) (*models.Category, []uint, error) {
	if err := models.ValidateCategory(in); err != nil {
		return nil, nil, err
	}
	var affected []uint
	err := s.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Category{}).
			Where("id = ?", id).
			Updates(map[string]any{"name": in.Name, "description": in.Description})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("category", id)
		}
		var err error
		affected, err = queueCategoryProducts(tx, id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	category, err := s.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return category, affected, nil
}

// DeleteCategory detaches the category's products before removing it. The
// foreign key does the same, but SQLite only enforces it when the connection
// enabled foreign keys.
func (s *PostgresStore) DeleteCategory(ctx context.Context, id uint) ([]uint, error) {
	var affected []uint
	err := s.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if affected, err = queueCategoryProducts(tx, id); err != nil {
			return err
		}
		if len(affected) > 0 {
			if err := tx.Model(&models.Product{}).
				Where("id IN ?", affected).
				Updates(map[string]any{"category_id": nil, "updated_at": time.Now()}).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&models.Category{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("category", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return affected, nil
}

// queueCategoryProducts records a pending projection for every product of
// the category and returns their ids. Runs inside the mutating transaction,
// so a crash before the index is updated still leaves the rows for repair.
func queueCategoryProducts(tx *gorm.DB, categoryID uint) ([]uint, error) {
	var ids []uint
	if err := tx.Model(&models.Product{}).
		Where("category_id = ?", categoryID).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		if err := recordPending(tx, id, models.ProjectionCategory, nil); err != nil {
			return nil, err
		}
	}
	return ids, nil
}
