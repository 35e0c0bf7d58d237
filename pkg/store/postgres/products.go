package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"gorm.io/gorm"
)

// withCategory selects products left-joined with their category name.
func withCategory(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Product{}).
		Select("products.*, COALESCE(categories.name, '') AS category_name").
		Joins("LEFT JOIN categories ON categories.id = products.category_id")
}

func (s *PostgresStore) CreateProduct(ctx context.Context, in *models.ProductInput) (*models.Product, error) {
	product, err := models.NewProduct(in)
	if err != nil {
		return nil, err
	}

	err = s.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.Take(&category, "id = ?", *product.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewValidationError("category_id", "references an unknown category")
			}
			return err
		}
		if err := tx.Create(product).Error; err != nil {
			return err
		}
		product.CategoryName = category.Name
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *PostgresStore) GetProductByID(ctx context.Context, id uint) (*models.Product, error) {
	return getProduct(s.getDB().WithContext(ctx), id)
}

func getProduct(db *gorm.DB, id uint) (*models.Product, error) {
	var product models.Product
	err := withCategory(db).Where("products.id = ?", id).Take(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("product", id)
		}
		return nil, err
	}
	return &product, nil
}

// IncrementViews adds one to the counter in a single UPDATE, so concurrent
// viewers never lose an increment.
func (s *PostgresStore) IncrementViews(ctx context.Context, id uint) (*models.Product, error) {
	var product *models.Product
	err := s.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Product{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"views":      gorm.Expr("views + ?", 1),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("product", id)
		}
		var err error
		product, err = getProduct(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *PostgresStore) SetPrice(ctx context.Context, id uint, in *models.PriceInput) (*models.Product, error) {
	if err := models.ValidatePrice(in); err != nil {
		return nil, err
	}

	var product *models.Product
	err := s.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Product
		if err := tx.Take(&current, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("product", id)
			}
			return err
		}
		current.ApplyPricing(*in.Price, in.OriginalPrice, in.Promotion)
		if err := tx.Model(&models.Product{}).Where("id = ?", id).Updates(map[string]any{
			"price":               current.Price,
			"original_price":      current.OriginalPrice,
			"discount_percentage": current.DiscountPercentage,
			"promotion":           current.Promotion,
			"updated_at":          time.Now(),
		}).Error; err != nil {
			return err
		}
		var err error
		product, err = getProduct(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *PostgresStore) ListProductsWithCategory(ctx context.Context) ([]*models.Product, error) {
	var products []*models.Product
	err := withCategory(s.getDB().WithContext(ctx)).
		Order("COALESCE(categories.name, '') ASC, products.name ASC").
		Find(&products).Error
	return products, err
}

// ListProductsPaginated returns a page ordered by creation time, newest
// first, with the id as tie-break for rows created in the same instant.
func (s *PostgresStore) ListProductsPaginated(ctx context.Context, categoryID *uint, page, pageSize int) (*models.Page, error) {
	page, pageSize = models.NormalizePage(page, pageSize)
	db := s.getDB().WithContext(ctx)

	var total int64
	countQuery := db.Model(&models.Product{})
	if categoryID != nil {
		countQuery = countQuery.Where("category_id = ?", *categoryID)
	}
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, err
	}

	items := make([]*models.Product, 0, pageSize)
	query := withCategory(db)
	if categoryID != nil {
		query = query.Where("products.category_id = ?", *categoryID)
	}
	err := query.
		Order("products.created_at DESC, products.id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return &models.Page{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  int64(page*pageSize) < total,
	}, nil
}

func (s *PostgresStore) ListProductIDsAfter(ctx context.Context, afterID uint, limit int) ([]uint, error) {
	var ids []uint
	query := s.getDB().WithContext(ctx).
		Model(&models.Product{}).
		Where("id > ?", afterID).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Pluck("id", &ids).Error
	return ids, err
}

func (s *PostgresStore) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := s.getDB().WithContext(ctx).Model(&models.Product{}).Count(&n).Error
	return n, err
}
