package postgres

import (
	"context"
	"strings"

	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchProductsRelational translates filter into SQL conditions joined with
// AND. Text matches are case-insensitive substring matches on the product
// name, brand and category name; there is no fuzziness. Results are ordered by
// id and capped at filter.Limit.
func (s *PostgresStore) SearchProductsRelational(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	products := make([]*models.Product, 0)
	err = applyFilter(withCategory(s.getDB().WithContext(ctx)), filter).
		Order("products.id ASC").
		Limit(filter.Limit).
		Find(&products).Error
	return products, err
}

func applyFilter(q *gorm.DB, f models.ProductFilter) *gorm.DB {
	if f.Text != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(f.Text)) + "%"
		q = q.Where(
			`(LOWER(products.name) LIKE ? ESCAPE '\' OR LOWER(products.brand) LIKE ? ESCAPE '\' OR LOWER(COALESCE(categories.name, '')) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern,
		)
	}
	if f.CategoryID != nil {
		q = q.Where("products.category_id = ?", *f.CategoryID)
	}
	if f.MinPrice != nil {
		q = q.Where("products.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("products.price <= ?", *f.MaxPrice)
	}
	if f.PromotionOnly {
		q = q.Where("products.promotion = ?", true)
	}
	if f.MinViews != nil {
		q = q.Where("products.views >= ?", *f.MinViews)
	}
	return q
}
