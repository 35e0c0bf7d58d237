package postgres

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"gorm.io/gorm"
)

type sampleProduct struct {
	name, brand     string
	price, original string
	imageURL        string
	category        string
}

var sampleCategories = []models.Category{
	{Name: "Smartphones"},
	{Name: "Laptops"},
}

var sampleProducts = []sampleProduct{
	{"iPhone 15", "Apple", "25000000", "28000000", "https://example.com/iphone15.jpg", "Smartphones"},
	{"Samsung Galaxy S24", "Samsung", "20000000", "", "https://example.com/galaxy.jpg", "Smartphones"},
	{"MacBook Pro", "Apple", "50000000", "55000000", "https://example.com/macbook.jpg", "Laptops"},
	{"Dell XPS 13", "Dell", "35000000", "", "https://example.com/dell.jpg", "Laptops"},
}

// SeedSampleData inserts the demo catalog if the products table is empty.
// Missing sample categories are created by name.
func (s *PostgresStore) SeedSampleData(ctx context.Context) (int, error) {
	inserted := 0
	err := s.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Product{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		categoryIDs := make(map[string]uint, len(sampleCategories))
		for _, c := range sampleCategories {
			category := c
			if err := tx.Where(models.Category{Name: c.Name}).FirstOrCreate(&category).Error; err != nil {
				return err
			}
			categoryIDs[category.Name] = category.ID
		}

		for _, sp := range sampleProducts {
			price := decimal.RequireFromString(sp.price)
			categoryID := categoryIDs[sp.category]
			imageURL := sp.imageURL
			in := &models.ProductInput{
				Name:       sp.name,
				Brand:      sp.brand,
				Price:      &price,
				ImageURL:   &imageURL,
				CategoryID: &categoryID,
			}
			if sp.original != "" {
				original := decimal.RequireFromString(sp.original)
				in.OriginalPrice = &original
			}
			product, err := models.NewProduct(in)
			if err != nil {
				return err
			}
			if err := tx.Create(product).Error; err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
