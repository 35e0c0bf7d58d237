// Package models defines the catalog entities shared by the relational store,
// the search index projection and the HTTP layer.
//
// Product and Category are GORM models persisted by the relational store.
// SearchDocument is the denormalized shape written to the search index, and
// ProductFilter is the normalized request accepted by the query translator.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products. Deleting a category leaves its products in place
// with a null category reference.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product is a catalog item and the source of truth for its search document.
//
// DiscountPercentage and Promotion are derived from the prices on every write
// and are never taken from the caller when both prices are known. Views only
// ever grows through an atomic increment in the store.
type Product struct {
	ID                 uint                `gorm:"primaryKey" json:"id"`
	Name               string              `gorm:"size:255;not null" json:"name"`
	Brand              string              `gorm:"size:255;not null" json:"brand"`
	Price              decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"price"`
	OriginalPrice      decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"original_price"`
	DiscountPercentage int                 `gorm:"not null;default:0" json:"discount_percentage"`
	ImageURL           *string             `gorm:"size:500" json:"image_url"`
	CategoryID         *uint               `gorm:"index" json:"category_id"`
	Category           *Category           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	Promotion          bool                `gorm:"not null;default:false" json:"promotion"`
	Views              int64               `gorm:"not null;default:0" json:"views"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`

	// CategoryName is filled by joined reads and by search results.
	// It is empty for products without a category.
	CategoryName string `gorm:"->;-:migration" json:"category_name"`
}

// ProductInput carries the caller-supplied fields of a new product.
type ProductInput struct {
	Name          string           `json:"name" validate:"required,max=255"`
	Brand         string           `json:"brand" validate:"required,max=255"`
	Price         *decimal.Decimal `json:"price" validate:"required"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	ImageURL      *string          `json:"image_url,omitempty" validate:"omitempty,max=500"`
	CategoryID    *uint            `json:"category_id" validate:"required"`
	Promotion     bool             `json:"promotion"`
}

// CategoryInput carries the caller-supplied fields of a category.
type CategoryInput struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description,omitempty"`
}

// PriceInput is the body of a price change.
type PriceInput struct {
	Price         *decimal.Decimal `json:"price" validate:"required"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Promotion     bool             `json:"promotion"`
}

// Page is one page of a paginated product listing.
type Page struct {
	Items    []*Product `json:"items"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	HasMore  bool       `json:"has_more"`
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// NormalizePage clamps page and pageSize to the accepted ranges.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// NewProduct validates in and builds the row to insert.
func NewProduct(in *ProductInput) (*Product, error) {
	if in == nil {
		return nil, NewValidationError("", "missing product")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Brand = strings.TrimSpace(in.Brand)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := checkPrices(*in.Price, in.OriginalPrice); err != nil {
		return nil, err
	}

	p := &Product{
		Name:       in.Name,
		Brand:      in.Brand,
		ImageURL:   in.ImageURL,
		CategoryID: in.CategoryID,
	}
	p.ApplyPricing(*in.Price, in.OriginalPrice, in.Promotion)
	return p, nil
}

// ApplyPricing sets the prices and recomputes the derived discount and promotion flag.
func (p *Product) ApplyPricing(price decimal.Decimal, original *decimal.Decimal, flagged bool) {
	p.Price = price.Round(2)
	if original != nil {
		p.OriginalPrice = decimal.NewNullDecimal(original.Round(2))
	} else {
		p.OriginalPrice = decimal.NullDecimal{}
	}
	p.DiscountPercentage = DiscountPercentage(p.Price, original)
	p.Promotion = p.DiscountPercentage > 0 || flagged
}

// ValidatePrice checks a price change before it reaches the store.
func ValidatePrice(in *PriceInput) error {
	if in == nil {
		return NewValidationError("price", "is required")
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	return checkPrices(*in.Price, in.OriginalPrice)
}

// DiscountPercentage returns the whole-number percentage taken off original,
// rounded down and clamped to 0..100. It is 0 without an original price.
func DiscountPercentage(price decimal.Decimal, original *decimal.Decimal) int {
	if original == nil || !original.IsPositive() || original.LessThanOrEqual(price) {
		return 0
	}
	pct := original.Sub(price).Div(*original).Mul(decimal.NewFromInt(100)).Floor()
	switch {
	case pct.IsNegative():
		return 0
	case pct.GreaterThan(decimal.NewFromInt(100)):
		return 100
	}
	return int(pct.IntPart())
}

func checkPrices(price decimal.Decimal, original *decimal.Decimal) error {
	if price.IsNegative() {
		return NewValidationError("price", "must not be negative")
	}
	if original == nil {
		return nil
	}
	if original.IsNegative() {
		return NewValidationError("original_price", "must not be negative")
	}
	if original.LessThan(price) {
		return NewValidationError("original_price", "must not be lower than price")
	}
	return nil
}
