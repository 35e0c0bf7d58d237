package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// UncategorizedName is stored as category_name when a product's category
// cannot be resolved at projection time.
const UncategorizedName = "uncategorized"

// SearchDocument is the per-product record held by the search index.
// It carries the resolved category name instead of a join key.
type SearchDocument struct {
	ID                 uint      `json:"id"`
	Name               string    `json:"name"`
	Brand              string    `json:"brand"`
	Price              float64   `json:"price"`
	OriginalPrice      *float64  `json:"original_price"`
	DiscountPercentage int       `json:"discount_percentage"`
	ImageURL           string    `json:"image_url"`
	CategoryID         *uint     `json:"category_id"`
	CategoryName       string    `json:"category_name"`
	Promotion          bool      `json:"promotion"`
	Views              int64     `json:"views"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DocumentID returns the string-encoded product id that keys the document.
func DocumentID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// NewSearchDocument projects p into a search document. An empty categoryName
// is replaced by UncategorizedName.
func NewSearchDocument(p *Product, categoryName string) *SearchDocument {
	if categoryName == "" {
		categoryName = UncategorizedName
	}
	doc := &SearchDocument{
		ID:                 p.ID,
		Name:               p.Name,
		Brand:              p.Brand,
		Price:              p.Price.InexactFloat64(),
		DiscountPercentage: p.DiscountPercentage,
		CategoryName:       categoryName,
		Promotion:          p.Promotion,
		Views:              p.Views,
		CreatedAt:          p.CreatedAt.UTC(),
		UpdatedAt:          p.UpdatedAt.UTC(),
	}
	if p.OriginalPrice.Valid {
		f := p.OriginalPrice.Decimal.InexactFloat64()
		doc.OriginalPrice = &f
	}
	if p.ImageURL != nil {
		doc.ImageURL = *p.ImageURL
	}
	if p.CategoryID != nil {
		id := *p.CategoryID
		doc.CategoryID = &id
	}
	return doc
}

// Product converts the document back to the product shape returned to callers.
func (d *SearchDocument) Product() *Product {
	p := &Product{
		ID:                 d.ID,
		Name:               d.Name,
		Brand:              d.Brand,
		Price:              decimal.NewFromFloat(d.Price).Round(2),
		DiscountPercentage: d.DiscountPercentage,
		Promotion:          d.Promotion,
		Views:              d.Views,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	if d.OriginalPrice != nil {
		p.OriginalPrice = decimal.NewNullDecimal(decimal.NewFromFloat(*d.OriginalPrice).Round(2))
	}
	if d.ImageURL != "" {
		url := d.ImageURL
		p.ImageURL = &url
	}
	if d.CategoryID != nil {
		id := *d.CategoryID
		p.CategoryID = &id
	}
	if d.CategoryName != UncategorizedName {
		p.CategoryName = d.CategoryName
	}
	return p
}

// FieldType is the index mapping type of a document field.
type FieldType string

const (
	FieldInt   FieldType = "int"
	FieldFloat FieldType = "float"
	FieldText  FieldType = "text"
	FieldBool  FieldType = "bool"
	FieldDate  FieldType = "date"
	// FieldKeyword is stored verbatim and never analyzed.
	FieldKeyword FieldType = "keyword"
)

// FieldMapping maps one document field to its index type.
type FieldMapping struct {
	Name     string
	Type     FieldType
	Optional bool
}

// IndexSchema is the fixed mapping of the product search index.
type IndexSchema struct {
	Name   string
	Fields []FieldMapping
}

// TextFields returns the names of the analyzed text fields in mapping order.
func (s IndexSchema) TextFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Type == FieldText {
			out = append(out, f.Name)
		}
	}
	return out
}

// Field looks up a mapping by name.
func (s IndexSchema) Field(name string) (FieldMapping, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldMapping{}, false
}

// ProductIndexSchema is the mapping every search index backend is created with.
var ProductIndexSchema = IndexSchema{
	Name: "products",
	Fields: []FieldMapping{
		{Name: "id", Type: FieldInt},
		{Name: "name", Type: FieldText},
		{Name: "brand", Type: FieldText},
		{Name: "price", Type: FieldFloat},
		{Name: "original_price", Type: FieldFloat, Optional: true},
		{Name: "discount_percentage", Type: FieldInt},
		{Name: "image_url", Type: FieldKeyword},
		{Name: "category_id", Type: FieldInt, Optional: true},
		{Name: "category_name", Type: FieldText},
		{Name: "promotion", Type: FieldBool},
		{Name: "views", Type: FieldInt},
		{Name: "created_at", Type: FieldDate},
		{Name: "updated_at", Type: FieldDate},
	},
}
