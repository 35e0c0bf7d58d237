package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Backend selects which store answers a product search.
type Backend string

const (
	BackendSearchIndex Backend = "search-index"
	BackendRelational  Backend = "relational"
)

// ParseBackend accepts the backend names used on the wire. An empty value
// selects the search index.
func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(s))) {
	case "", BackendSearchIndex, "index", "search":
		return BackendSearchIndex, nil
	case BackendRelational, "sql", "store":
		return BackendRelational, nil
	}
	return "", NewValidationError("backend", "must be search-index or relational")
}

// DefaultSearchLimit caps the number of products one search returns.
const DefaultSearchLimit = 1000

// ProductFilter is a normalized product search request. Every filter that is
// set must hold for a product to match. An empty Text matches every product.
type ProductFilter struct {
	Text          string           `json:"text,omitempty"`
	CategoryID    *uint            `json:"category_id,omitempty"`
	MinPrice      *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice      *decimal.Decimal `json:"max_price,omitempty"`
	PromotionOnly bool             `json:"promotion_only,omitempty"`
	MinViews      *int64           `json:"min_views,omitempty"`
	Backend       Backend          `json:"backend,omitempty"`
	// Limit caps the result on both backends. Zero means DefaultSearchLimit.
	Limit int `json:"limit,omitempty"`
}

// Normalize trims the text, fills in the default backend and limit, and
// rejects inconsistent bounds.
func (f ProductFilter) Normalize() (ProductFilter, error) {
	f.Text = strings.TrimSpace(f.Text)
	backend, err := ParseBackend(string(f.Backend))
	if err != nil {
		return f, err
	}
	f.Backend = backend
	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return f, NewValidationError("minPrice", "must not be negative")
	}
	if f.MaxPrice != nil && f.MaxPrice.IsNegative() {
		return f, NewValidationError("maxPrice", "must not be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return f, NewValidationError("minPrice", "must not exceed maxPrice")
	}
	if f.MinViews != nil && *f.MinViews < 0 {
		return f, NewValidationError("minViews", "must not be negative")
	}
	if f.Limit < 0 {
		return f, NewValidationError("limit", "must not be negative")
	}
	if f.Limit == 0 || f.Limit > DefaultSearchLimit {
		f.Limit = DefaultSearchLimit
	}
	return f, nil
}
