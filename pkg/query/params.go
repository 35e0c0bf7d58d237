package query

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
)

// ParseFilter reads a search filter from URL query parameters:
// query, category, minPrice, maxPrice, promotion, minViews, limit and backend.
// Empty parameters are treated as absent.
func ParseFilter(values url.Values) (models.ProductFilter, error) {
	f := models.ProductFilter{
		Text:    values.Get("query"),
		Backend: models.Backend(values.Get("backend")),
	}

	if v := param(values, "category"); v != "" {
		id, err := cast.ToUintE(v)
		if err != nil || id == 0 {
			return f, models.NewValidationError("category", "must be a positive integer")
		}
		f.CategoryID = &id
	}
	for name, dst := range map[string]**decimal.Decimal{"minPrice": &f.MinPrice, "maxPrice": &f.MaxPrice} {
		v := param(values, name)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return f, models.NewValidationError(name, "must be a number")
		}
		*dst = &d
	}
	if v := param(values, "promotion"); v != "" {
		promo, err := cast.ToBoolE(v)
		if err != nil {
			return f, models.NewValidationError("promotion", "must be a boolean")
		}
		f.PromotionOnly = promo
	}
	if v := param(values, "minViews"); v != "" {
		views, err := cast.ToInt64E(v)
		if err != nil {
			return f, models.NewValidationError("minViews", "must be an integer")
		}
		f.MinViews = &views
	}
	if v := param(values, "limit"); v != "" {
		limit, err := cast.ToIntE(v)
		if err != nil || limit <= 0 {
			return f, models.NewValidationError("limit", "must be a positive integer")
		}
		f.Limit = limit
	}
	return f.Normalize()
}

func param(values url.Values, name string) string {
	return strings.TrimSpace(values.Get(name))
}
