package surrealdb

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store"
)

var paramRe = regexp.MustCompile(`\$\w+`)

// bind substitutes rendered parameters with their values so assertions can
// ignore the builder's parameter naming.
func bind(sql string, vars map[string]any) string {
	return paramRe.ReplaceAllStringFunc(sql, func(p string) string {
		v, ok := vars[strings.TrimPrefix(p, "$")]
		if !ok {
			return p
		}
		switch v := v.(type) {
		case string:
			return "'" + v + "'"
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return fmt.Sprint(v)
		}
	})
}

var productTextFields = []store.TextField{
	{Name: "name", Boost: 3},
	{Name: "brand", Boost: 1},
	{Name: "category_name", Boost: 1, Ignore: models.UncategorizedName},
}

func TestRenderSearchJoinsFiltersWithAnd(t *testing.T) {
	sql, vars, err := renderSearch("product_search", &store.IndexQuery{
		Filters: []store.Clause{
			{Field: "category_id", Op: store.OpEq, Value: uint(2)},
			{Field: "price", Op: store.OpGte, Value: 30000000.0},
			{Field: "price", Op: store.OpLte, Value: 60000000.0},
			{Field: "promotion", Op: store.OpEq, Value: true},
			{Field: "views", Op: store.OpGte, Value: int64(5)},
		},
	})
	require.NoError(t, err)

	assert.NotContains(t, sql, " OR ")
	assert.Equal(t,
		"SELECT * FROM product_search WHERE category_id = $param_1 AND price >= $param_2 AND price <= $param_3 AND promotion = $param_4 AND views >= $param_5 ORDER BY product_id LIMIT 1000",
		sql)
	assert.Equal(t,
		"SELECT * FROM product_search WHERE category_id = 2 AND price >= 30000000 AND price <= 60000000 AND promotion = true AND views >= 5 ORDER BY product_id LIMIT 1000",
		bind(sql, vars))
	assert.Len(t, vars, 5)
}

func TestRenderSearchWithText(t *testing.T) {
	sql, vars, err := renderSearch("product_search", &store.IndexQuery{
		Text:       "  macbook ",
		TextFields: productTextFields,
		Filters: []store.Clause{
			{Field: "promotion", Op: store.OpEq, Value: true},
		},
		Limit: 20,
	})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT *, search::score(0) * 3 + search::score(1) * 1 + search::score(2) * 1 AS relevance FROM product_search "+
			"WHERE (name @0@ 'macbook' OR brand @1@ 'macbook' OR (category_name != 'uncategorized' AND category_name @2@ 'macbook') OR name ~ 'macbook') "+
			"AND promotion = true ORDER BY relevance DESC, product_id LIMIT 20",
		bind(sql, vars))
	assert.Len(t, vars, 6)

	// the only OR is inside the parenthesized text clause
	where := sql[strings.Index(sql, "WHERE"):]
	closing := strings.LastIndex(where, ")")
	assert.NotContains(t, where[closing:], " OR ")
}

func TestRenderSearchWithoutTextMatchesAll(t *testing.T) {
	sql, vars, err := renderSearch("product_search", &store.IndexQuery{TextFields: productTextFields})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM product_search ORDER BY product_id LIMIT 1000", sql)
	assert.Empty(t, vars)
}

func TestRenderSearchMapsIDColumn(t *testing.T) {
	sql, vars, err := renderSearch("product_search", &store.IndexQuery{
		Filters: []store.Clause{{Field: "id", Op: store.OpEq, Value: uint(7)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM product_search WHERE product_id = 7 ORDER BY product_id LIMIT 1000", bind(sql, vars))
}

func TestRenderSearchErrors(t *testing.T) {
	_, _, err := renderSearch("product_search", &store.IndexQuery{Text: "x"})
	assert.Error(t, err)

	_, _, err = renderSearch("product_search", &store.IndexQuery{
		Filters: []store.Clause{{Field: "price", Op: "!=", Value: 1.0}},
	})
	assert.Error(t, err)
}

func TestRenderSchema(t *testing.T) {
	stmts := renderSchema("product_search", models.ProductIndexSchema)

	for _, stmt := range stmts {
		assert.Contains(t, stmt, "IF NOT EXISTS", stmt)
	}
	assert.Equal(t, "DEFINE TABLE IF NOT EXISTS product_search SCHEMALESS", stmts[0])
	assert.Contains(t, stmts, "DEFINE FIELD IF NOT EXISTS product_id ON TABLE product_search TYPE int")
	assert.Contains(t, stmts, "DEFINE FIELD IF NOT EXISTS category_id ON TABLE product_search TYPE option<int>")
	assert.Contains(t, stmts, "DEFINE FIELD IF NOT EXISTS created_at ON TABLE product_search TYPE datetime")
	assert.Contains(t, stmts, "DEFINE FIELD IF NOT EXISTS promotion ON TABLE product_search TYPE bool")
	assert.Contains(t, stmts, "DEFINE INDEX IF NOT EXISTS product_search_name_search ON TABLE product_search FIELDS name SEARCH ANALYZER catalog_analyzer BM25")
	assert.Contains(t, stmts, "DEFINE INDEX IF NOT EXISTS product_search_category_name_search ON TABLE product_search FIELDS category_name SEARCH ANALYZER catalog_analyzer BM25")

	refresh := renderRefresh("product_search", models.ProductIndexSchema)
	assert.Equal(t, []string{
		"REBUILD INDEX IF EXISTS product_search_name_search ON TABLE product_search",
		"REBUILD INDEX IF EXISTS product_search_brand_search ON TABLE product_search",
		"REBUILD INDEX IF EXISTS product_search_category_name_search ON TABLE product_search",
	}, refresh)
}

func TestRenderCount(t *testing.T) {
	sql, _ := renderCount("product_search")
	assert.Equal(t, "SELECT count() FROM product_search GROUP ALL", sql)
}
