package surrealdb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store"
	"github.com/surrealdb/surrealdb.go/contrib/surrealql"
)

const analyzerName = "catalog_analyzer"

// id is reserved for the record id, so the product id lives in product_id.
func column(field string) string {
	if field == "id" {
		return "product_id"
	}
	return field
}

func fieldKind(m models.FieldMapping) string {
	var kind string
	switch m.Type {
	case models.FieldInt:
		kind = "int"
	case models.FieldFloat:
		kind = "float"
	case models.FieldBool:
		kind = "bool"
	case models.FieldDate:
		kind = "datetime"
	default:
		kind = "string"
	}
	if m.Optional {
		return "option<" + kind + ">"
	}
	return kind
}

func searchIndexName(table, field string) string {
	return table + "_" + field + "_search"
}

// renderSchema returns the DEFINE statements that create the index. Every
// statement is guarded with IF NOT EXISTS so running them again is a no-op.
func renderSchema(table string, schema models.IndexSchema) []string {
	stmts := []string{
		fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table),
	}
	for _, f := range schema.Fields {
		stmts = append(stmts, fmt.Sprintf("DEFINE FIELD IF NOT EXISTS %s ON TABLE %s TYPE %s", column(f.Name), table, fieldKind(f)))
	}
	stmts = append(stmts, fmt.Sprintf(
		"DEFINE ANALYZER IF NOT EXISTS %s TOKENIZERS class FILTERS ascii, lowercase, edgengram(2, 10)", analyzerName))
	for _, name := range schema.TextFields() {
		stmts = append(stmts, fmt.Sprintf(
			"DEFINE INDEX IF NOT EXISTS %s ON TABLE %s FIELDS %s SEARCH ANALYZER %s BM25",
			searchIndexName(table, name), table, name, analyzerName))
	}
	return stmts
}

func renderRefresh(table string, schema models.IndexSchema) []string {
	var stmts []string
	for _, name := range schema.TextFields() {
		stmts = append(stmts, fmt.Sprintf("REBUILD INDEX IF EXISTS %s ON TABLE %s", searchIndexName(table, name), table))
	}
	return stmts
}

func renderCount(table string) (string, map[string]any) {
	return surrealql.Select(table).Fields("count()").GroupAll().Build()
}

// renderSearch turns q into a SELECT. Each filter is its own WHERE conjunct.
// The text clause is a single parenthesized disjunction over the text fields,
// scored per field and summed by boost into relevance. A field's Ignore value
// is excluded from its match.
func renderSearch(table string, q *store.IndexQuery) (string, map[string]any, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = store.DefaultSearchLimit
	}

	text := strings.TrimSpace(q.Text)
	if text != "" && len(q.TextFields) == 0 {
		return "", nil, fmt.Errorf("search text %q given without text fields", text)
	}

	sel := surrealql.Select(table)
	if text != "" {
		scores := make([]string, len(q.TextFields))
		matches := make([]string, 0, len(q.TextFields)+1)
		args := make([]any, 0, len(q.TextFields)+1)
		for i, f := range q.TextFields {
			scores[i] = fmt.Sprintf("search::score(%d) * %s", i, strconv.FormatFloat(f.Boost, 'f', -1, 64))
			if f.Ignore != "" {
				matches = append(matches, fmt.Sprintf("(%s != ? AND %s @%d@ ?)", f.Name, f.Name, i))
				args = append(args, f.Ignore, text)
				continue
			}
			matches = append(matches, fmt.Sprintf("%s @%d@ ?", f.Name, i))
			args = append(args, text)
		}
		matches = append(matches, q.TextFields[0].Name+" ~ ?")
		args = append(args, text)

		sel = sel.Fields("*").
			Alias("relevance", strings.Join(scores, " + ")).
			Where("("+strings.Join(matches, " OR ")+")", args...)
	}

	for _, c := range q.Filters {
		switch c.Op {
		case store.OpEq, store.OpGte, store.OpLte:
		default:
			return "", nil, fmt.Errorf("unsupported filter operator %q on %s", c.Op, c.Field)
		}
		sel = sel.Where(fmt.Sprintf("%s %s ?", column(c.Field), c.Op), c.Value)
	}

	if text != "" {
		sel = sel.OrderByDesc("relevance")
	}
	sel = sel.OrderBy("product_id").Limit(limit)

	sql, vars := sel.Build()
	return sql, vars, nil
}
