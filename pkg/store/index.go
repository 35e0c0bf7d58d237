package store

import (
	"context"

	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
)

// SearchIndex is the adapter to the external full-text search engine.
//
// Every write is a full replace of the document stored under the id. Errors
// caused by the engine being unreachable or slow are returned as
// *models.TransientBackendError.
type SearchIndex interface {
	// EnsureIndex creates the index with schema if it does not exist yet.
	// It neither fails nor alters anything when the index is already present.
	EnsureIndex(ctx context.Context, schema models.IndexSchema) error

	// UpsertDocument replaces the document stored under id.
	UpsertDocument(ctx context.Context, id string, doc *models.SearchDocument) error

	// Search runs q and returns the matching documents in relevance order.
	Search(ctx context.Context, q *IndexQuery) ([]*models.SearchDocument, error)

	// Count returns the number of documents visible to search.
	Count(ctx context.Context) (int64, error)

	// Refresh makes all completed writes visible to subsequent searches.
	Refresh(ctx context.Context) error

	Close() error
}

// ClauseOp is the comparison of a filter clause.
type ClauseOp string

const (
	OpEq  ClauseOp = "="
	OpGte ClauseOp = ">="
	OpLte ClauseOp = "<="
)

// Clause is a required condition on one document field.
type Clause struct {
	Field string
	Op    ClauseOp
	Value any
}

// TextField is a field searched by free text, with its relevance weight.
type TextField struct {
	Name  string
	Boost float64
	// Ignore is a stored placeholder value that text never matches.
	Ignore string
}

// IndexQuery is a structured search request.
//
// When Text is empty every document is a candidate. Each clause in Filters
// must hold for a document to be returned; clauses are never combined with OR.
type IndexQuery struct {
	Text       string
	TextFields []TextField
	Filters    []Clause
	Limit      int
}

// DefaultSearchLimit bounds the number of documents a search returns when
// the query does not set Limit.
const DefaultSearchLimit = models.DefaultSearchLimit
