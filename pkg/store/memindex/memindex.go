// Package memindex is an in-process store.SearchIndex.
//
// It keeps the refresh contract of a real engine: upserts are staged and only
// become searchable after Refresh, unless the index was built with
// WithAutoRefresh. It is used by tests and by local runs without SurrealDB.
package memindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/spf13/cast"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store"
)

// ErrNoIndex is returned by operations made before EnsureIndex.
var ErrNoIndex = errors.New("index does not exist")

var _ store.SearchIndex = (*Index)(nil)

// Option configures an Index.
type Option func(*Index)

// WithAutoRefresh makes every upsert visible to search immediately.
func WithAutoRefresh() Option {
	return func(i *Index) { i.autoRefresh = true }
}

// UpsertHook runs before a document is stored. A non-nil error fails the
// upsert as a transient backend error.
type UpsertHook func(ctx context.Context, id string, doc *models.SearchDocument) error

type Index struct {
	mu          sync.RWMutex
	schema      *models.IndexSchema
	staged      map[string]*models.SearchDocument
	visible     map[string]*models.SearchDocument
	autoRefresh bool
	failure     error
	upsertHook  UpsertHook
	upserts     int
}

func New(opts ...Option) *Index {
	i := &Index{
		staged:  make(map[string]*models.SearchDocument),
		visible: make(map[string]*models.SearchDocument),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// SetFailure makes every following call fail with err until it is reset with nil.
func (i *Index) SetFailure(err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.failure = err
}

func (i *Index) SetUpsertHook(hook UpsertHook) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.upsertHook = hook
}

// Upserts returns how many upserts have succeeded.
func (i *Index) Upserts() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.upserts
}

// Document returns a copy of the latest document written under id, refreshed or not.
func (i *Index) Document(id string) (*models.SearchDocument, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	doc, ok := i.staged[id]
	if !ok {
		doc, ok = i.visible[id]
	}
	if !ok {
		return nil, false
	}
	c := *doc
	return &c, true
}

// Snapshot returns copies of the searchable documents keyed by id.
func (i *Index) Snapshot() map[string]models.SearchDocument {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make(map[string]models.SearchDocument, len(i.visible))
	for id, doc := range i.visible {
		out[id] = *doc
	}
	return out
}

func (i *Index) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return models.NewTransientBackendError(op, err)
	}
	if i.failure != nil {
		return models.NewTransientBackendError(op, i.failure)
	}
	if i.schema == nil {
		return models.NewTransientBackendError(op, ErrNoIndex)
	}
	return nil
}

func (i *Index) EnsureIndex(ctx context.Context, schema models.IndexSchema) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.failure != nil {
		return models.NewTransientBackendError("ensure index", i.failure)
	}
	if i.schema != nil {
		return nil
	}
	if schema.Name == "" || len(schema.Fields) == 0 {
		return fmt.Errorf("index schema %q has no fields", schema.Name)
	}
	s := schema
	i.schema = &s
	return nil
}

func (i *Index) UpsertDocument(ctx context.Context, id string, doc *models.SearchDocument) error {
	i.mu.RLock()
	hook := i.upsertHook
	i.mu.RUnlock()
	if hook != nil {
		if err := hook(ctx, id, doc); err != nil {
			return models.NewTransientBackendError("upsert", err)
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.check(ctx, "upsert"); err != nil {
		return err
	}
	c := *doc
	if i.autoRefresh {
		i.visible[id] = &c
	} else {
		i.staged[id] = &c
	}
	i.upserts++
	return nil
}

func (i *Index) Refresh(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.check(ctx, "refresh"); err != nil {
		return err
	}
	for id, doc := range i.staged {
		i.visible[id] = doc
	}
	i.staged = make(map[string]*models.SearchDocument)
	return nil
}

func (i *Index) Count(ctx context.Context) (int64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if err := i.check(ctx, "count"); err != nil {
		return 0, err
	}
	return int64(len(i.visible)), nil
}

func (i *Index) Search(ctx context.Context, q *store.IndexQuery) ([]*models.SearchDocument, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if err := i.check(ctx, "search"); err != nil {
		return nil, err
	}
	for _, c := range q.Filters {
		if _, ok := i.schema.Field(c.Field); !ok {
			return nil, fmt.Errorf("search: unknown field %q", c.Field)
		}
	}
	for _, f := range q.TextFields {
		if m, ok := i.schema.Field(f.Name); !ok || m.Type != models.FieldText {
			return nil, fmt.Errorf("search: %q is not a text field", f.Name)
		}
	}

	type hit struct {
		doc   *models.SearchDocument
		score float64
	}
	text := strings.ToLower(strings.TrimSpace(q.Text))
	terms := tokenize(text)
	var hits []hit
	for _, doc := range i.visible {
		if !matchesAll(doc, q.Filters) {
			continue
		}
		score := 0.0
		if text != "" {
			for _, f := range q.TextFields {
				value := fieldString(doc, f.Name)
				if f.Ignore != "" && value == strings.ToLower(f.Ignore) {
					continue
				}
				if matchText(value, text, terms) {
					score += f.Boost
				}
			}
			if score == 0 {
				continue
			}
		}
		c := *doc
		hits = append(hits, hit{doc: &c, score: score})
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].doc.ID < hits[b].doc.ID
	})

	limit := q.Limit
	if limit <= 0 {
		limit = store.DefaultSearchLimit
	}
	docs := make([]*models.SearchDocument, 0, min(limit, len(hits)))
	for _, h := range hits {
		if len(docs) == limit {
			break
		}
		docs = append(docs, h.doc)
	}
	return docs, nil
}

func (i *Index) Close() error {
	return nil
}

func matchesAll(doc *models.SearchDocument, clauses []store.Clause) bool {
	for _, c := range clauses {
		if !matchClause(doc, c) {
			return false
		}
	}
	return true
}

func matchClause(doc *models.SearchDocument, c store.Clause) bool {
	v, ok := fieldValue(doc, c.Field)
	if !ok {
		return false
	}
	if b, isBool := v.(bool); isBool {
		want, err := cast.ToBoolE(c.Value)
		return err == nil && c.Op == store.OpEq && b == want
	}
	if s, isString := v.(string); isString {
		return c.Op == store.OpEq && strings.EqualFold(s, cast.ToString(c.Value))
	}
	have, err := cast.ToFloat64E(v)
	if err != nil {
		return false
	}
	want, err := cast.ToFloat64E(c.Value)
	if err != nil {
		return false
	}
	switch c.Op {
	case store.OpEq:
		return have == want
	case store.OpGte:
		return have >= want
	case store.OpLte:
		return have <= want
	}
	return false
}

// fieldValue returns the value of a mapped field. Absent optional fields
// report false.
func fieldValue(doc *models.SearchDocument, field string) (any, bool) {
	switch field {
	case "id":
		return doc.ID, true
	case "name":
		return doc.Name, true
	case "brand":
		return doc.Brand, true
	case "price":
		return doc.Price, true
	case "original_price":
		if doc.OriginalPrice == nil {
			return nil, false
		}
		return *doc.OriginalPrice, true
	case "discount_percentage":
		return doc.DiscountPercentage, true
	case "image_url":
		return doc.ImageURL, true
	case "category_id":
		if doc.CategoryID == nil {
			return nil, false
		}
		return *doc.CategoryID, true
	case "category_name":
		return doc.CategoryName, true
	case "promotion":
		return doc.Promotion, true
	case "views":
		return doc.Views, true
	case "created_at":
		return doc.CreatedAt.Unix(), true
	case "updated_at":
		return doc.UpdatedAt.Unix(), true
	}
	return nil, false
}

func fieldString(doc *models.SearchDocument, field string) string {
	v, ok := fieldValue(doc, field)
	if !ok {
		return ""
	}
	return strings.ToLower(cast.ToString(v))
}

// matchText reports whether value contains text, or whether every term of
// text is within one edit of some token of value.
func matchText(value, text string, terms []string) bool {
	if value == "" {
		return false
	}
	if strings.Contains(value, text) {
		return true
	}
	tokens := tokenize(value)
	for _, term := range terms {
		found := false
		for _, tok := range tokens {
			if strings.Contains(tok, term) || (len(term) >= 3 && withinOneEdit(term, tok)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return len(terms) > 0
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// withinOneEdit reports whether a and b differ by at most one insertion,
// deletion or substitution.
func withinOneEdit(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(rb)-len(ra) > 1 {
		return false
	}
	edits := 0
	for x, y := 0, 0; x < len(ra) || y < len(rb); {
		if x < len(ra) && y < len(rb) && ra[x] == rb[y] {
			x++
			y++
			continue
		}
		edits++
		if edits > 1 {
			return false
		}
		if len(ra) == len(rb) {
			x++
		}
		y++
	}
	return true
}
