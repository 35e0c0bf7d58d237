package surrealcatalog

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cast"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/query"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Handler returns the HTTP API.
//
//	GET    /health
//	GET    /v1/api/products                  ?category=&page=&limit=
//	POST   /v1/api/products
//	GET    /v1/api/products/with-category
//	GET    /v1/api/products/search           ?query=&category=&minPrice=&maxPrice=&promotion=&minViews=&backend=
//	GET    /v1/api/products/{id}             counts a view
//	PUT    /v1/api/products/{id}/price
//	GET    /v1/api/categories
//	POST   /v1/api/categories
//	GET    /v1/api/categories/{id}
//	PUT    /v1/api/categories/{id}
//	DELETE /v1/api/categories/{id}
//	POST   /v1/api/admin/reindex
//	GET    /v1/api/admin/sync-status
//	POST   /v1/api/admin/sync
//	GET    /v1/api/admin/read-only
//	POST   /v1/api/admin/read-only
func (a *App) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(withRequestID, a.accessLog)

	router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/v1/api").Subrouter()

	api.HandleFunc("/products", a.handleListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products", a.handleCreateProduct).Methods(http.MethodPost)
	api.HandleFunc("/products/with-category", a.handleListProductsWithCategory).Methods(http.MethodGet)
	api.HandleFunc("/products/search", a.handleSearchProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{id:[0-9]+}", a.handleGetProduct).Methods(http.MethodGet)
	api.HandleFunc("/products/{id:[0-9]+}/price", a.handleSetPrice).Methods(http.MethodPut)

	api.HandleFunc("/categories", a.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", a.handleCreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/{id:[0-9]+}", a.handleGetCategory).Methods(http.MethodGet)
	api.HandleFunc("/categories/{id:[0-9]+}", a.handleUpdateCategory).Methods(http.MethodPut)
	api.HandleFunc("/categories/{id:[0-9]+}", a.handleDeleteCategory).Methods(http.MethodDelete)

	api.HandleFunc("/admin/reindex", a.handleReindex).Methods(http.MethodPost)
	api.HandleFunc("/admin/sync-status", a.handleSyncStatus).Methods(http.MethodGet)
	api.HandleFunc("/admin/sync", a.handleSync).Methods(http.MethodPost)
	api.HandleFunc("/admin/read-only", a.handleGetReadOnly).Methods(http.MethodGet)
	api.HandleFunc("/admin/read-only", a.handleSetReadOnly).Methods(http.MethodPost)

	return router
}

func pathID(r *http.Request) (uint, error) {
	id, err := cast.ToUintE(mux.Vars(r)["id"])
	if err != nil || id == 0 {
		return 0, models.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return models.NewValidationError("body", "invalid request payload: "+err.Error())
	}
	return nil
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"projection_mode": a.sync.Config().Mode,
		"index":           a.config.Index.Backend,
		"read_only":       a.IsReadOnly(),
		"time":            time.Now().Unix(),
	})
}

func (a *App) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var categoryID *uint
	if v := q.Get("category"); v != "" {
		id, err := cast.ToUintE(v)
		if err != nil || id == 0 {
			a.respondErr(w, r, models.NewValidationError("category", "must be a positive integer"))
			return
		}
		categoryID = &id
	}
	page, err := cast.ToIntE(valueOr(q.Get("page"), "1"))
	if err != nil {
		a.respondErr(w, r, models.NewValidationError("page", "must be an integer"))
		return
	}
	limit, err := cast.ToIntE(valueOr(q.Get("limit"), "0"))
	if err != nil {
		a.respondErr(w, r, models.NewValidationError("limit", "must be an integer"))
		return
	}

	result, err := a.ListProductsPaginated(r.Context(), categoryID, page, limit)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func (a *App) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in models.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.respondErr(w, r, err)
		return
	}
	product, err := a.CreateProduct(r.Context(), &in)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (a *App) handleListProductsWithCategory(w http.ResponseWriter, r *http.Request) {
	products, err := a.ListProductsWithCategory(r.Context())
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (a *App) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := query.ParseFilter(r.URL.Query())
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	result, err := a.SearchProducts(r.Context(), filter)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	if result.Degraded {
		w.Header().Set("Warning", `199 - "search index unavailable, results are from the relational store"`)
	}
	respondJSON(w, http.StatusOK, result)
}

// handleGetProduct returns the product and counts the request as a view.
func (a *App) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	product, err := a.IncrementViews(r.Context(), id)
	if err != nil {
		if !models.IsNotFound(err) && a.IsReadOnly() {
			// views are not counted in read-only mode
			product, err = a.GetProductByID(r.Context(), id)
		}
		if err != nil {
			a.respondErr(w, r, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, product)
}

func (a *App) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	var in models.PriceInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.respondErr(w, r, err)
		return
	}
	product, err := a.SetPrice(r.Context(), id, &in)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (a *App) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.ListCategories(r.Context())
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (a *App) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in models.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.respondErr(w, r, err)
		return
	}
	category, err := a.CreateCategory(r.Context(), &in)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

func (a *App) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	category, err := a.GetCategoryByID(r.Context(), id)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, category)
}

func (a *App) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	var in models.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.respondErr(w, r, err)
		return
	}
	category, err := a.UpdateCategory(r.Context(), id, &in)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, category)
}

func (a *App) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	if err := a.DeleteCategory(r.Context(), id); err != nil {
		a.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleReindex(w http.ResponseWriter, r *http.Request) {
	report, err := a.Reindex(r.Context())
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (a *App) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := a.Status(r.Context())
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (a *App) handleSync(w http.ResponseWriter, r *http.Request) {
	limit, err := cast.ToIntE(valueOr(r.URL.Query().Get("limit"), "0"))
	if err != nil {
		a.respondErr(w, r, models.NewValidationError("limit", "must be an integer"))
		return
	}
	report, err := a.Sync(r.Context(), limit)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (a *App) handleGetReadOnly(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"read_only": a.IsReadOnly()})
}

func (a *App) handleSetReadOnly(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ReadOnly *bool `json:"read_only"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		a.respondErr(w, r, err)
		return
	}
	if body.ReadOnly == nil {
		a.respondErr(w, r, models.NewValidationError("read_only", "is required"))
		return
	}
	a.SetReadOnly(*body.ReadOnly)
	respondJSON(w, http.StatusOK, map[string]bool{"read_only": a.IsReadOnly()})
}
