package surrealcatalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/logger"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/query"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store/cqrs"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store/memindex"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store/postgres"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store/surrealdb"
)

// App holds the application state: the relational store, the search index,
// the sync coordinator that keeps the two aligned and the query translator
// that reads from either.
type App struct {
	config  *Config
	logData *logger.LogData
	log     zerolog.Logger

	backing store.CatalogStore
	store   store.CatalogStore
	index   store.SearchIndex
	sync    *cqrs.Coordinator
	search  *query.Translator

	readOnly atomic.Bool
}

// New opens the store and the search index described by config and wires
// the components together. Close releases everything New opened.
func New(ctx context.Context, config *Config) (*App, error) {
	logData, err := logger.New().
		Level(config.Log.Level).
		Console(config.Log.Console).
		ToPath(config.Log.File).
		Make()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	log := logData.Logger

	catalog, err := openStore(config.Database)
	if err != nil {
		_ = logData.Close()
		return nil, err
	}
	log.Info().Str("driver", config.Database.Driver).Msg("connected to catalog store")

	index, err := openIndex(ctx, config.Index)
	if err != nil {
		_ = catalog.Close()
		_ = logData.Close()
		return nil, err
	}
	log.Info().Str("backend", config.Index.Backend).Msg("connected to search index")

	app, err := newApp(config, catalog, index, log)
	if err != nil {
		_ = index.Close()
		_ = catalog.Close()
		_ = logData.Close()
		return nil, err
	}
	app.logData = logData
	return app, nil
}

func openStore(cfg DatabaseConfig) (*postgres.PostgresStore, error) {
	opts := postgres.Options{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	}
	switch cfg.Driver {
	case DriverSQLite:
		s, err := postgres.NewSQLiteStore(cfg.DSN, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite: %w", err)
		}
		return s, nil
	default:
		s, err := postgres.NewPostgresStore(cfg.DSN, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		return s, nil
	}
}

func openIndex(ctx context.Context, cfg IndexConfig) (store.SearchIndex, error) {
	if cfg.Backend == IndexMemory {
		return memindex.New(memindex.WithAutoRefresh()), nil
	}
	idx, err := surrealdb.NewSurrealIndex(ctx, surrealdb.Config{
		URL:       cfg.URL,
		Namespace: cfg.Namespace,
		Database:  cfg.Database,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Table:     cfg.Table,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}
	return idx, nil
}

// newApp assembles an App around an already opened store and index.
func newApp(config *Config, catalog store.CatalogStore, index store.SearchIndex, log zerolog.Logger) (*App, error) {
	app := &App{
		config:  config,
		log:     log,
		backing: catalog,
		index:   index,
	}
	app.readOnly.Store(config.ReadOnly)
	app.store = store.NewReadOnlyStore(catalog, app.IsReadOnly)

	coordinator, err := cqrs.New(app.store, index, config.syncConfig(), log)
	if err != nil {
		return nil, err
	}
	app.sync = coordinator
	app.search = query.New(app.store, index, query.Config{
		FallbackToRelational: config.Index.FallbackToRelational,
		IndexTimeout:         config.Index.Timeout,
	}, log)
	return app, nil
}

// Close stops background work and closes the index, the store and the log
// file, in that order.
func (a *App) Close() error {
	var errs []error
	if a.sync != nil {
		errs = append(errs, a.sync.Close())
	}
	if a.index != nil {
		errs = append(errs, a.index.Close())
	}
	if a.backing != nil {
		errs = append(errs, a.backing.Close())
	}
	if a.logData != nil {
		errs = append(errs, a.logData.Close())
	}
	return errors.Join(errs...)
}

// Store returns the read-only guarded store.
func (a *App) Store() store.CatalogStore {
	return a.store
}

func (a *App) Index() store.SearchIndex {
	return a.index
}

func (a *App) Logger() zerolog.Logger {
	return a.log
}

// SetReadOnly switches read-only mode. While it is on every store write
// fails with store.ErrReadOnly; reads and searches keep working.
func (a *App) SetReadOnly(readOnly bool) {
	a.readOnly.Store(readOnly)
	a.log.Info().Bool("read_only", readOnly).Msg("read-only mode changed")
}

func (a *App) IsReadOnly() bool {
	return a.readOnly.Load()
}

// CreateProduct stores the product and schedules its projection. The returned
// product exists in the store; it becomes searchable shortly after.
func (a *App) CreateProduct(ctx context.Context, in *models.ProductInput) (*models.Product, error) {
	return a.sync.CreateProduct(ctx, in)
}

func (a *App) GetProductByID(ctx context.Context, id uint) (*models.Product, error) {
	return a.store.GetProductByID(ctx, id)
}

// IncrementViews records one view of the product and returns it with the
// new count.
func (a *App) IncrementViews(ctx context.Context, id uint) (*models.Product, error) {
	return a.sync.IncrementViews(ctx, id)
}

func (a *App) SetPrice(ctx context.Context, id uint, in *models.PriceInput) (*models.Product, error) {
	return a.sync.SetPrice(ctx, id, in)
}

func (a *App) ListProductsWithCategory(ctx context.Context) ([]*models.Product, error) {
	return a.store.ListProductsWithCategory(ctx)
}

func (a *App) ListProductsPaginated(ctx context.Context, categoryID *uint, page, pageSize int) (*models.Page, error) {
	return a.store.ListProductsPaginated(ctx, categoryID, page, pageSize)
}

// SearchProducts runs filter on the backend it names.
func (a *App) SearchProducts(ctx context.Context, filter models.ProductFilter) (*query.Result, error) {
	return a.search.Search(ctx, filter)
}

func (a *App) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return a.store.ListCategories(ctx)
}

func (a *App) CreateCategory(ctx context.Context, in *models.CategoryInput) (*models.Category, error) {
	return a.store.CreateCategory(ctx, in)
}

func (a *App) GetCategoryByID(ctx context.Context, id uint) (*models.Category, error) {
	return a.store.GetCategoryByID(ctx, id)
}

// UpdateCategory renames a category and re-projects its products.
func (a *App) UpdateCategory(ctx context.Context, id uint, in *models.CategoryInput) (*models.Category, error) {
	return a.sync.UpdateCategory(ctx, id, in)
}

// DeleteCategory removes a category. Its products stay, indexed as
// uncategorized.
func (a *App) DeleteCategory(ctx context.Context, id uint) error {
	return a.sync.DeleteCategory(ctx, id)
}

// SyncStatus is the state of the index projection.
type SyncStatus struct {
	Mode      cqrs.ProjectionMode     `json:"projection_mode"`
	Index     string                  `json:"index"`
	Documents int64                   `json:"documents"`
	Products  int64                   `json:"products"`
	Queue     *models.ProjectionStats `json:"queue"`
	ReadOnly  bool                    `json:"read_only"`
}

// Status compares the store with the index. Documents is -1 when the index
// cannot be reached.
func (a *App) Status(ctx context.Context) (*SyncStatus, error) {
	products, err := a.store.CountProducts(ctx)
	if err != nil {
		return nil, err
	}
	queue, err := a.sync.Stats(ctx)
	if err != nil {
		return nil, err
	}

	status := &SyncStatus{
		Mode:     a.sync.Config().Mode,
		Index:    a.config.Index.Backend,
		Products: products,
		Queue:    queue,
		ReadOnly: a.IsReadOnly(),
	}
	ictx, cancel := context.WithTimeout(ctx, a.sync.Config().IndexTimeout)
	defer cancel()
	status.Documents, err = a.index.Count(ictx)
	if err != nil {
		a.log.Warn().Err(err).Msg("failed to count search documents")
		status.Documents = -1
	}
	return status, nil
}
