package cqrs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store"
)

// ProjectionMode controls whether a mutation waits for its projection.
type ProjectionMode string

const (
	// ProjectionAsync submits the projection to the worker pool and returns
	// as soon as the store write commits.
	ProjectionAsync ProjectionMode = "async"

	// ProjectionSync runs the projection inline. Failures are still only
	// logged and queued.
	ProjectionSync ProjectionMode = "sync"
)

// ParseProjectionMode accepts "async" and "sync". An empty value is async.
func ParseProjectionMode(s string) (ProjectionMode, error) {
	switch ProjectionMode(s) {
	case "", ProjectionAsync:
		return ProjectionAsync, nil
	case ProjectionSync:
		return ProjectionSync, nil
	}
	return "", fmt.Errorf("unknown projection mode: %s", s)
}

const (
	DefaultIndexTimeout     = 5 * time.Second
	DefaultReindexBatchSize = 500
	DefaultWorkers          = 16
	DefaultRepairSchedule   = "@every 30s"
	DefaultRepairBatchSize  = 100
)

type Config struct {
	Mode ProjectionMode
	// IndexTimeout bounds every single index call.
	IndexTimeout     time.Duration
	ReindexBatchSize int
	Workers          int
	RepairSchedule   string
	RepairBatchSize  int
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ProjectionAsync
	}
	if c.IndexTimeout <= 0 {
		c.IndexTimeout = DefaultIndexTimeout
	}
	if c.ReindexBatchSize <= 0 {
		c.ReindexBatchSize = DefaultReindexBatchSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.RepairSchedule == "" {
		c.RepairSchedule = DefaultRepairSchedule
	}
	if c.RepairBatchSize <= 0 {
		c.RepairBatchSize = DefaultRepairBatchSize
	}
	return c
}

// Coordinator owns the write path of the catalog: store mutation followed by
// index projection.
type Coordinator struct {
	store store.CatalogStore
	index store.SearchIndex
	cfg   Config
	log   zerolog.Logger

	pool     *ants.Pool
	locks    stripedLock
	inflight sync.WaitGroup

	mu    sync.Mutex
	sched *cron.Cron
}

// New creates a Coordinator and its worker pool. Close releases the pool.
func New(s store.CatalogStore, idx store.SearchIndex, cfg Config, log zerolog.Logger) (*Coordinator, error) {
	cfg = cfg.withDefaults()
	c := &Coordinator{
		store: s,
		index: idx,
		cfg:   cfg,
		log:   log.With().Str("component", "sync").Logger(),
	}
	pool, err := ants.NewPool(cfg.Workers, ants.WithPanicHandler(func(p any) {
		c.log.Error().Interface("panic", p).Msg("projection worker panicked")
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	c.pool = pool
	return c, nil
}

func (c *Coordinator) Config() Config {
	return c.cfg
}

// CreateProduct inserts the product and projects it into the index.
func (c *Coordinator) CreateProduct(ctx context.Context, in *models.ProductInput) (*models.Product, error) {
	p, err := c.store.CreateProduct(ctx, in)
	if err != nil {
		return nil, err
	}
	c.OnProductCreated(ctx, p)
	return p, nil
}

// IncrementViews bumps the view counter and re-projects the full document.
func (c *Coordinator) IncrementViews(ctx context.Context, id uint) (*models.Product, error) {
	return c.mutate(ctx, id, models.ProjectionView, func() (*models.Product, error) {
		return c.store.IncrementViews(ctx, id)
	})
}

// SetPrice changes the prices of a product and re-projects it.
func (c *Coordinator) SetPrice(ctx context.Context, id uint, in *models.PriceInput) (*models.Product, error) {
	return c.mutate(ctx, id, models.ProjectionUpdate, func() (*models.Product, error) {
		return c.store.SetPrice(ctx, id, in)
	})
}

// UpdateCategory changes a category and re-projects its products, whose
// documents carry the category name.
func (c *Coordinator) UpdateCategory(ctx context.Context, id uint, in *models.CategoryInput) (*models.Category, error) {
	category, affected, err := c.store.UpdateCategory(ctx, id, in)
	if err != nil {
		return nil, err
	}
	c.reprojectQueued(ctx, affected)
	return category, nil
}

// DeleteCategory removes a category and re-projects the products it left
// without one.
func (c *Coordinator) DeleteCategory(ctx context.Context, id uint) error {
	affected, err := c.store.DeleteCategory(ctx, id)
	if err != nil {
		return err
	}
	c.reprojectQueued(ctx, affected)
	return nil
}

// reprojectQueued projects products the store already queued as pending and
// resolves their rows. A failure leaves the row for the repair job.
func (c *Coordinator) reprojectQueued(ctx context.Context, ids []uint) {
	if len(ids) == 0 {
		return
	}
	c.log.Info().Int("products", len(ids)).Msg("re-projecting products of changed category")

	run := func(ctx context.Context, id uint) {
		unlock := c.locks.Lock(id)
		defer unlock()
		err := c.projectLocked(ctx, id)
		if err == nil || models.IsNotFound(err) {
			if rerr := c.store.ResolvePendingProjection(ctx, id); rerr != nil {
				c.log.Error().Err(rerr).Uint("product_id", id).Msg("failed to resolve pending projection")
			}
			return
		}
		c.handle(ctx, id, models.ProjectionCategory, err)
	}

	if c.cfg.Mode == ProjectionSync {
		for _, id := range ids {
			run(ctx, id)
		}
		return
	}

	bg := context.WithoutCancel(ctx)
	for _, id := range ids {
		c.inflight.Add(1)
		if err := c.pool.Submit(func() {
			defer c.inflight.Done()
			run(bg, id)
		}); err != nil {
			c.inflight.Done()
			c.log.Warn().Err(err).Uint("product_id", id).Msg("projection left to repair job")
		}
	}
}

// OnProductCreated projects a product that was just inserted.
func (c *Coordinator) OnProductCreated(ctx context.Context, p *models.Product) {
	c.dispatch(ctx, p.ID, models.ProjectionCreate)
}

// OnProductViewed projects a product whose view counter just changed.
func (c *Coordinator) OnProductViewed(ctx context.Context, p *models.Product) {
	c.dispatch(ctx, p.ID, models.ProjectionView)
}

// mutate runs write under the product's lock. In sync mode the projection
// runs before the lock is released; in async mode it is queued and takes the
// lock again when it runs.
func (c *Coordinator) mutate(ctx context.Context, id uint, reason models.ProjectionReason, write func() (*models.Product, error)) (*models.Product, error) {
	unlock := c.locks.Lock(id)
	p, err := write()
	if err != nil {
		unlock()
		return nil, err
	}
	if c.cfg.Mode == ProjectionSync {
		c.handle(ctx, id, reason, c.projectLocked(ctx, id))
		unlock()
		return p, nil
	}
	unlock()
	c.dispatch(ctx, id, reason)
	return p, nil
}

func (c *Coordinator) dispatch(ctx context.Context, id uint, reason models.ProjectionReason) {
	if c.cfg.Mode == ProjectionSync {
		c.handle(ctx, id, reason, c.project(ctx, id))
		return
	}

	// the request context ends with the response
	bg := context.WithoutCancel(ctx)
	c.inflight.Add(1)
	err := c.pool.Submit(func() {
		defer c.inflight.Done()
		c.handle(bg, id, reason, c.project(bg, id))
	})
	if err != nil {
		c.inflight.Done()
		c.handle(bg, id, reason, fmt.Errorf("submit projection: %w", err))
	}
}

// handle logs the outcome of a projection and queues failed ones.
func (c *Coordinator) handle(ctx context.Context, id uint, reason models.ProjectionReason, err error) {
	if err == nil {
		c.log.Debug().Uint("product_id", id).Str("reason", string(reason)).Msg("projected product")
		return
	}
	if models.IsNotFound(err) {
		c.log.Warn().Uint("product_id", id).Msg("product disappeared before projection")
		return
	}
	c.log.Warn().Err(err).Uint("product_id", id).Str("reason", string(reason)).Msg("search index projection failed")
	if qerr := c.store.RecordPendingProjection(ctx, id, reason, err); qerr != nil {
		c.log.Error().Err(qerr).Uint("product_id", id).Msg("failed to record pending projection")
	}
}

func (c *Coordinator) project(ctx context.Context, id uint) error {
	unlock := c.locks.Lock(id)
	defer unlock()
	return c.projectLocked(ctx, id)
}

// projectLocked re-reads the product and replaces its document. The caller
// holds the product's lock.
func (c *Coordinator) projectLocked(ctx context.Context, id uint) error {
	p, err := c.store.GetProductByID(ctx, id)
	if err != nil {
		return err
	}

	start := time.Now()
	ictx, cancel := context.WithTimeout(ctx, c.cfg.IndexTimeout)
	defer cancel()
	if err := c.index.UpsertDocument(ictx, models.DocumentID(id), c.document(p)); err != nil {
		return models.NewTransientBackendError("upsert", err)
	}
	c.log.Debug().Uint("product_id", id).Dur("duration", time.Since(start)).Msg("upserted search document")
	return nil
}

func (c *Coordinator) document(p *models.Product) *models.SearchDocument {
	if p.CategoryName == "" {
		c.log.Warn().Uint("product_id", p.ID).Msg("product has no category, indexing as uncategorized")
	}
	return models.NewSearchDocument(p, p.CategoryName)
}

// Flush waits until every queued projection has finished or ctx is done.
func (c *Coordinator) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports the pending projection queue.
func (c *Coordinator) Stats(ctx context.Context) (*models.ProjectionStats, error) {
	return c.store.PendingProjectionStats(ctx)
}

// Close stops the repair job, waits for queued projections and releases the
// worker pool. The store and index are owned by the caller.
func (c *Coordinator) Close() error {
	c.StopRepairScheduler()
	c.inflight.Wait()
	if err := c.pool.ReleaseTimeout(10 * time.Second); err != nil && !errors.Is(err, ants.ErrPoolClosed) {
		return err
	}
	return nil
}
