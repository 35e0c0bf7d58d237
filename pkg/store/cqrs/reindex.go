package cqrs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
)

// ReindexReport summarizes a bootstrap reindex. LastID is the highest product
// id whose page completed; rerunning after a cancellation is always safe.
type ReindexReport struct {
	Indexed  int64         `json:"indexed"`
	Failed   int64         `json:"failed"`
	LastID   uint          `json:"last_id"`
	Duration time.Duration `json:"duration"`
}

// BootstrapReindex rebuilds the document of every product in the store and
// refreshes the index once the scan completes.
//
// The scan pages through product ids in ascending order and never locks more
// than one product at a time. Each page is fanned out over the worker pool.
// Cancelling ctx stops the scan between pages and returns ctx.Err() together
// with the partial report; documents written so far stay valid.
func (c *Coordinator) BootstrapReindex(ctx context.Context) (*ReindexReport, error) {
	start := time.Now()
	report := &ReindexReport{}
	log := c.log.With().Str("op", "reindex").Logger()
	log.Info().Int("batch_size", c.cfg.ReindexBatchSize).Msg("starting bootstrap reindex")

	var after uint
	for {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			log.Warn().Err(err).Uint("last_id", report.LastID).Msg("bootstrap reindex cancelled")
			return report, err
		}

		ids, err := c.store.ListProductIDsAfter(ctx, after, c.cfg.ReindexBatchSize)
		if err != nil {
			report.Duration = time.Since(start)
			return report, fmt.Errorf("failed to list products after %d: %w", after, err)
		}
		if len(ids) == 0 {
			break
		}

		indexed, failed := c.reindexPage(ctx, ids)
		report.Indexed += indexed
		report.Failed += failed
		after = ids[len(ids)-1]
		report.LastID = after
		log.Debug().Uint("last_id", after).Int64("indexed", report.Indexed).Msg("reindexed page")
	}

	rctx, cancel := context.WithTimeout(ctx, c.cfg.IndexTimeout)
	defer cancel()
	if err := c.index.Refresh(rctx); err != nil {
		report.Duration = time.Since(start)
		return report, models.NewTransientBackendError("refresh", err)
	}

	report.Duration = time.Since(start)
	log.Info().
		Int64("indexed", report.Indexed).
		Int64("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("bootstrap reindex complete")
	return report, nil
}

func (c *Coordinator) reindexPage(ctx context.Context, ids []uint) (indexed, failed int64) {
	var (
		wg       sync.WaitGroup
		nIndexed atomic.Int64
		nFailed  atomic.Int64
	)
	for _, id := range ids {
		id := id
		task := func() {
			defer wg.Done()
			err := c.project(ctx, id)
			switch {
			case err == nil:
				nIndexed.Add(1)
			case ctx.Err() != nil:
				nFailed.Add(1)
			default:
				nFailed.Add(1)
				c.handle(ctx, id, models.ProjectionReindex, err)
			}
		}
		wg.Add(1)
		if err := c.pool.Submit(task); err != nil {
			// pool closed or overloaded, do it here
			task()
		}
	}
	wg.Wait()
	return nIndexed.Load(), nFailed.Load()
}

// EnsureIndexed creates the index if needed and bootstraps it from the store
// when it is empty. It returns a nil report when no reindex was necessary.
//
// A failure to create the index is a *models.FatalConfigError.
func (c *Coordinator) EnsureIndexed(ctx context.Context) (*ReindexReport, error) {
	ictx, cancel := context.WithTimeout(ctx, c.cfg.IndexTimeout)
	defer cancel()
	if err := c.index.EnsureIndex(ictx, models.ProductIndexSchema); err != nil {
		return nil, models.NewFatalConfigError("search index", err)
	}

	docs, err := c.index.Count(ictx)
	if err != nil {
		return nil, models.NewTransientBackendError("count", err)
	}
	if docs > 0 {
		c.log.Info().Int64("documents", docs).Msg("search index already populated")
		return nil, nil
	}

	products, err := c.store.CountProducts(ctx)
	if err != nil {
		return nil, err
	}
	if products == 0 {
		return nil, nil
	}
	return c.BootstrapReindex(ctx)
}
