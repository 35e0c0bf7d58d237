package cqrs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
)

// RepairReport summarizes one pass over the pending projection queue.
type RepairReport struct {
	Attempted int `json:"attempted"`
	Resolved  int `json:"resolved"`
	Failed    int `json:"failed"`
}

// RetryPending replays up to limit queued projections. Rows are resolved
// when the projection succeeds or the product no longer exists; otherwise
// their retry count is bumped.
func (c *Coordinator) RetryPending(ctx context.Context, limit int) (*RepairReport, error) {
	if limit <= 0 {
		limit = c.cfg.RepairBatchSize
	}
	pending, err := c.store.ListPendingProjections(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending projections: %w", err)
	}

	report := &RepairReport{}
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Attempted++

		err := c.project(ctx, p.ProductID)
		if err == nil || models.IsNotFound(err) {
			if rerr := c.store.ResolvePendingProjection(ctx, p.ProductID); rerr != nil {
				return report, fmt.Errorf("failed to resolve pending projection %d: %w", p.ProductID, rerr)
			}
			report.Resolved++
			continue
		}

		report.Failed++
		c.log.Warn().Err(err).
			Uint("product_id", p.ProductID).
			Int("retry_count", p.RetryCount+1).
			Msg("pending projection still failing")
		if rerr := c.store.RecordPendingProjection(ctx, p.ProductID, p.Reason, err); rerr != nil {
			return report, fmt.Errorf("failed to update pending projection %d: %w", p.ProductID, rerr)
		}
	}

	if report.Attempted > 0 {
		c.log.Info().
			Int("attempted", report.Attempted).
			Int("resolved", report.Resolved).
			Int("failed", report.Failed).
			Msg("pending projection repair pass")
	}
	return report, nil
}

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// StartRepairScheduler runs RetryPending on the configured cron schedule
// until StopRepairScheduler or Close. Overlapping runs are skipped.
func (c *Coordinator) StartRepairScheduler() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sched != nil {
		return nil
	}

	sched := cron.New(
		cron.WithParser(cronParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	_, err := sched.AddFunc(c.cfg.RepairSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.IndexTimeout*time.Duration(c.cfg.RepairBatchSize))
		defer cancel()
		if _, err := c.RetryPending(ctx, c.cfg.RepairBatchSize); err != nil {
			c.log.Error().Err(err).Msg("pending projection repair failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid repair schedule %q: %w", c.cfg.RepairSchedule, err)
	}
	sched.Start()
	c.sched = sched
	c.log.Info().Str("schedule", c.cfg.RepairSchedule).Msg("pending projection repair scheduled")
	return nil
}

// StopRepairScheduler stops the repair job and waits for a running pass.
func (c *Coordinator) StopRepairScheduler() {
	c.mu.Lock()
	sched := c.sched
	c.sched = nil
	c.mu.Unlock()
	if sched == nil {
		return
	}
	<-sched.Stop().Done()
}
