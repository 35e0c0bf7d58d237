package surrealcatalog

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store/cqrs"
)

// Migrate brings the store schema and the search index up to date. It is
// idempotent. With cmd.Seed the sample catalog is inserted into an empty
// store and indexed.
//
// A search index that cannot be created fails with *models.FatalConfigError.
func (a *App) Migrate(ctx context.Context, cmd *MigrateCommand) error {
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate store: %w", err)
	}
	a.log.Info().Msg("store schema is up to date")

	seeded := 0
	if cmd.Seed {
		n, err := a.store.SeedSampleData(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed sample data: %w", err)
		}
		seeded = n
		a.log.Info().Int("products", n).Msg("seeded sample catalog")
	}

	report, err := a.sync.EnsureIndexed(ctx)
	if err != nil {
		return err
	}
	if report == nil && seeded > 0 {
		// the index already held documents, so the new rows need an explicit pass
		if _, err := a.sync.BootstrapReindex(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Reindex creates the index if needed and rebuilds every document from the
// store. Cancelling ctx stops it between pages; running it again is safe.
func (a *App) Reindex(ctx context.Context) (*cqrs.ReindexReport, error) {
	report, err := a.sync.EnsureIndexed(ctx)
	if err != nil || report != nil {
		return report, err
	}
	return a.sync.BootstrapReindex(ctx)
}

// Sync retries up to limit pending projections.
func (a *App) Sync(ctx context.Context, limit int) (*cqrs.RepairReport, error) {
	return a.sync.RetryPending(ctx, limit)
}
