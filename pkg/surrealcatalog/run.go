package surrealcatalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// server context is cancelled.
const shutdownTimeout = 30 * time.Second

// Run serves the HTTP API until ctx is cancelled.
//
// Before accepting traffic it makes sure the search index exists, building
// it from the store when it is empty, and starts the pending projection
// repair job. An index that cannot be created stops startup with a
// *models.FatalConfigError.
func (a *App) Run(ctx context.Context, cmd *ServeCommand) error {
	if cmd.AutoMigrate {
		if err := a.Migrate(ctx, &MigrateCommand{}); err != nil {
			return err
		}
	} else if _, err := a.sync.EnsureIndexed(ctx); err != nil {
		return err
	}

	if err := a.sync.StartRepairScheduler(); err != nil {
		return err
	}
	defer a.sync.StopRepairScheduler()

	addr := fmt.Sprintf(":%s", a.config.ServerPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.log.Info().
		Str("addr", addr).
		Str("projection_mode", string(a.sync.Config().Mode)).
		Str("index", a.config.Index.Backend).
		Bool("read_only", a.IsReadOnly()).
		Msg("starting catalog server")

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return a.sync.Flush(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}
