package surrealcatalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Main is the entry point of the surrealcatalog command. It parses args,
// opens the application and runs the selected command until it completes or
// ctx is cancelled. Tests call it directly instead of building the binary.
func Main(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout)
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cmd, config, err := Parse(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	app, err := New(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	switch c := cmd.(type) {
	case *ServeCommand:
		if err := app.Run(ctx, c); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case *MigrateCommand:
		if err := app.Migrate(ctx, c); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case *ReindexCommand:
		report, err := app.Reindex(ctx)
		if report != nil {
			printJSON(out, report)
		}
		if err != nil {
			return fmt.Errorf("reindex failed: %w", err)
		}
	case *SyncCommand:
		report, err := app.Sync(ctx, c.Limit)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		status, err := app.Status(ctx)
		if err != nil {
			return fmt.Errorf("sync status failed: %w", err)
		}
		printJSON(out, map[string]any{"repair": report, "status": status})
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}
	return nil
}

func printJSON(out io.Writer, v any) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
