package surrealcatalog

import (
	"errors"
	"flag"
	"fmt"
	"io"
)

const usage = `subcommand required

Usage: surrealcatalog [flags] <command> [command flags]

Commands:
  serve     Start the catalog HTTP API
  migrate   Create the store schema and the search index
  reindex   Rebuild every search document from the store
  sync      Retry pending search index projections once

Examples:
  surrealcatalog migrate -seed
  surrealcatalog -config catalog.yaml serve -port 8090 -auto-migrate
  surrealcatalog -index memory -db-driver sqlite -db-dsn file:catalog.db serve
  surrealcatalog serve -read-only
  surrealcatalog reindex
  surrealcatalog sync -limit 500`

// Parse parses command line arguments and returns the command to execute
// and the configuration shared by all commands.
func Parse(args []string) (Command, *Config, error) {
	flagSet := flag.NewFlagSet("surrealcatalog", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var (
		configFile     = flagSet.String("config", "", "Path to a YAML config file")
		dbDriver       = flagSet.String("db-driver", "", "Store driver: postgres or sqlite")
		dbDSN          = flagSet.String("db-dsn", "", "Store DSN")
		indexBackend   = flagSet.String("index", "", "Search index backend: surrealdb or memory")
		projectionMode = flagSet.String("projection-mode", "", "Projection mode: async or sync")
		logLevel       = flagSet.String("log-level", "", "Log level: debug, info, warn, error")
		logConsole     = flagSet.Bool("log-console", false, "Human readable log output")
	)
	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}

	config := DefaultConfig()
	if *configFile != "" {
		if err := LoadConfigFile(*configFile, config); err != nil {
			return nil, nil, err
		}
	}
	if err := applyEnv(config); err != nil {
		return nil, nil, err
	}
	setIfNotEmpty(&config.Database.Driver, *dbDriver)
	setIfNotEmpty(&config.Database.DSN, *dbDSN)
	setIfNotEmpty(&config.Index.Backend, *indexBackend)
	setIfNotEmpty(&config.Sync.ProjectionMode, *projectionMode)
	setIfNotEmpty(&config.Log.Level, *logLevel)
	if *logConsole {
		config.Log.Console = true
	}

	remainingArgs := flagSet.Args()
	if len(remainingArgs) == 0 {
		return nil, nil, errors.New(usage)
	}

	cmd, err := parseCommand(remainingArgs[0], remainingArgs[1:], config)
	if err != nil {
		return nil, nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cmd, config, nil
}

func parseCommand(name string, args []string, config *Config) (Command, error) {
	cmdFlags := flag.NewFlagSet(name, flag.ContinueOnError)
	cmdFlags.SetOutput(io.Discard)

	switch name {
	case "serve":
		port := cmdFlags.String("port", config.ServerPort, "Server port")
		readOnly := cmdFlags.Bool("read-only", config.ReadOnly, "Reject every write")
		autoMigrate := cmdFlags.Bool("auto-migrate", false, "Migrate the store and index before serving")
		if err := cmdFlags.Parse(args); err != nil {
			return nil, err
		}
		config.ServerPort = *port
		config.ReadOnly = *readOnly
		return &ServeCommand{AutoMigrate: *autoMigrate}, nil
	case "migrate":
		seed := cmdFlags.Bool("seed", false, "Insert the sample catalog into an empty store")
		if err := cmdFlags.Parse(args); err != nil {
			return nil, err
		}
		return &MigrateCommand{Seed: *seed}, nil
	case "reindex":
		if err := cmdFlags.Parse(args); err != nil {
			return nil, err
		}
		return &ReindexCommand{}, nil
	case "sync":
		limit := cmdFlags.Int("limit", config.Sync.RepairBatchSize, "Maximum number of pending projections to retry")
		if err := cmdFlags.Parse(args); err != nil {
			return nil, err
		}
		return &SyncCommand{Limit: *limit}, nil
	}
	return nil, fmt.Errorf("unknown command: %s\n\nValid commands: serve, migrate, reindex, sync", name)
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
