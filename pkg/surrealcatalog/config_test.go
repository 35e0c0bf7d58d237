package surrealcatalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store/cqrs"
)

var envKeys = []string{
	"CATALOG_DB_DRIVER", "CATALOG_DB_DSN", "CATALOG_INDEX", "CATALOG_INDEX_TIMEOUT",
	"CATALOG_PROJECTION_MODE", "CATALOG_REINDEX_BATCH", "CATALOG_WORKERS",
	"CATALOG_REPAIR_SCHEDULE", "CATALOG_LOG_LEVEL", "CATALOG_LOG_FILE",
	"SURREALDB_URL", "SURREALDB_NS", "SURREALDB_DB", "SURREALDB_USER", "SURREALDB_PASS",
	"PORT",
}

// clearEnv hides the caller's environment; getEnv treats empty as unset.
func clearEnv(t *testing.T) {
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestParseDefaults(t *testing.T) {
	clearEnv(t)

	cmd, cfg, err := Parse([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, &ServeCommand{}, cmd)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, IndexSurrealDB, cfg.Index.Backend)
	assert.Equal(t, "ws://localhost:8000/rpc", cfg.Index.URL)
	assert.True(t, cfg.Index.FallbackToRelational)
	assert.Equal(t, string(cqrs.ProjectionAsync), cfg.Sync.ProjectionMode)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.False(t, cfg.ReadOnly)
}

func TestParseCommands(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		args []string
		want Command
	}{
		{[]string{"serve", "-port", "9090", "-read-only", "-auto-migrate"}, &ServeCommand{AutoMigrate: true}},
		{[]string{"migrate"}, &MigrateCommand{}},
		{[]string{"migrate", "-seed"}, &MigrateCommand{Seed: true}},
		{[]string{"reindex"}, &ReindexCommand{}},
		{[]string{"sync"}, &SyncCommand{Limit: cqrs.DefaultRepairBatchSize}},
		{[]string{"sync", "-limit", "5"}, &SyncCommand{Limit: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.want.Name(), func(t *testing.T) {
			cmd, _, err := Parse(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd)
		})
	}

	_, cfg, err := Parse([]string{"serve", "-port", "9090", "-read-only"})
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.True(t, cfg.ReadOnly)
}

func TestParseErrors(t *testing.T) {
	clearEnv(t)

	_, _, err := Parse(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subcommand required")

	_, _, err = Parse([]string{"launch"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command: launch")

	_, _, err = Parse([]string{"-db-driver", "mysql", "serve"})
	assert.ErrorContains(t, err, "unknown database driver")

	_, _, err = Parse([]string{"-index", "elastic", "serve"})
	assert.ErrorContains(t, err, "unknown index backend")

	_, _, err = Parse([]string{"-projection-mode", "lazy", "serve"})
	assert.ErrorContains(t, err, "unknown projection mode")

	_, _, err = Parse([]string{"serve", "-bogus"})
	assert.Error(t, err)
}

func TestConfigLayering(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: sqlite
  dsn: file:from-file.db
index:
  backend: memory
  timeout: 2s
  fallback_to_relational: false
sync:
  projection_mode: sync
  workers: 4
log:
  level: debug
port: "7000"
`), 0o600))

	_, cfg, err := Parse([]string{"-config", path, "serve"})
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "file:from-file.db", cfg.Database.DSN)
	assert.Equal(t, IndexMemory, cfg.Index.Backend)
	assert.Equal(t, 2*time.Second, cfg.Index.Timeout)
	assert.False(t, cfg.Index.FallbackToRelational)
	assert.Equal(t, "sync", cfg.Sync.ProjectionMode)
	assert.Equal(t, 4, cfg.Sync.Workers)
	assert.Equal(t, cqrs.DefaultReindexBatchSize, cfg.Sync.ReindexBatchSize, "keys missing from the file keep their default")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "7000", cfg.ServerPort)

	// environment beats the file
	t.Setenv("CATALOG_DB_DSN", "file:from-env.db")
	t.Setenv("CATALOG_WORKERS", "12")
	t.Setenv("CATALOG_INDEX_TIMEOUT", "750ms")
	t.Setenv("PORT", "7100")
	_, cfg, err = Parse([]string{"-config", path, "serve"})
	require.NoError(t, err)
	assert.Equal(t, "file:from-env.db", cfg.Database.DSN)
	assert.Equal(t, 12, cfg.Sync.Workers)
	assert.Equal(t, 750*time.Millisecond, cfg.Index.Timeout)
	assert.Equal(t, "7100", cfg.ServerPort)

	// flags beat the environment
	_, cfg, err = Parse([]string{"-config", path, "-db-dsn", "file:from-flag.db", "serve", "-port", "7200"})
	require.NoError(t, err)
	assert.Equal(t, "file:from-flag.db", cfg.Database.DSN)
	assert.Equal(t, "7200", cfg.ServerPort)
}

func TestConfigInvalidEnv(t *testing.T) {
	clearEnv(t)

	t.Setenv("CATALOG_WORKERS", "many")
	_, _, err := Parse([]string{"serve"})
	assert.ErrorContains(t, err, "CATALOG_WORKERS")

	t.Setenv("CATALOG_WORKERS", "")
	t.Setenv("CATALOG_INDEX_TIMEOUT", "soon")
	_, _, err = Parse([]string{"serve"})
	assert.ErrorContains(t, err, "CATALOG_INDEX_TIMEOUT")
}

func TestLoadConfigFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"), cfg))

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: [unterminated"), 0o600))
	assert.Error(t, LoadConfigFile(path, cfg))
}
