package surrealcatalog

// Command is one CLI operation together with its options.
// Parse returns one and Main dispatches it to the matching App method.
type Command interface {
	Name() string
}

// ServeCommand starts the HTTP API.
type ServeCommand struct {
	// AutoMigrate runs the store migration before accepting traffic.
	AutoMigrate bool
}

func (c *ServeCommand) Name() string {
	return "serve"
}

// MigrateCommand creates the store schema and the search index.
type MigrateCommand struct {
	// Seed inserts the sample catalog into an empty store.
	Seed bool
}

func (c *MigrateCommand) Name() string {
	return "migrate"
}

// ReindexCommand rebuilds every search document from the store.
type ReindexCommand struct{}

func (c *ReindexCommand) Name() string {
	return "reindex"
}

// SyncCommand replays the pending projection queue once.
type SyncCommand struct {
	Limit int
}

func (c *SyncCommand) Name() string {
	return "sync"
}
