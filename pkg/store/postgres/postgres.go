// Package postgres provides the relational [github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store.CatalogStore]
// implemented with GORM.
//
// PostgreSQL is the production dialect. SQLite is supported through the same
// code for local runs and tests; every query is written in the subset of SQL
// both dialects accept.
//
// The schema has three tables:
//   - categories: id, name, description
//   - products: prices as decimal(10,2), a nullable category_id with a foreign
//     key that sets it to NULL when the category is deleted, and a views counter
//     only ever changed by an atomic increment
//   - pending_projections: products whose search document still has to be
//     rewritten after a failed index write
//
// The store never calls the search index. Keeping it ignorant of the index
// means store writes succeed whether or not the index is reachable.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresStore implements store.CatalogStore on a GORM connection.
type PostgresStore struct {
	db *gorm.DB
}

var _ store.CatalogStore = (*PostgresStore)(nil)

// Options tunes the connection pool and SQL logging.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// LogLevel is the GORM logger level. Zero means warnings only.
	LogLevel gormlogger.LogLevel
}

// NewPostgresStore connects to PostgreSQL with the given DSN.
func NewPostgresStore(dsn string, opts Options) (*PostgresStore, error) {
	return Open(postgres.Open(dsn), opts)
}

// NewSQLiteStore opens a SQLite database. Foreign keys are switched on so
// that deleting a category behaves as it does on PostgreSQL. In-memory
// databases are limited to one connection, since each connection would
// otherwise see its own empty database.
func NewSQLiteStore(dsn string, opts Options) (*PostgresStore, error) {
	if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		opts.MaxOpenConns = 1
	}
	return Open(sqlite.Open(dsn), opts)
}

// Open creates a store from any GORM dialector.
func Open(dialector gorm.Dialector, opts Options) (*PostgresStore, error) {
	level := opts.LogLevel
	if level == 0 {
		level = gormlogger.Warn
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) getDB() *gorm.DB {
	return s.db
}

// Migrate creates the categories, products and pending_projections tables,
// their indexes and the products.category_id foreign key. It only adds
// missing schema elements and is safe to run on every startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.getDB().WithContext(ctx).AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.PendingProjection{},
	)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
