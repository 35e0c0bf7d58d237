// Package surrealcatalog is the product catalog application: a relational
// store that owns every write, a SurrealDB search index kept in step with it,
// and an HTTP API over both.
//
// # Write path
//
// Creating a product, counting a view or changing a price commits to the
// store first and then projects the product into the search index. The
// projection runs on a worker pool by default, so the response only
// guarantees that the row exists; the product becomes searchable shortly
// after. A failed projection never fails the request. It is recorded in the
// pending_projections table and retried by a cron job, and a reindex always
// rebuilds the index from the store.
//
// # Read path
//
// Searches go to the index unless the caller asks for the relational
// backend. Every filter that is present must hold. When the index is down,
// searches are answered by the store and flagged as degraded.
//
// # Commands
//
//	surrealcatalog migrate -seed     # schema, index and sample data
//	surrealcatalog serve             # HTTP API on :8080
//	surrealcatalog reindex           # rebuild every search document
//	surrealcatalog sync              # retry pending projections once
//
// # Environment Variables
//
//	CATALOG_DB_DRIVER        postgres (default) or sqlite
//	CATALOG_DB_DSN           store DSN
//	CATALOG_INDEX            surrealdb (default) or memory
//	CATALOG_INDEX_TIMEOUT    timeout of each index call (default 5s)
//	CATALOG_PROJECTION_MODE  async (default) or sync
//	CATALOG_REINDEX_BATCH    products per reindex page (default 500)
//	CATALOG_WORKERS          projection workers (default 16)
//	CATALOG_REPAIR_SCHEDULE  cron spec of the repair job (default @every 30s)
//	CATALOG_LOG_LEVEL        debug, info, warn or error
//	CATALOG_LOG_FILE         rotating log file, in addition to stdout
//	SURREALDB_URL            SurrealDB WebSocket URL (default ws://localhost:8000/rpc)
//	SURREALDB_NS             SurrealDB namespace (default catalog)
//	SURREALDB_DB             SurrealDB database (default catalog)
//	SURREALDB_USER           SurrealDB username (default root)
//	SURREALDB_PASS           SurrealDB password (default root)
//	PORT                     HTTP port (default 8080)
package surrealcatalog
