// Package cqrs keeps the search index an eventually consistent projection of
// the relational catalog store.
//
// The store is the write model and the only source of truth. The search
// index is a read model derived from it. [Coordinator] performs every catalog
// mutation against the store first and then projects the product into the
// index as a full document replace.
//
// # Write Path
//
// A mutation succeeds as soon as the store write commits. Projection is
// best-effort: an index failure is logged, recorded in the pending
// projection queue and never returned to the caller. With [ProjectionAsync]
// the projection runs on a worker pool and the caller does not wait for it;
// with [ProjectionSync] it runs inline before the mutation returns.
//
// # Per-Product Ordering
//
// Projections of the same product are serialized by a striped lock keyed by
// product id. A projection re-reads the product from the store while holding
// the lock, so whichever projection runs last publishes the latest committed
// state and a slow projection can never overwrite a newer document with an
// older one. Different products project concurrently.
//
// # Recovery
//
// Two mechanisms repair a stale index:
//
//  1. [Coordinator.RetryPending] replays the pending projection queue. While
//     serving, a cron job runs it on the configured schedule.
//  2. [Coordinator.BootstrapReindex] rebuilds every document from the store
//     by paging through product ids. It holds no lock across the scan, stops
//     between pages when its context is cancelled and can be re-run at any
//     time because every write is a replace.
//
// [Coordinator.EnsureIndexed] is the startup hook: it creates the index and
// runs a bootstrap reindex when the index is empty but the store is not.
package cqrs
