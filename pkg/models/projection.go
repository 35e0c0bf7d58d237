package models

import "time"

// ProjectionReason records which mutation left a product's search document stale.
type ProjectionReason string

const (
	ProjectionCreate ProjectionReason = "create"
	ProjectionView   ProjectionReason = "view"
	ProjectionUpdate ProjectionReason = "update"
	ProjectionRepair ProjectionReason = "repair"
	// ProjectionCategory marks a product whose category was renamed or deleted.
	ProjectionCategory ProjectionReason = "category"
	// ProjectionReindex marks a document that a bootstrap reindex failed to write.
	ProjectionReindex ProjectionReason = "reindex"
)

// PendingProjection is a product whose last index write failed after the
// store write succeeded. There is at most one row per product; a later
// failure for the same product bumps RetryCount instead of adding a row.
type PendingProjection struct {
	ID         uint64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID  uint             `gorm:"uniqueIndex;not null" json:"product_id"`
	Reason     ProjectionReason `gorm:"size:20;not null" json:"reason"`
	RetryCount int              `gorm:"not null;default:0" json:"retry_count"`
	LastError  string           `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `gorm:"index" json:"updated_at"`
}

// ProjectionStats summarizes the pending projection queue.
type ProjectionStats struct {
	Pending       int64      `json:"pending"`
	MaxRetryCount int        `json:"max_retry_count"`
	OldestPending *time.Time `json:"oldest_pending,omitempty"`
}
