package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordPendingProjection remembers that productID's search document is stale.
// A second failure for the same product updates the existing row and bumps
// retry_count.
func (s *PostgresStore) RecordPendingProjection(ctx context.Context, productID uint, reason models.ProjectionReason, cause error) error {
	return recordPending(s.getDB().WithContext(ctx), productID, reason, cause)
}

func recordPending(db *gorm.DB, productID uint, reason models.ProjectionReason, cause error) error {
	now := time.Now()
	var lastError string
	if cause != nil {
		lastError = cause.Error()
	}

	pending := &models.PendingProjection{
		ProductID: productID,
		Reason:    reason,
		LastError: lastError,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return db.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"reason":      reason,
				"last_error":  lastError,
				"retry_count": gorm.Expr("pending_projections.retry_count + 1"),
				"updated_at":  now,
			}),
		}).
		Create(pending).Error
}

// ListPendingProjections returns the least recently attempted rows first.
func (s *PostgresStore) ListPendingProjections(ctx context.Context, limit int) ([]*models.PendingProjection, error) {
	var pending []*models.PendingProjection
	query := s.getDB().WithContext(ctx).Order("updated_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&pending).Error
	return pending, err
}

func (s *PostgresStore) ResolvePendingProjection(ctx context.Context, productID uint) error {
	return s.getDB().WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&models.PendingProjection{}).Error
}

func (s *PostgresStore) PendingProjectionStats(ctx context.Context) (*models.ProjectionStats, error) {
	stats := &models.ProjectionStats{}
	db := s.getDB().WithContext(ctx)

	if err := db.Model(&models.PendingProjection{}).Count(&stats.Pending).Error; err != nil {
		return nil, err
	}
	if stats.Pending == 0 {
		return stats, nil
	}

	if err := db.Model(&models.PendingProjection{}).
		Select("COALESCE(MAX(retry_count), 0)").
		Scan(&stats.MaxRetryCount).Error; err != nil {
		return nil, err
	}

	var oldest models.PendingProjection
	err := db.Order("created_at ASC").Take(&oldest).Error
	switch {
	case err == nil:
		stats.OldestPending = &oldest.CreatedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	return stats, nil
}
