package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mcofie/itinero-web-sub003/internal/ledger/domain"
	"github.com/mcofie/itinero-web-sub003/pkg/db/pagination"
)

type gormRepository struct{}

// Provide returns the gorm-backed ledger repository.
func Provide() domain.Repository {
	return gormRepository{}
}

func (gormRepository) Insert(ctx context.Context, db *gorm.DB, entry *domain.Entry) (bool, error) {
	// DO NOTHING instead of check-then-insert: the unique index closes
	// the race between concurrent duplicate deliveries.
	result := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ref_type"}, {Name: "ref_id"}},
		DoNothing: true,
	}).Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (gormRepository) SumDeltas(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var balance int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(delta), 0)
		 FROM points_ledger
		 WHERE user_id = ?`,
		userID,
	).Scan(&balance).Error
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (gormRepository) List(ctx context.Context, db *gorm.DB, userID, reason string, cursor *pagination.Cursor, limit int) ([]domain.Entry, error) {
	query := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if reason != "" {
		query = query.Where("reason = ?", reason)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var entries []domain.Entry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (gormRepository) ExistsReference(ctx context.Context, db *gorm.DB, userID, refType, refID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1)
		 FROM points_ledger
		 WHERE user_id = ? AND ref_type = ? AND ref_id = ?`,
		userID,
		refType,
		refID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
