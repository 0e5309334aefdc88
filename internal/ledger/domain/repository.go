package domain

import (
	"context"

	"gorm.io/gorm"

	"github.com/mcofie/itinero-web-sub003/pkg/db/pagination"
)

type Repository interface {
	// Insert appends the entry, relying on the store's unique index on
	// (ref_type, ref_id). Returns false when the reference already
	// exists; the row is left untouched in that case.
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) (bool, error)
	SumDeltas(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	List(ctx context.Context, db *gorm.DB, userID, reason string, cursor *pagination.Cursor, limit int) ([]Entry, error)
	ExistsReference(ctx context.Context, db *gorm.DB, userID, refType, refID string) (bool, error)
}
