package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	ReasonPaystackTopup   = "paystack_topup"
	ReasonItineraryCharge = "itinerary_charge"
)

const (
	RefTypePaystack = "paystack"
	RefTypeInternal = "internal"
)

// Entry is an immutable balance change for one user. The pair
// (RefType, RefID) is unique and is the only double-credit guard.
type Entry struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID    string            `gorm:"type:text;not null;index" json:"user_id"`
	Delta     int64             `gorm:"not null" json:"delta"`
	Reason    string            `gorm:"type:text;not null" json:"reason"`
	RefType   string            `gorm:"type:text;not null;uniqueIndex:ux_points_ledger_ref,priority:1" json:"ref_type"`
	RefID     string            `gorm:"type:text;not null;uniqueIndex:ux_points_ledger_ref,priority:2" json:"ref_id"`
	Meta      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"meta"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "points_ledger" }

// NewEntry describes an append before an id is assigned.
type NewEntry struct {
	UserID  string
	Delta   int64
	Reason  string
	RefType string
	RefID   string
	Meta    map[string]any
}
