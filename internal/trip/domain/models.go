package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Trip is the shareable resource. PublicID is the only externally
// visible identifier: null means private, non-null values are unique
// across all trips.
type Trip struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    string       `gorm:"type:text;not null;index" json:"user_id"`
	Title     string       `gorm:"type:text;not null;default:''" json:"title"`
	PublicID  *string      `gorm:"type:text;uniqueIndex" json:"public_id,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Trip) TableName() string { return "trips" }
