package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// QuoteStatus is the two-state quote lifecycle.
type QuoteStatus string

const (
	QuoteStatusPending QuoteStatus = "pending"
	QuoteStatusPaid    QuoteStatus = "paid"
)

// Quote reserves a points purchase at a locked-in price. Points and
// amount are fixed at creation and never recomputed, even if the unit
// price changes while the quote is outstanding.
type Quote struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID         string       `gorm:"type:text;not null;index" json:"user_id"`
	Points         int64        `gorm:"not null" json:"points"`
	AmountMinor    int64        `gorm:"not null" json:"amount_minor"`
	UnitPriceMinor int64        `gorm:"not null" json:"unit_price_minor"`
	Currency       string       `gorm:"type:text;not null" json:"currency"`
	Status         QuoteStatus  `gorm:"type:text;not null;default:'pending'" json:"status"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Quote) TableName() string { return "points_quotes" }

// Expired reports whether the quote can no longer be initiated.
func (q Quote) Expired(now time.Time) bool {
	return q.ExpiresAt != nil && now.After(*q.ExpiresAt)
}
