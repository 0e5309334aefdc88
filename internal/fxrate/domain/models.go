package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// DateLayout is the calendar-day granularity of snapshots.
const DateLayout = "2006-01-02"

// Snapshot is one immutable daily rate table. Rates map currency codes
// to the amount of that currency one unit of the base buys.
type Snapshot struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	Provider     string            `gorm:"type:text;not null" json:"provider"`
	BaseCurrency string            `gorm:"type:text;not null" json:"base_currency"`
	AsOf         string            `gorm:"type:date;not null" json:"as_of"`
	Rates        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"rates"`
	Raw          datatypes.JSON    `gorm:"type:jsonb" json:"-"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Snapshot) TableName() string { return "fx_snapshots" }

// Rate returns the conversion rate for a code. The base currency is
// implicitly 1 even when the provider omits it from the table.
func (s *Snapshot) Rate(code string) (float64, bool) {
	if code == s.BaseCurrency {
		return 1, true
	}
	raw, ok := s.Rates[code]
	if !ok {
		return 0, false
	}
	switch value := raw.(type) {
	case float64:
		return value, true
	case int64:
		return float64(value), true
	case int:
		return float64(value), true
	default:
		return 0, false
	}
}

// RateTable is a provider's raw answer for one base currency.
type RateTable struct {
	Rates map[string]float64
	Raw   []byte
}
