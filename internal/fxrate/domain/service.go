package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// RateProvider fetches a current rate table from an external source.
type RateProvider interface {
	Name() string
	Fetch(ctx context.Context, base string) (*RateTable, error)
}

// FXService stores daily snapshots and answers point-in-time
// conversions. Snapshots are immutable once stored.
type FXService interface {
	// RefreshIfMissing stores a snapshot for the calendar day of asOf
	// unless one already exists. Reports whether a fetch happened; an
	// existing row or a concurrent duplicate insert is a no-op.
	RefreshIfMissing(ctx context.Context, base string, asOf time.Time) (bool, error)
	// Latest returns the greatest as-of snapshot for the base currency.
	Latest(ctx context.Context, base string) (*Snapshot, error)
	// Convert cross-rates amount from one currency to another through
	// the snapshot's base.
	Convert(snapshot *Snapshot, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Service is the package alias for FXService.
type Service = FXService

var (
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrUnknownCurrency     = errors.New("unknown_currency")
	ErrSnapshotNotFound    = errors.New("snapshot_not_found")
	ErrProviderUnavailable = errors.New("provider_unavailable")
)
