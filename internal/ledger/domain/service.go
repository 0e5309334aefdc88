package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// LedgerService is the only writer of points_ledger rows. Balances are
// derived sums, never stored counters.
type LedgerService interface {
	// Append inserts one entry. ErrDuplicateReference means the
	// (ref type, ref id) pair was already credited; callers that need
	// idempotency treat it as success.
	Append(ctx context.Context, entry NewEntry) (snowflake.ID, error)
	// AppendTx is Append inside a caller-owned transaction, for writes
	// that must commit atomically with other state (quote settlement).
	AppendTx(ctx context.Context, tx *gorm.DB, entry NewEntry) (snowflake.ID, error)
	BalanceOf(ctx context.Context, userID string) (int64, error)
	Entries(ctx context.Context, req ListRequest) (*EntryPage, error)
	// HasReference reports whether a ledger entry exists for the pair,
	// scoped to the owning user. Read path for payment reconciliation.
	HasReference(ctx context.Context, userID, refType, refID string) (bool, error)
}

// Service is the package alias for LedgerService.
type Service = LedgerService

// ListRequest selects a user's entries newest-first.
type ListRequest struct {
	UserID    string
	Reason    string
	PageToken string
	PageSize  int
}

// EntryPage is one page of entries plus the token for the next.
type EntryPage struct {
	Entries       []Entry
	NextPageToken string
}

var (
	ErrInvalidUser        = errors.New("invalid_user")
	ErrInvalidDelta       = errors.New("invalid_delta")
	ErrInvalidReason      = errors.New("invalid_reason")
	ErrInvalidReference   = errors.New("invalid_reference")
	ErrDuplicateReference = errors.New("duplicate_reference")
)
