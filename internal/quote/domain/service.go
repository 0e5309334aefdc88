package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// QuoteService creates and settles points purchase quotes.
type QuoteService interface {
	// Create prices the requested number of points at the current unit
	// price and persists a pending quote owned by the user.
	Create(ctx context.Context, userID string, points int64) (*Quote, error)
	// Get loads a quote, enforcing that only the owner may read it.
	Get(ctx context.Context, id snowflake.ID, ownerID string) (*Quote, error)
	// MarkPaidTx transitions pending -> paid inside a caller-owned
	// transaction. ErrAlreadyPaid on a second call; settlement callers
	// treat that as success to stay idempotent.
	MarkPaidTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) error
	// Load fetches a quote without an ownership check. Reserved for the
	// webhook path, which authenticates by signature, not user.
	Load(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Quote, error)
}

// Service is the package alias for QuoteService.
type Service = QuoteService

var (
	ErrInvalidUser     = errors.New("invalid_user")
	ErrInvalidPoints   = errors.New("invalid_points")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrNotFound        = errors.New("quote_not_found")
	ErrForbidden       = errors.New("forbidden")
	ErrAlreadyPaid     = errors.New("quote_already_paid")
	ErrExpired         = errors.New("quote_expired")
)
