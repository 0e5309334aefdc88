package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// TripService manages trip visibility. Sharing state is the only trip
// concern owned here; itinerary content belongs to the presentation
// backend.
type TripService interface {
	Create(ctx context.Context, userID, title string) (*Trip, error)
	Get(ctx context.Context, id snowflake.ID, ownerID string) (*Trip, error)
	// SetPublic publishes or unpublishes a trip. Publishing an already
	// public trip keeps its existing token; unpublishing a private trip
	// is a no-op. Returns the trip's public id, nil when private.
	SetPublic(ctx context.Context, id snowflake.ID, ownerID string, public bool) (*string, error)
	// GetByPublicID is the unauthenticated share-page read.
	GetByPublicID(ctx context.Context, publicID string) (*Trip, error)
}

// Service is the package alias for TripService.
type Service = TripService

var (
	ErrInvalidUser = errors.New("invalid_user")
	ErrNotFound    = errors.New("trip_not_found")
	ErrForbidden   = errors.New("forbidden")
)
