package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mcofie/itinero-web-sub003/internal/clock"
	"github.com/mcofie/itinero-web-sub003/internal/events"
	"github.com/mcofie/itinero-web-sub003/internal/publicid"
	"github.com/mcofie/itinero-web-sub003/internal/trip/domain"
)

// maxPublishAttempts bounds retries when a concurrent publisher wins
// the unique index on public_id with the same candidate token.
const maxPublishAttempts = 5

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Outbox *events.Outbox
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	outbox *events.Outbox
}

func NewService(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("trip.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		outbox: p.Outbox,
	}
}

func (s *Service) Create(ctx context.Context, userID, title string) (*domain.Trip, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}

	now := s.clock.Now()
	trip := domain.Trip{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&trip).Error; err != nil {
		return nil, err
	}
	return &trip, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID, ownerID string) (*domain.Trip, error) {
	trip, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if trip.UserID != strings.TrimSpace(ownerID) {
		return nil, domain.ErrForbidden
	}
	return trip, nil
}

func (s *Service) SetPublic(ctx context.Context, id snowflake.ID, ownerID string, public bool) (*string, error) {
	trip, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if !public {
		// Clearing an already-private trip stays a no-op.
		if trip.PublicID == nil {
			return nil, nil
		}
		token := *trip.PublicID
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			err := tx.Exec(
				`UPDATE trips SET public_id = NULL, updated_at = ? WHERE id = ?`,
				s.clock.Now(), id,
			).Error
			if err != nil {
				return err
			}
			return s.outbox.PublishTx(ctx, tx, events.Event{
				UserID:    trip.UserID,
				Type:      events.EventTripUnpublished,
				Payload:   map[string]any{"trip_id": id.String(), "public_id": token},
				DedupeKey: fmt.Sprintf("%s:%s:%s", events.EventTripUnpublished, id.String(), token),
			})
		})
		if err != nil {
			return nil, err
		}
		return nil, nil
	}

	// Re-publishing keeps the token previously issued for this trip.
	if trip.PublicID != nil {
		return trip.PublicID, nil
	}

	for attempt := 0; attempt < maxPublishAttempts; attempt++ {
		candidate, err := publicid.Allocate(ctx, publicid.DefaultLength, s.publicIDExists)
		if err != nil {
			return nil, err
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			err := tx.Exec(
				`UPDATE trips SET public_id = ?, updated_at = ? WHERE id = ?`,
				candidate, s.clock.Now(), id,
			).Error
			if err != nil {
				return err
			}
			return s.outbox.PublishTx(ctx, tx, events.Event{
				UserID:    trip.UserID,
				Type:      events.EventTripPublished,
				Payload:   map[string]any{"trip_id": id.String(), "public_id": candidate},
				DedupeKey: fmt.Sprintf("%s:%s:%s", events.EventTripPublished, id.String(), candidate),
			})
		})
		if err == nil {
			return &candidate, nil
		}
		// Another publisher claimed the same token between the exists
		// check and the write; pick a fresh candidate.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.log.Debug("public id collision on write, retrying",
				zap.String("trip_id", id.String()),
			)
			continue
		}
		return nil, err
	}
	return nil, publicid.ErrAllocationExhausted
}

func (s *Service) GetByPublicID(ctx context.Context, publicID string) (*domain.Trip, error) {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil, domain.ErrNotFound
	}
	var trip domain.Trip
	err := s.db.WithContext(ctx).First(&trip, "public_id = ?", publicID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*domain.Trip, error) {
	var trip domain.Trip
	err := s.db.WithContext(ctx).First(&trip, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

func (s *Service) publicIDExists(ctx context.Context, candidate string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM trips WHERE public_id = ?`,
		candidate,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
