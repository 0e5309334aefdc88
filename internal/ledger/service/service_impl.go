package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mcofie/itinero-web-sub003/internal/clock"
	"github.com/mcofie/itinero-web-sub003/internal/ledger/domain"
	"github.com/mcofie/itinero-web-sub003/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Append(ctx context.Context, entry domain.NewEntry) (snowflake.ID, error) {
	return s.AppendTx(ctx, s.db, entry)
}

func (s *Service) AppendTx(ctx context.Context, tx *gorm.DB, entry domain.NewEntry) (snowflake.ID, error) {
	if err := validate(&entry); err != nil {
		return 0, err
	}

	meta := datatypes.JSONMap{}
	for key, value := range entry.Meta {
		if strings.TrimSpace(key) == "" {
			continue
		}
		meta[key] = value
	}

	row := domain.Entry{
		ID:        s.genID.Generate(),
		UserID:    entry.UserID,
		Delta:     entry.Delta,
		Reason:    entry.Reason,
		RefType:   entry.RefType,
		RefID:     entry.RefID,
		Meta:      meta,
		CreatedAt: s.clock.Now(),
	}

	inserted, err := s.repo.Insert(ctx, tx, &row)
	if err != nil {
		return 0, err
	}
	if !inserted {
		return 0, domain.ErrDuplicateReference
	}
	return row.ID, nil
}

func (s *Service) BalanceOf(ctx context.Context, userID string) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, domain.ErrInvalidUser
	}
	return s.repo.SumDeltas(ctx, s.db, userID)
}

func (s *Service) Entries(ctx context.Context, req domain.ListRequest) (*domain.EntryPage, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return nil, err
	}
	limit := pagination.Pagination{PageSize: req.PageSize}.Limit()

	entries, err := s.repo.List(ctx, s.db, userID, strings.TrimSpace(req.Reason), cursor, limit+1)
	if err != nil {
		return nil, err
	}

	page := &domain.EntryPage{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		last := page.Entries[limit-1]
		page.NextPageToken = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        int64(last.ID),
		})
	}
	return page, nil
}

func (s *Service) HasReference(ctx context.Context, userID, refType, refID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, domain.ErrInvalidUser
	}
	refType = strings.TrimSpace(refType)
	refID = strings.TrimSpace(refID)
	if refType == "" || refID == "" {
		return false, domain.ErrInvalidReference
	}
	return s.repo.ExistsReference(ctx, s.db, userID, refType, refID)
}

func validate(entry *domain.NewEntry) error {
	entry.UserID = strings.TrimSpace(entry.UserID)
	if entry.UserID == "" {
		return domain.ErrInvalidUser
	}
	if entry.Delta == 0 {
		return domain.ErrInvalidDelta
	}
	entry.Reason = strings.TrimSpace(entry.Reason)
	if entry.Reason == "" {
		return domain.ErrInvalidReason
	}
	entry.RefType = strings.TrimSpace(entry.RefType)
	entry.RefID = strings.TrimSpace(entry.RefID)
	if entry.RefType == "" || entry.RefID == "" {
		return domain.ErrInvalidReference
	}
	return nil
}
