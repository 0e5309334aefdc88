package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mcofie/itinero-web-sub003/internal/clock"
	"github.com/mcofie/itinero-web-sub003/internal/config"
	"github.com/mcofie/itinero-web-sub003/internal/quote/domain"
)

// supportedCurrencies lists the codes the gateway can charge in.
var supportedCurrencies = map[string]struct{}{
	"GHS": {},
	"USD": {},
	"EUR": {},
	"GBP": {},
	"NGN": {},
	"ZAR": {},
	"KES": {},
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Cfg   config.Config
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	cfg   config.PointsConfig
}

func NewService(p Params) (domain.Service, error) {
	currency := strings.ToUpper(strings.TrimSpace(p.Cfg.Points.Currency))
	if _, ok := supportedCurrencies[currency]; !ok {
		return nil, domain.ErrInvalidCurrency
	}
	if p.Cfg.Points.UnitPriceMinor <= 0 {
		return nil, domain.ErrInvalidPoints
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("quote.service"),
		genID: p.GenID,
		clock: p.Clock,
		cfg:   p.Cfg.Points,
	}, nil
}

func (s *Service) Create(ctx context.Context, userID string, points int64) (*domain.Quote, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	if points <= 0 {
		return nil, domain.ErrInvalidPoints
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.cfg.QuoteTTL)
	quote := domain.Quote{
		ID:             s.genID.Generate(),
		UserID:         userID,
		Points:         points,
		AmountMinor:    points * s.cfg.UnitPriceMinor,
		UnitPriceMinor: s.cfg.UnitPriceMinor,
		Currency:       s.cfg.Currency,
		Status:         domain.QuoteStatusPending,
		ExpiresAt:      &expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.db.WithContext(ctx).Create(&quote).Error; err != nil {
		return nil, err
	}
	s.log.Info("quote created",
		zap.String("quote_id", quote.ID.String()),
		zap.Int64("points", quote.Points),
		zap.Int64("amount_minor", quote.AmountMinor),
		zap.String("currency", quote.Currency),
	)
	return &quote, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID, ownerID string) (*domain.Quote, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, domain.ErrInvalidUser
	}

	quote, err := s.Load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if quote.UserID != ownerID {
		return nil, domain.ErrForbidden
	}
	return quote, nil
}

func (s *Service) Load(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Quote, error) {
	if tx == nil {
		tx = s.db
	}
	var quote domain.Quote
	err := tx.WithContext(ctx).First(&quote, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (s *Service) MarkPaidTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	if tx == nil {
		tx = s.db
	}
	// Guarded UPDATE so only one caller ever wins the transition.
	result := tx.WithContext(ctx).Exec(
		`UPDATE points_quotes
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.QuoteStatusPaid,
		s.clock.Now(),
		id,
		domain.QuoteStatusPending,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM points_quotes WHERE id = ?`, id,
		).Scan(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrAlreadyPaid
	}
	return nil
}
