package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mcofie/itinero-web-sub003/internal/cache"
	"github.com/mcofie/itinero-web-sub003/internal/clock"
	"github.com/mcofie/itinero-web-sub003/internal/fxrate/domain"
)

// latestCacheTTL bounds staleness of the hot-path Latest lookup. New
// snapshots arrive at most daily, so a short TTL is plenty.
const latestCacheTTL = 5 * time.Minute

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Provider domain.RateProvider
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	provider domain.RateProvider
	latest   cache.Cache[string, *domain.Snapshot]
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("fxrate.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		provider: p.Provider,
		latest:   cache.NewTTLCache[string, *domain.Snapshot](),
	}
}

func (s *Service) RefreshIfMissing(ctx context.Context, base string, asOf time.Time) (bool, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return false, domain.ErrInvalidCurrency
	}
	day := asOf.UTC().Format(domain.DateLayout)

	var existing int64
	err := s.db.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM fx_snapshots WHERE provider = ? AND base_currency = ? AND as_of = ?`,
			s.provider.Name(), base, day).
		Scan(&existing).Error
	if err != nil {
		return false, err
	}
	if existing > 0 {
		return false, nil
	}

	table, err := s.provider.Fetch(ctx, base)
	if err != nil {
		return false, err
	}

	rates := datatypes.JSONMap{}
	for code, rate := range table.Rates {
		rates[strings.ToUpper(code)] = rate
	}

	// A concurrent refresh may have inserted the same day between the
	// existence check and this insert. The unique index absorbs it.
	res := s.db.WithContext(ctx).Exec(
		`INSERT INTO fx_snapshots (id, provider, base_currency, as_of, rates, raw, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (provider, base_currency, as_of) DO NOTHING`,
		s.genID.Generate(),
		s.provider.Name(),
		base,
		day,
		rates,
		datatypes.JSON(table.Raw),
		s.clock.Now(),
	)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	s.latest.Delete(s.cacheKey(base))
	s.log.Info("fx snapshot stored",
		zap.String("provider", s.provider.Name()),
		zap.String("base_currency", base),
		zap.String("as_of", day),
	)
	return true, nil
}

func (s *Service) Latest(ctx context.Context, base string) (*domain.Snapshot, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return nil, domain.ErrInvalidCurrency
	}

	if snapshot, ok := s.latest.Get(s.cacheKey(base)); ok {
		return snapshot, nil
	}

	var snapshot domain.Snapshot
	err := s.db.WithContext(ctx).
		Where("provider = ? AND base_currency = ?", s.provider.Name(), base).
		Order("as_of DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, err
	}

	s.latest.Set(s.cacheKey(base), &snapshot, latestCacheTTL)
	return &snapshot, nil
}

func (s *Service) Convert(snapshot *domain.Snapshot, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if snapshot == nil {
		return decimal.Zero, domain.ErrSnapshotNotFound
	}
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return decimal.Zero, domain.ErrInvalidCurrency
	}
	if from == to {
		return amount, nil
	}

	fromRate, ok := snapshot.Rate(from)
	if !ok || fromRate <= 0 {
		return decimal.Zero, domain.ErrUnknownCurrency
	}
	toRate, ok := snapshot.Rate(to)
	if !ok || toRate <= 0 {
		return decimal.Zero, domain.ErrUnknownCurrency
	}

	return amount.
		Mul(decimal.NewFromFloat(toRate)).
		Div(decimal.NewFromFloat(fromRate)), nil
}

func (s *Service) cacheKey(base string) string {
	return s.provider.Name() + "|" + base
}
