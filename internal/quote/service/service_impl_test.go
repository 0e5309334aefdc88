package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mcofie/itinero-web-sub003/internal/clock"
	"github.com/mcofie/itinero-web-sub003/internal/config"
	"github.com/mcofie/itinero-web-sub003/internal/quote/domain"
)

func TestCreateLocksInPrice(t *testing.T) {
	svc, _ := setupQuoteService(t, 40)

	quote, err := svc.Create(context.Background(), "user-1", 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if quote.Points != 100 {
		t.Fatalf("expected 100 points, got %d", quote.Points)
	}
	if quote.AmountMinor != 4000 {
		t.Fatalf("expected amount 4000, got %d", quote.AmountMinor)
	}
	if quote.UnitPriceMinor != 40 {
		t.Fatalf("expected unit price 40, got %d", quote.UnitPriceMinor)
	}
	if quote.Status != domain.QuoteStatusPending {
		t.Fatalf("expected pending, got %q", quote.Status)
	}
	if quote.ExpiresAt == nil {
		t.Fatal("expected an expiry")
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := setupQuoteService(t, 40)

	if _, err := svc.Create(context.Background(), "", 10); !errors.Is(err, domain.ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
	if _, err := svc.Create(context.Background(), "user-1", 0); !errors.Is(err, domain.ErrInvalidPoints) {
		t.Fatalf("expected ErrInvalidPoints, got %v", err)
	}
	if _, err := svc.Create(context.Background(), "user-1", -5); !errors.Is(err, domain.ErrInvalidPoints) {
		t.Fatalf("expected ErrInvalidPoints for negative, got %v", err)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, _ := setupQuoteService(t, 40)

	quote, err := svc.Create(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(context.Background(), quote.ID, "user-1"); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := svc.Get(context.Background(), quote.ID, "user-2"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Get(context.Background(), snowflake.ID(999), "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkPaidExactlyOnce(t *testing.T) {
	svc, db := setupQuoteService(t, 40)

	quote, err := svc.Create(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.MarkPaidTx(context.Background(), db, quote.ID); err != nil {
		t.Fatalf("first mark paid: %v", err)
	}
	err = svc.MarkPaidTx(context.Background(), db, quote.ID)
	if !errors.Is(err, domain.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
	if err := svc.MarkPaidTx(context.Background(), db, snowflake.ID(999)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	reloaded, err := svc.Get(context.Background(), quote.ID, "user-1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != domain.QuoteStatusPaid {
		t.Fatalf("expected paid, got %q", reloaded.Status)
	}
}

func TestQuoteExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Minute)
	quote := domain.Quote{ExpiresAt: &expired}
	if !quote.Expired(now) {
		t.Fatal("expected quote to be expired")
	}

	future := now.Add(time.Minute)
	quote = domain.Quote{ExpiresAt: &future}
	if quote.Expired(now) {
		t.Fatal("expected quote to be live")
	}

	quote = domain.Quote{}
	if quote.Expired(now) {
		t.Fatal("quote without expiry never expires")
	}
}

func setupQuoteService(t *testing.T, unitPriceMinor int64) (domain.Service, *gorm.DB) {
	t.Helper()
	db := setupQuoteTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	cfg := config.Config{
		Points: config.PointsConfig{
			UnitPriceMinor: unitPriceMinor,
			Currency:       "GHS",
			QuoteTTL:       15 * time.Minute,
		},
	}
	svc, err := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.SystemClock{},
		Cfg:   cfg,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func setupQuoteTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS points_quotes (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			points BIGINT NOT NULL,
			amount_minor BIGINT NOT NULL,
			unit_price_minor BIGINT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			expires_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	).Error; err != nil {
		t.Fatalf("create points_quotes: %v", err)
	}
	return db
}
