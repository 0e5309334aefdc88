package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mcofie/itinero-web-sub003/internal/clock"
	ledgerdomain "github.com/mcofie/itinero-web-sub003/internal/ledger/domain"
	ledgerrepository "github.com/mcofie/itinero-web-sub003/internal/ledger/repository"
	ledgerservice "github.com/mcofie/itinero-web-sub003/internal/ledger/service"
)

func setupChecker(t *testing.T) (*Checker, ledgerdomain.Service) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS points_ledger (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			delta BIGINT NOT NULL,
			reason TEXT NOT NULL,
			ref_type TEXT NOT NULL,
			ref_id TEXT NOT NULL,
			meta TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL,
			UNIQUE (ref_type, ref_id)
		)`,
	).Error; err != nil {
		t.Fatalf("create points_ledger: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	ledger := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.SystemClock{},
		Repo:  ledgerrepository.Provide(),
	})
	checker := NewChecker(Params{Ledger: ledger, Log: zap.NewNop()})
	return checker, ledger
}

func credit(t *testing.T, ledger ledgerdomain.Service, userID, reference string, delta int64) {
	t.Helper()
	if _, err := ledger.Append(context.Background(), ledgerdomain.NewEntry{
		UserID:  userID,
		Delta:   delta,
		Reason:  ledgerdomain.ReasonPaystackTopup,
		RefType: ledgerdomain.RefTypePaystack,
		RefID:   reference,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestCheckCreditedPendingThenCredited(t *testing.T) {
	checker, ledger := setupChecker(t)
	ctx := context.Background()

	status, err := checker.CheckCredited(ctx, "user-1", "ref-1")
	if err != nil {
		t.Fatalf("check pending: %v", err)
	}
	if status.Credited {
		t.Fatal("expected pending before credit")
	}

	credit(t, ledger, "user-1", "ref-1", 100)

	status, err = checker.CheckCredited(ctx, "user-1", "ref-1")
	if err != nil {
		t.Fatalf("check credited: %v", err)
	}
	if !status.Credited {
		t.Fatal("expected credited")
	}
	if status.Balance != 100 {
		t.Fatalf("expected balance 100, got %d", status.Balance)
	}
}

func TestCheckCreditedScopedToUser(t *testing.T) {
	checker, ledger := setupChecker(t)
	ctx := context.Background()

	credit(t, ledger, "user-1", "ref-1", 100)

	status, err := checker.CheckCredited(ctx, "user-2", "ref-1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status.Credited {
		t.Fatal("reference owned by another user must read as pending")
	}
}

func TestPollerTimesOutAfterAllAttempts(t *testing.T) {
	checker, _ := setupChecker(t)

	attemptsSlept := 0
	poller := NewPoller(checker, PollConfig{Interval: 2 * time.Second, MaxAttempts: 30}).
		WithSleeper(func(_ context.Context, _ time.Duration) error {
			attemptsSlept++
			return nil
		})

	result, err := poller.Wait(context.Background(), "user-1", "ref-missing")
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !result.TimedOut {
		t.Fatal("expected timeout result")
	}
	if result.Credited {
		t.Fatal("expected not credited")
	}
	if result.Attempts != 30 {
		t.Fatalf("expected 30 attempts, got %d", result.Attempts)
	}
	if attemptsSlept != 29 {
		t.Fatalf("expected 29 waits between 30 attempts, got %d", attemptsSlept)
	}
}

func TestPollerStopsOnceCredited(t *testing.T) {
	checker, ledger := setupChecker(t)

	poller := NewPoller(checker, PollConfig{MaxAttempts: 10}).
		WithSleeper(func(_ context.Context, _ time.Duration) error {
			// Credit lands while the client is waiting between attempts.
			credit(t, ledger, "user-1", "ref-1", 50)
			return nil
		})

	result, err := poller.Wait(context.Background(), "user-1", "ref-1")
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !result.Credited {
		t.Fatal("expected credited")
	}
	if result.Balance != 50 {
		t.Fatalf("expected balance 50, got %d", result.Balance)
	}
	if result.Attempts != 2 {
		t.Fatalf("expected credit on second attempt, got %d", result.Attempts)
	}
}

func TestPollerCancelledContext(t *testing.T) {
	checker, _ := setupChecker(t)

	ctx, cancel := context.WithCancel(context.Background())
	poller := NewPoller(checker, PollConfig{MaxAttempts: 5}).
		WithSleeper(func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		})

	if _, err := poller.Wait(ctx, "user-1", "ref-1"); err == nil {
		t.Fatal("expected context error")
	}
}
