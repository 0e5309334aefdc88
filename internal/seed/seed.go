package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mcofie/itinero-web-sub003/internal/config"
	fxdomain "github.com/mcofie/itinero-web-sub003/internal/fxrate/domain"
	fxprovider "github.com/mcofie/itinero-web-sub003/internal/fxrate/provider"
)

const demoUserID = "dev-demo-user"

// devRates is a static rate table so local environments work without a
// provider credential.
var devRates = map[string]float64{
	"USD": 1,
	"GHS": 15.5,
	"EUR": 0.92,
	"GBP": 0.79,
	"NGN": 1600,
	"ZAR": 18.2,
	"KES": 129,
}

// EnsureDevData seeds non-production environments: a demo trip for the
// dev user, and a current-day FX snapshot when no provider key is set.
func EnsureDevData(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if cfg.IsProduction() {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureDemoTrip(ctx, tx, node); err != nil {
			return err
		}
		if cfg.FX.APIKey == "" {
			return ensureDevSnapshot(ctx, tx, node, cfg.FX.BaseCurrency)
		}
		return nil
	})
}

func ensureDemoTrip(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var existing int64
	if err := tx.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM trips WHERE user_id = ?`, demoUserID).
		Scan(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	now := time.Now().UTC()
	return tx.WithContext(ctx).Exec(
		`INSERT INTO trips (id, user_id, title, public_id, created_at, updated_at)
		 VALUES (?, ?, ?, NULL, ?, ?)`,
		node.Generate(), demoUserID, "Accra Weekend", now, now,
	).Error
}

func ensureDevSnapshot(ctx context.Context, tx *gorm.DB, node *snowflake.Node, base string) error {
	if base == "" {
		base = "USD"
	}
	day := time.Now().UTC().Format(fxdomain.DateLayout)

	rates := datatypes.JSONMap{}
	for code, rate := range devRates {
		rates[code] = rate
	}

	return tx.WithContext(ctx).Exec(
		`INSERT INTO fx_snapshots (id, provider, base_currency, as_of, rates, raw, created_at)
		 VALUES (?, ?, ?, ?, ?, NULL, ?)
		 ON CONFLICT (provider, base_currency, as_of) DO NOTHING`,
		node.Generate(), fxprovider.Name, base, day, rates, time.Now().UTC(),
	).Error
}
