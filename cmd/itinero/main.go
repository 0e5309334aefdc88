// @title           Itinero Points API
// @version         1.0
// @description     Points ledger, payment confirmation and trip sharing API

// @host      localhost:8080
// @BasePath  /api
// @Schemes 	http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/mcofie/itinero-web-sub003/internal/audit"
	"github.com/mcofie/itinero-web-sub003/internal/clock"
	"github.com/mcofie/itinero-web-sub003/internal/config"
	"github.com/mcofie/itinero-web-sub003/internal/events"
	"github.com/mcofie/itinero-web-sub003/internal/fxrate"
	"github.com/mcofie/itinero-web-sub003/internal/fxrate/refresh"
	"github.com/mcofie/itinero-web-sub003/internal/ledger"
	"github.com/mcofie/itinero-web-sub003/internal/migration"
	"github.com/mcofie/itinero-web-sub003/internal/observability"
	"github.com/mcofie/itinero-web-sub003/internal/payment"
	"github.com/mcofie/itinero-web-sub003/internal/quote"
	"github.com/mcofie/itinero-web-sub003/internal/reconcile"
	"github.com/mcofie/itinero-web-sub003/internal/seed"
	"github.com/mcofie/itinero-web-sub003/internal/server"
	"github.com/mcofie/itinero-web-sub003/internal/trip"
	"github.com/mcofie/itinero-web-sub003/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			return seed.EnsureDevData(conn, cfg)
		}),

		fx.Provide(events.NewOutbox),
		audit.Module,
		ledger.Module,
		quote.Module,
		trip.Module,
		payment.Module,
		reconcile.Module,
		fxrate.Module,
		refresh.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
