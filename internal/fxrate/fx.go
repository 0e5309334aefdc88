package fxrate

import (
	"go.uber.org/fx"

	"github.com/mcofie/itinero-web-sub003/internal/config"
	"github.com/mcofie/itinero-web-sub003/internal/fxrate/domain"
	"github.com/mcofie/itinero-web-sub003/internal/fxrate/provider"
	"github.com/mcofie/itinero-web-sub003/internal/fxrate/service"
)

var Module = fx.Module("fxrate.service",
	fx.Provide(func(cfg config.Config) domain.RateProvider {
		return provider.NewExchangeRateAPI(cfg.FX)
	}),
	fx.Provide(service.NewService),
)
