package payment

import (
	"go.uber.org/fx"

	"github.com/mcofie/itinero-web-sub003/internal/config"
	"github.com/mcofie/itinero-web-sub003/internal/payment/adapters"
	"github.com/mcofie/itinero-web-sub003/internal/payment/adapters/paystack"
	"github.com/mcofie/itinero-web-sub003/internal/payment/service"
)

var Module = fx.Module("payment.service",
	fx.Provide(func(cfg config.Config) *adapters.Registry {
		return adapters.NewRegistry(paystack.New(cfg.Paystack))
	}),
	fx.Provide(service.NewService),
)
