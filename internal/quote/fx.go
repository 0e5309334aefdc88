package quote

import (
	"go.uber.org/fx"

	"github.com/mcofie/itinero-web-sub003/internal/quote/service"
)

var Module = fx.Module("quote.service",
	fx.Provide(service.NewService),
)
