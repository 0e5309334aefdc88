package trip

import (
	"go.uber.org/fx"

	"github.com/mcofie/itinero-web-sub003/internal/trip/service"
)

var Module = fx.Module("trip.service",
	fx.Provide(service.NewService),
)
