package ledger

import (
	"go.uber.org/fx"

	"github.com/mcofie/itinero-web-sub003/internal/ledger/repository"
	"github.com/mcofie/itinero-web-sub003/internal/ledger/service"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
