package audit

import (
	"go.uber.org/fx"

	"github.com/mcofie/itinero-web-sub003/internal/audit/repository"
	"github.com/mcofie/itinero-web-sub003/internal/audit/service"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
