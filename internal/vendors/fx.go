package vendors

import (
	"github.com/smallbiznis/ledgerline/internal/vendors/repository"
	"github.com/smallbiznis/ledgerline/internal/vendors/service"
	"go.uber.org/fx"
)

var Module = fx.Module("vendor.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
