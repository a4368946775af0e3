package customer

import (
	"github.com/smallbiznis/ledgerline/internal/customer/repository"
	"github.com/smallbiznis/ledgerline/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
