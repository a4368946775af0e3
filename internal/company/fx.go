package company

import (
	"github.com/smallbiznis/ledgerline/internal/company/repository"
	"github.com/smallbiznis/ledgerline/internal/company/service"
	"go.uber.org/fx"
)

var Module = fx.Module("company.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
