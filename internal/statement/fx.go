package statement

import (
	"github.com/smallbiznis/ledgerline/internal/statement/repository"
	"github.com/smallbiznis/ledgerline/internal/statement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("statement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
