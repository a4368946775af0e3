package suggest

import (
	"github.com/smallbiznis/ledgerline/internal/suggest/service"
	"go.uber.org/fx"
)

var Module = fx.Module("suggest",
	fx.Provide(
		service.New,
	),
)
