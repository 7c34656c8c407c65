package debt

import (
	"github.com/smallbiznis/debtledger/internal/debt/repository"
	"github.com/smallbiznis/debtledger/internal/debt/service"
	"go.uber.org/fx"
)

var Module = fx.Module("debt.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
