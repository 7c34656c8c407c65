package sync

import (
	"github.com/smallbiznis/debtledger/internal/sync/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sync.service",
	fx.Provide(service.NewService),
)
