package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/debtledger/internal/audit"
	"github.com/smallbiznis/debtledger/internal/clock"
	"github.com/smallbiznis/debtledger/internal/config"
	"github.com/smallbiznis/debtledger/internal/customer"
	customerdomain "github.com/smallbiznis/debtledger/internal/customer/domain"
	"github.com/smallbiznis/debtledger/internal/debt"
	debtdomain "github.com/smallbiznis/debtledger/internal/debt/domain"
	"github.com/smallbiznis/debtledger/internal/idempotency"
	"github.com/smallbiznis/debtledger/internal/logger"
	"github.com/smallbiznis/debtledger/internal/migration"
	obsmetrics "github.com/smallbiznis/debtledger/internal/observability/metrics"
	"github.com/smallbiznis/debtledger/internal/payment"
	paymentdomain "github.com/smallbiznis/debtledger/internal/payment/domain"
	"github.com/smallbiznis/debtledger/internal/scheduler"
	syncmodule "github.com/smallbiznis/debtledger/internal/sync"
	syncdomain "github.com/smallbiznis/debtledger/internal/sync/domain"
	"github.com/smallbiznis/debtledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		obsmetrics.Module,
		migration.Module,

		// Ledger domains
		audit.Module,
		customer.Module,
		debt.Module,
		payment.Module,
		idempotency.Module,
		syncmodule.Module,

		// Background jobs
		scheduler.Module,

		// The transport surface is hosted elsewhere; constructing the
		// services here surfaces wiring mistakes at startup, not first use.
		fx.Invoke(func(log *zap.Logger, _ customerdomain.Service, _ debtdomain.Service, _ paymentdomain.Service, _ syncdomain.Service) {
			log.Info("ledger services ready")
		}),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
