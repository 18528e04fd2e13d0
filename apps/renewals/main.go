// Command renewals runs the auto-renewal sweep on a cron schedule
// without serving HTTP. Deployments that want renewals isolated from
// the API run this next to a cmd/netbill instance started with
// RENEWAL_INTERVAL=0.
package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/netbill/internal/clock"
	"github.com/smallbiznis/netbill/internal/config"
	"github.com/smallbiznis/netbill/internal/customer"
	"github.com/smallbiznis/netbill/internal/ledger"
	"github.com/smallbiznis/netbill/internal/logger"
	"github.com/smallbiznis/netbill/internal/migration"
	"github.com/smallbiznis/netbill/internal/notification"
	"github.com/smallbiznis/netbill/internal/plan"
	"github.com/smallbiznis/netbill/internal/renewal"
	"github.com/smallbiznis/netbill/internal/scheduler"
	"github.com/smallbiznis/netbill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		plan.Module,
		customer.Module,
		ledger.Module,
		renewal.Module,
		notification.Module,

		fx.Provide(scheduler.ProvideConfig),
		fx.Provide(scheduler.New),
		fx.Invoke(runCron),
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(2)
}

func runCron(lc fx.Lifecycle, cfg config.Config, sched *scheduler.Scheduler, log *zap.Logger) error {
	log = log.Named("renewals")

	c := cron.New()
	_, err := c.AddFunc(cfg.RenewalCronSpec, func() {
		result, err := sched.RunOnce(context.Background())
		if err != nil {
			log.Error("renewal sweep failed", zap.Error(err))
			return
		}
		log.Info("renewal sweep finished",
			zap.Int("renewed", result.Renewed),
			zap.Int("failed", result.Failed),
		)
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("renewal cron started", zap.String("schedule", cfg.RenewalCronSpec))
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx := c.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}
