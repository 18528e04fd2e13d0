package migration

import (
	"github.com/smallbiznis/netbill/internal/config"
	customerdomain "github.com/smallbiznis/netbill/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	plandomain "github.com/smallbiznis/netbill/internal/plan/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned SQL migrations target postgres; other dialects
		// (mysql, sqlite for local development) fall back to gorm's
		// schema sync.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&plandomain.Plan{},
				&customerdomain.Customer{},
				&ledgerdomain.Invoice{},
				&ledgerdomain.AddonBill{},
				&ledgerdomain.ManualInvoice{},
				&ledgerdomain.Payment{},
				&ledgerdomain.Transaction{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
