package migration

import (
	"strings"

	categorydomain "github.com/smallbiznis/ledgerline/internal/category/domain"
	companydomain "github.com/smallbiznis/ledgerline/internal/company/domain"
	"github.com/smallbiznis/ledgerline/internal/config"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/ledgerline/internal/ledger/domain"
	revenuedomain "github.com/smallbiznis/ledgerline/internal/revenue/domain"
	"github.com/smallbiznis/ledgerline/internal/seed"
	statementdomain "github.com/smallbiznis/ledgerline/internal/statement/domain"
	vendordomain "github.com/smallbiznis/ledgerline/internal/vendors/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if strings.EqualFold(cfg.DBType, "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql run the schema off the models directly
			if err := conn.AutoMigrate(
				&companydomain.Company{},
				&customerdomain.Customer{},
				&vendordomain.Vendor{},
				&categorydomain.ExpenseCategory{},
				&statementdomain.BankStatementUpload{},
				&statementdomain.BankStatementTransaction{},
				&revenuedomain.RevenueUpload{},
				&ledgerdomain.CustomerStatementLine{},
			); err != nil {
				return err
			}
		}

		if cfg.DefaultCompanyID != 0 {
			return seed.EnsureDefaultCompanyWithID(conn, cfg.DefaultCompanyID)
		}
		return seed.EnsureDefaultCompany(conn)
	}),
)
