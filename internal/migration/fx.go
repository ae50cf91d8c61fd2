package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/rideledger/rideledger/internal/config"
)

// Module applies migrations on startup. The embedded SQL targets postgres;
// dev sqlite databases are created by the test/dev AutoMigrate path.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			return nil
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
