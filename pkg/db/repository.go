// pkg/db/repository.go
package db

import (
	"fmt"
	"strconv"

	"github.com/trunghieu0211/flashdeck-journey/pkg/config"
	"github.com/trunghieu0211/flashdeck-journey/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Export DB variable
var DB *gorm.DB

func InitDB(cfg config.DatabaseConfig) error {
	gormLogger, gormErr := newGormLogger(config.AppConfig.Logging.GormLevel)
	if gormErr != nil {
		logger.Error("invalid gorm log level", "value", config.AppConfig.Logging.GormLevel, "error", gormErr)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dsn := "host=" + cfg.Host +
			" user=" + cfg.User +
			" password=" + cfg.Password +
			" dbname=" + cfg.DBName +
			" port=" + strconv.Itoa(cfg.Port) +
			" sslmode=" + cfg.SSLMode
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		logger.Error("failed to connect to database", "driver", cfg.Driver, "error", err)
		return err
	}
	if err := Migrate(DB); err != nil {
		logger.Error("failed to migrate database", "error", err)
		return err
	}
	return nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Category{},
		&Deck{},
		&Card{},
		&ReviewRecord{},
		&ReviewLog{},
		&UserSettings{},
		&StudySessionState{},
	)
}
