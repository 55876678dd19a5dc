// Package datastore opens the local rule database.
package datastore

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/sensordash/alertd/internal/conf"
	"github.com/sensordash/alertd/internal/datastore/entities"
	"github.com/sensordash/alertd/internal/errors"
	"github.com/sensordash/alertd/internal/logger"
)

const slowQueryThreshold = 500 * time.Millisecond

// Open connects to the configured database and migrates the schema.
func Open(settings conf.DatabaseSettings, log logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(settings.Driver) {
	case conf.DriverSQLite:
		dialector = sqlite.Open(settings.DSN)
	case conf.DriverMySQL:
		dialector = mysql.Open(settings.DSN)
	default:
		return nil, errors.Newf("unsupported database driver %q", settings.Driver).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gorm_logger.New(gormWriter{log: log}, gorm_logger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  gorm_logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, errors.Newf("failed to open %s database: %w", settings.Driver, err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	if strings.EqualFold(settings.Driver, conf.DriverSQLite) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.New(err).Component("datastore").Category(errors.CategoryDatabase).Build()
		}
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("rule database ready", logger.String("driver", settings.Driver))
	return db, nil
}

// Migrate creates or updates the rule tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entities.AlertRule{}); err != nil {
		return errors.Newf("failed to migrate alert rules: %w", err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// gormWriter routes gorm's printf-style logger into the structured logger.
type gormWriter struct {
	log logger.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Warn("gorm", logger.String("detail", sprintf(format, args...)))
}

func sprintf(format string, args ...any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
