package database

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/justsurfingit/hr-requisitions/internal/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connect opens the database. Postgres is the production target; sqlite is
// used for local runs and tests.
func Connect(opts Options, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres, "":
		dialector = postgres.Open(opts.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: pool: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	logger.Info("database connection established", zap.String("driver", dialector.Name()))
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("running migrations")
	if err := db.AutoMigrate(
		&models.Role{},
		&models.Company{},
		&models.Profile{},
		&models.CompanyAssociation{},
		&models.FormTemplate{},
		&models.Requisition{},
		&models.CustomResponse{},
		&models.RequisitionEvent{},
	); err != nil {
		return fmt.Errorf("database: automigrate: %w", err)
	}

	// Both dialects support partial indexes. This is the storage-level guard
	// for "at most one active template per company".
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_form_templates_active
		ON form_templates (company_id) WHERE is_active = true`).Error; err != nil {
		return fmt.Errorf("database: active template index: %w", err)
	}
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_form_templates_version
		ON form_templates (company_id, version)`).Error; err != nil {
		return fmt.Errorf("database: template version index: %w", err)
	}
	return nil
}
