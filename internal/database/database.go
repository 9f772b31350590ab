package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/auth"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/config"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/content"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/portfolio"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
)

// activeContentIndex allows at most one live request per content item.
const activeContentIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_approval_requests_active_content
	ON approval_requests (content_type, content_id)
	WHERE overall_status IN ('pending', 'in_progress') AND deleted_at IS NULL`

// New creates a new database connection using the provided configuration
func New(cfg *config.DatabaseConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config cannot be nil")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying SQL database to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// SQLite serializes writers; a single connection avoids "database is locked".
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxConnLifetimeSeconds) * time.Second)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		slog.Info("database connection established", "driver", cfg.Driver, "path", cfg.SQLitePath)
	} else {
		slog.Info("database connection established",
			"driver", cfg.Driver,
			"host", cfg.Host,
			"port", cfg.Port,
			"database", cfg.Name,
		)
	}

	return db, nil
}

// Migrate creates or updates every table owned by the service.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database is nil")
	}

	tx := db.WithContext(ctx)
	if err := tx.AutoMigrate(
		&auth.Department{},
		&content.Item{},
		&model.WorkflowDefinition{},
		&model.ApprovalRequest{},
		&portfolio.PublicPortfolio{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Partial indexes are not expressible through struct tags
	if err := tx.Exec(activeContentIndex).Error; err != nil {
		return fmt.Errorf("failed to create active content index: %w", err)
	}

	slog.InfoContext(ctx, "database schema migrated")
	return nil
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	slog.Info("database connection closed")
	return nil
}

// HealthCheck performs a health check on the database connection
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// LogLevel maps a textual log level to the gorm logger level.
func LogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "info", "warn":
		return logger.Warn
	default:
		return logger.Error
	}
}
