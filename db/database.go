package db

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"writ_docket_go/config"
	"writ_docket_go/models"
)

var DB *gorm.DB

// Indexes gorm tags cannot express portably: sequence uniqueness only binds
// finalized proceedings, and a case holds at most one draft.
var partialIndexes = []struct {
	name string
	sql  string
}{
	{"idx_proceeding_case_sequence", `CREATE UNIQUE INDEX IF NOT EXISTS idx_proceeding_case_sequence ON proceedings (case_id, sequence) WHERE draft = false`},
	{"idx_proceeding_case_draft", `CREATE UNIQUE INDEX IF NOT EXISTS idx_proceeding_case_draft ON proceedings (case_id) WHERE draft = true`},
}

// Open connects to the configured database without touching the global handle.
func Open(cfg *config.Config) (*gorm.DB, error) {
	// Determine log level based on environment
	logLevel := logger.Info
	if cfg.IsProduction() {
		logLevel = logger.Warn
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		dialector = postgres.Open(cfg.DatabaseURL)
	case "sqlite", "":
		// WAL for concurrent readers, busy timeout so writers queue instead of failing
		dialector = sqlite.Open(cfg.DBPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	conn, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

// Initialize sets up the global database connection
func Initialize(cfg *config.Config) error {
	conn, err := Open(cfg)
	if err != nil {
		return err
	}
	DB = conn

	log.Info().Str("driver", DB.Dialector.Name()).Msg("Database connection established")
	return nil
}

// AutoMigrate runs database migrations for the docket models and creates the
// partial unique indexes the sequencer relies on.
func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := conn.AutoMigrate(&models.Case{}, &models.Proceeding{}, &models.AuditLog{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, idx := range partialIndexes {
		if err := conn.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	log.Info().Msg("Database migrations completed")
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
