package repository

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/shora051/Digital-Faxing-Simulation/internal/common"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

func init() {
	// modernc's driver name is unknown to sqlx; it uses ? placeholders.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to the configured storage engine and applies migrations.
// A postgres:// DSN selects the pgx driver; anything else is treated as a
// sqlite database path.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*sqlx.DB, error) {
	driver := "sqlite"
	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		driver = "pgx"
	}
	logger.Info("connecting to database", "driver", driver)

	db, err := sqlx.Open(driver, cfg.DSN)
	if err != nil {
		return nil, common.NewAppError(common.KindStore, "open database", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 3 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, common.NewAppError(common.KindStore, "ping database", err)
	}

	if err := migrateUp(db, driver); err != nil {
		_ = db.Close()
		return nil, common.NewAppError(common.KindStore, "apply migrations", err)
	}

	logger.Info("database ready", "driver", driver)
	return db, nil
}

func migrateUp(db *sqlx.DB, driver string) error {
	var (
		dbDriver database.Driver
		dir      string
		err      error
	)
	switch driver {
	case "pgx":
		dbDriver, err = migratepgx.WithInstance(db.DB, &migratepgx.Config{})
		dir = "migrations/postgres"
	default:
		dbDriver, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
		dir = "migrations/sqlite"
	}
	if err != nil {
		return err
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, driver, dbDriver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the database connection gracefully.
func Close(db *sqlx.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
		return
	}
	logger.Info("database closed")
}
