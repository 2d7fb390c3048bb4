package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/storedir/store-directory/internal/config"
	"github.com/storedir/store-directory/internal/domain"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the configured database, retrying with exponential
// backoff while the server is unreachable.
func NewDatabase(ctx context.Context, cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	retries := cfg.ConnectRetries
	if retries < 0 {
		retries = 0
	}
	backoff := retry.WithMaxRetries(uint64(retries), retry.NewExponential(500*time.Millisecond))

	var db *gorm.DB
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		conn, err := gorm.Open(dialector, gormCfg)
		if err != nil {
			log.Warn("Database connection attempt failed",
				zap.Int("attempt", attempt),
				zap.String("driver", cfg.Driver),
				zap.Error(err),
			)
			return retry.RetryableError(err)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return fmt.Errorf("failed to get database instance: %w", err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			log.Warn("Database ping failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return retry.RetryableError(err)
		}

		db = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempt, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	maxOpen, maxIdle := cfg.MaxOpenConns, cfg.MaxIdleConns
	if isInMemorySQLite(cfg) {
		// each connection to :memory: is a separate database, and closing the last one drops it
		maxOpen, maxIdle = 1, 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	log.Info("Database connected",
		zap.String("driver", cfg.Driver),
		zap.Int("attempts", attempt),
	)

	return db, nil
}

// Dialector returns the gorm dialector for the configured driver
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("database path is required for sqlite")
		}
		return sqlite.Open(cfg.Path), nil
	case "postgres":
		return postgres.Open(cfg.ConnectionString()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// DialectorWithConn wraps an already open connection, as cmd/migrate does
func DialectorWithConn(cfg *config.DatabaseConfig, conn *sql.DB) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		return &sqlite.Dialector{DriverName: "sqlite3", Conn: conn}, nil
	case "postgres":
		return postgres.New(postgres.Config{Conn: conn}), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// GooseDialect maps the configured driver to a goose dialect name
func GooseDialect(cfg *config.DatabaseConfig) string {
	if cfg.IsPostgres() {
		return "postgres"
	}
	return "sqlite3"
}

func isInMemorySQLite(cfg *config.DatabaseConfig) bool {
	return !cfg.IsPostgres() && (strings.Contains(cfg.Path, ":memory:") || strings.Contains(cfg.Path, "mode=memory"))
}

// uniqueNameLocationIndex mirrors migration 00004; gorm tags can't express it
const uniqueNameLocationIndex = "CREATE UNIQUE INDEX IF NOT EXISTS idx_stores_name_location ON stores (LOWER(name), LOWER(location))"

// AutoMigrate runs gorm's automatic migrations (tests and local development only)
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Store{}); err != nil {
		return err
	}
	return db.Exec(uniqueNameLocationIndex).Error
}

// HealthCheck pings the database
func HealthCheck(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// HealthCheckWithStats pings the database and returns pool statistics
func HealthCheckWithStats(db *gorm.DB) (sql.DBStats, error) {
	if err := HealthCheck(db); err != nil {
		return sql.DBStats{}, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return sql.DBStats{}, fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Stats(), nil
}
