package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/storedir/store-directory/internal/config"
	"github.com/storedir/store-directory/internal/database"
	"github.com/storedir/store-directory/internal/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const usage = "usage: migrate [up|down|status|version|create <name>|patch]"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Migration error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	args := os.Args[1:]
	if len(args) == 0 {
		return fmt.Errorf(usage)
	}
	command := args[0]
	arguments := args[1:]

	driverName, dsn := sqlDriver(&cfg.Database)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	switch command {
	case "up":
		gormDB, err := openGorm(db, &cfg.Database)
		if err != nil {
			return err
		}
		version, err := database.Migrate(gormDB, &cfg.Database, log)
		if err != nil {
			return err
		}
		fmt.Printf("Migrations applied successfully (version %d)\n", version)
		return nil
	case "patch":
		return patch(db, &cfg.Database, log)
	}

	migrator, err := database.NewMigrator(db, database.GooseDialect(&cfg.Database), log)
	if err != nil {
		return err
	}

	switch command {
	case "down":
		if err := migrator.Down(); err != nil {
			return err
		}
		fmt.Println("Migration rolled back successfully")

	case "status":
		if err := migrator.Status(); err != nil {
			return err
		}

	case "version":
		version, err := migrator.Version()
		if err != nil {
			return err
		}
		fmt.Printf("Current version: %d\n", version)

	case "create":
		if len(arguments) == 0 {
			return fmt.Errorf("create requires a migration name")
		}
		dir := "./migrations/" + database.GooseDialectDir(&cfg.Database)
		if err := migrator.Create(dir, arguments[0]); err != nil {
			return err
		}
		fmt.Printf("Migration created: %s\n", arguments[0])

	default:
		return fmt.Errorf("unknown command: %s\n%s", command, usage)
	}

	return nil
}

// sqlDriver returns the database/sql driver name and DSN for the configured database
func sqlDriver(cfg *config.DatabaseConfig) (string, string) {
	if cfg.IsPostgres() {
		return "postgres", cfg.ConnectionString()
	}
	return "sqlite3", cfg.Path
}

// openGorm wraps the migration connection for gorm-based schema work
func openGorm(db *sql.DB, cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := database.DialectorWithConn(cfg, db)
	if err != nil {
		return nil, err
	}
	gormDB, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return gormDB, nil
}

// patch upgrades a legacy schema in place through gorm's migrator
func patch(db *sql.DB, cfg *config.DatabaseConfig, log *zap.Logger) error {
	gormDB, err := openGorm(db, cfg)
	if err != nil {
		return err
	}

	report, err := database.PatchSchema(gormDB, log)
	if err != nil {
		return err
	}

	if !report.Changed() {
		fmt.Printf("Table %s already up to date\n", report.Table)
		return nil
	}
	if report.RenamedFrom != "" {
		fmt.Printf("Renamed table %s to %s\n", report.RenamedFrom, report.Table)
	}
	for _, column := range report.AddedColumns {
		fmt.Printf("Added column %s.%s\n", report.Table, column)
	}
	return nil
}
