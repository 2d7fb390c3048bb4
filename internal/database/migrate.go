package database

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/storedir/store-directory/internal/config"
	"github.com/storedir/store-directory/migrations"
	"go.uber.org/zap"
)

// gooseLogger routes goose output through zap
type gooseLogger struct {
	sugar *zap.SugaredLogger
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.sugar.Fatalf(format, v...)
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Migrator runs the embedded goose migrations for one dialect
type Migrator struct {
	db      *sql.DB
	dialect string
}

// NewMigrator prepares goose for the given dialect ("sqlite3" or "postgres")
func NewMigrator(db *sql.DB, dialect string, log *zap.Logger) (*Migrator, error) {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{sugar: log.Sugar()})
	if err := goose.SetDialect(dialect); err != nil {
		return nil, fmt.Errorf("failed to set dialect: %w", err)
	}
	return &Migrator{db: db, dialect: dialect}, nil
}

// GooseDialectDir is the migrations source directory for the configured driver
func GooseDialectDir(cfg *config.DatabaseConfig) string {
	return migrations.Dir(GooseDialect(cfg))
}

func (m *Migrator) dir() string {
	return migrations.Dir(m.dialect)
}

// Up applies all pending migrations
func (m *Migrator) Up() error {
	if err := goose.Up(m.db, m.dir()); err != nil {
		return fmt.Errorf("failed to run up migrations: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration
func (m *Migrator) Down() error {
	if err := goose.Down(m.db, m.dir()); err != nil {
		return fmt.Errorf("failed to run down migration: %w", err)
	}
	return nil
}

// Status prints the state of every migration
func (m *Migrator) Status() error {
	if err := goose.Status(m.db, m.dir()); err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	return nil
}

// Version returns the current schema version
func (m *Migrator) Version() (int64, error) {
	v, err := goose.GetDBVersion(m.db)
	if err != nil {
		return 0, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

// Stamp records every version up to version as applied without running it.
// Versions already recorded are left alone.
func (m *Migrator) Stamp(version int64) error {
	current, err := goose.EnsureDBVersion(m.db)
	if err != nil {
		return fmt.Errorf("failed to read version table: %w", err)
	}
	for v := current + 1; v <= version; v++ {
		stmt := fmt.Sprintf("INSERT INTO %s (version_id, is_applied) VALUES (%d, TRUE)", goose.TableName(), v)
		if _, err := m.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to stamp version %d: %w", v, err)
		}
	}
	return nil
}

// Create writes a new SQL migration file under dir on disk
func (m *Migrator) Create(dir, name string) error {
	goose.SetBaseFS(nil)
	defer goose.SetBaseFS(migrations.FS)
	if err := goose.Create(m.db, dir, name, "sql"); err != nil {
		return fmt.Errorf("failed to create migration: %w", err)
	}
	return nil
}
