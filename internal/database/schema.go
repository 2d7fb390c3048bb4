package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/storedir/store-directory/internal/config"
	"github.com/storedir/store-directory/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrStoreTableNotFound is returned when no store table exists yet
	ErrStoreTableNotFound = errors.New("store table not found; run migrations or start the app once to create it")
	// ErrLegacyTableConflict is returned when both the legacy and the current table exist
	ErrLegacyTableConflict = errors.New(`both "store" and "stores" tables exist; move the rows into stores and drop store`)
)

// legacyStoreTable is the table name used before the rename to "stores"
const legacyStoreTable = "store"

// PatchedSchemaVersion is the goose version matching the schema PatchSchema
// produces. Later migrations still run on top of a patched database.
const PatchedSchemaVersion int64 = 3

// patchedStringFields are model fields added after the first schema
var patchedStringFields = []string{"URL", "Address", "SearchURLTemplate"}

// PatchReport describes what PatchSchema changed
type PatchReport struct {
	Table        string
	RenamedFrom  string
	AddedColumns []string
}

// Changed reports whether the schema was modified
func (r *PatchReport) Changed() bool {
	return r.RenamedFrom != "" || len(r.AddedColumns) > 0
}

// PatchSchema brings a database created by an older version of the app up
// to the current store schema without goose: a legacy "store" table is
// renamed and missing columns are added. The goose version table is then
// stamped with PatchedSchemaVersion so Migrator.Up only applies newer
// migrations. Running it again is a no-op.
func PatchSchema(db *gorm.DB, log *zap.Logger) (*PatchReport, error) {
	m := db.Migrator()
	target := domain.Store{}.TableName()

	hasCurrent, hasLegacy := m.HasTable(target), m.HasTable(legacyStoreTable)
	switch {
	case hasCurrent && hasLegacy:
		return nil, ErrLegacyTableConflict
	case !hasCurrent && !hasLegacy:
		return nil, ErrStoreTableNotFound
	}

	report := &PatchReport{Table: target}
	if hasLegacy {
		if err := m.RenameTable(legacyStoreTable, target); err != nil {
			return nil, fmt.Errorf("failed to rename table %s to %s: %w", legacyStoreTable, target, err)
		}
		report.RenamedFrom = legacyStoreTable
		log.Info("Renamed legacy store table", zap.String("from", legacyStoreTable), zap.String("to", target))
	}

	model := &domain.Store{}
	for _, field := range patchedStringFields {
		if m.HasColumn(model, field) {
			continue
		}
		if err := m.AddColumn(model, field); err != nil {
			return nil, fmt.Errorf("failed to add column for %s: %w", field, err)
		}
		report.AddedColumns = append(report.AddedColumns, columnName(db, field))
	}

	for _, column := range []string{"created_at", "updated_at"} {
		if m.HasColumn(model, column) {
			continue
		}
		if err := addTimestampColumn(db, target, column); err != nil {
			return nil, err
		}
		report.AddedColumns = append(report.AddedColumns, column)
	}

	if err := db.Exec(nameIndexStatement(db)).Error; err != nil {
		return nil, fmt.Errorf("failed to create name index: %w", err)
	}

	if err := stampPatchedVersion(db, log); err != nil {
		return nil, err
	}

	if report.Changed() {
		log.Info("Store schema patched",
			zap.String("table", report.Table),
			zap.Strings("added_columns", report.AddedColumns),
		)
	} else {
		log.Info("Store schema already up to date", zap.String("table", report.Table))
	}

	return report, nil
}

// addTimestampColumn adds a nullable timestamp and backfills it. SQLite
// rejects ADD COLUMN with a non-constant default, so the model tag can't be used.
func addTimestampColumn(db *gorm.DB, table, column string) error {
	colType := "TIMESTAMPTZ"
	if db.Dialector.Name() == "sqlite" {
		colType = "DATETIME"
	}
	if err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, colType)).Error; err != nil {
		return fmt.Errorf("failed to add column %s: %w", column, err)
	}
	if err := db.Exec(fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s IS NULL", table, column, column), time.Now().UTC()).Error; err != nil {
		return fmt.Errorf("failed to backfill column %s: %w", column, err)
	}
	return nil
}

// nameIndexStatement matches idx_stores_name from migration 00001
func nameIndexStatement(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return "CREATE INDEX IF NOT EXISTS idx_stores_name ON stores (LOWER(name))"
	}
	return "CREATE INDEX IF NOT EXISTS idx_stores_name ON stores (name)"
}

func stampPatchedVersion(db *gorm.DB, log *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	dialect := "sqlite3"
	if db.Dialector.Name() == "postgres" {
		dialect = "postgres"
	}
	migrator, err := NewMigrator(sqlDB, dialect, log)
	if err != nil {
		return err
	}
	return migrator.Stamp(PatchedSchemaVersion)
}

// Migrate prepares the schema at startup. A legacy "store" table is patched
// first so goose does not create an empty "stores" table beside it; then all
// pending migrations run. It returns the resulting schema version.
func Migrate(db *gorm.DB, cfg *config.DatabaseConfig, log *zap.Logger) (int64, error) {
	if db.Migrator().HasTable(legacyStoreTable) {
		if db.Migrator().HasTable(domain.Store{}.TableName()) {
			return 0, ErrLegacyTableConflict
		}
		log.Warn("Legacy store table found, patching before migrations")
		if _, err := PatchSchema(db, log); err != nil {
			return 0, fmt.Errorf("failed to patch legacy schema: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return 0, fmt.Errorf("failed to get database instance: %w", err)
	}
	migrator, err := NewMigrator(sqlDB, GooseDialect(cfg), log)
	if err != nil {
		return 0, err
	}
	if err := migrator.Up(); err != nil {
		return 0, err
	}
	return migrator.Version()
}

func columnName(db *gorm.DB, field string) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(&domain.Store{}); err != nil {
		return field
	}
	if f := stmt.Schema.LookUpField(field); f != nil {
		return f.DBName
	}
	return field
}
