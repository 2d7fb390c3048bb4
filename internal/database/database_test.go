package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/storedir/store-directory/internal/config"
	"github.com/storedir/store-directory/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDatabase(context.Background(), &config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         ":memory:",
		MaxIdleConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestDialector(t *testing.T) {
	d, err := Dialector(&config.DatabaseConfig{Driver: "sqlite", Path: "stores.db"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = Dialector(&config.DatabaseConfig{Driver: "postgres", Host: "localhost", Port: 5432})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = Dialector(&config.DatabaseConfig{Driver: "sqlite"})
	assert.Error(t, err)

	_, err = Dialector(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestGooseDialect(t *testing.T) {
	assert.Equal(t, "sqlite3", GooseDialect(&config.DatabaseConfig{Driver: "sqlite"}))
	assert.Equal(t, "postgres", GooseDialect(&config.DatabaseConfig{Driver: "Postgres"}))
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(context.Background(), &config.DatabaseConfig{Driver: "oracle"}, zap.NewNop())
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	db := openMemoryDB(t)

	assert.NoError(t, HealthCheck(db))

	stats, err := HealthCheckWithStats(db)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)
}

func TestHealthCheck_PingFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err = HealthCheck(db)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrator_UpAndDown(t *testing.T) {
	db := openMemoryDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	m, err := NewMigrator(sqlDB, "sqlite3", zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, m.Up())
	version, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, int64(4), version)

	assert.True(t, db.Migrator().HasTable("stores"))
	assert.True(t, db.Migrator().HasColumn(&domain.Store{}, "address"))
	assert.True(t, db.Migrator().HasColumn(&domain.Store{}, "search_url_template"))

	store := &domain.Store{Name: "Costco", Location: "Omaha, NE"}
	require.NoError(t, db.Create(store).Error)
	assert.NotZero(t, store.ID)

	dup := &domain.Store{Name: "COSTCO", Location: "omaha, ne"}
	assert.ErrorIs(t, db.Create(dup).Error, gorm.ErrDuplicatedKey)

	require.NoError(t, m.Down())
	version, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)
	require.NoError(t, db.Create(dup).Error)

	require.NoError(t, m.Down())
	version, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
	assert.False(t, db.Migrator().HasColumn(&domain.Store{}, "search_url_template"))
}

func TestAutoMigrate(t *testing.T) {
	db := openMemoryDB(t)
	require.NoError(t, AutoMigrate(db))
	assert.True(t, db.Migrator().HasTable(&domain.Store{}))
	assert.True(t, db.Migrator().HasIndex(&domain.Store{}, "idx_stores_name_location"))

	require.NoError(t, db.Create(&domain.Store{Name: "Target", Location: "Papillion, NE"}).Error)
	err := db.Create(&domain.Store{Name: "target", Location: "PAPILLION, NE"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
