// Package testutil holds shared helpers for package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/storedir/store-directory/internal/database"
	"github.com/storedir/store-directory/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with the store schema
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// CreateTestStore inserts a store and returns it
func CreateTestStore(t *testing.T, db *gorm.DB, name, location string) *domain.Store {
	t.Helper()
	store := &domain.Store{
		Name:     name,
		Location: location,
	}
	require.NoError(t, db.Create(store).Error)
	return store
}

// CreateTestStoreWithTemplate inserts a store with a search template
func CreateTestStoreWithTemplate(t *testing.T, db *gorm.DB, name, location, template string) *domain.Store {
	t.Helper()
	store := &domain.Store{
		Name:              name,
		Location:          location,
		SearchURLTemplate: template,
	}
	require.NoError(t, db.Create(store).Error)
	return store
}
