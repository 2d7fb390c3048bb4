package repository

import (
	"context"
	"strings"

	"github.com/storedir/store-directory/internal/domain"
	"gorm.io/gorm"
)

// StoreFilters defines filter options for store listing
type StoreFilters struct {
	// Search matches name, location or address, case-insensitively
	Search string
	// Location matches the location exactly, case-insensitively
	Location string
}

// storeSortableFields maps API field names to columns (whitelist)
var storeSortableFields = map[string]string{
	"name":      "name",
	"location":  "location",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// StoreRepository handles store data access operations
type StoreRepository struct {
	db *gorm.DB
}

// NewStoreRepository creates a new store repository instance
func NewStoreRepository(db *gorm.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// Create inserts a store. A name/location pair that is already taken
// fails with gorm.ErrDuplicatedKey.
func (r *StoreRepository) Create(ctx context.Context, store *domain.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

// CreateBatch inserts several stores in one transaction
func (r *StoreRepository) CreateBatch(ctx context.Context, stores []domain.Store) error {
	if len(stores) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&stores).Error
	})
}

func (r *StoreRepository) GetByID(ctx context.Context, id uint) (*domain.Store, error) {
	var store domain.Store
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&store).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *StoreRepository) Update(ctx context.Context, store *domain.Store) error {
	return r.db.WithContext(ctx).Save(store).Error
}

// Delete removes a store. Deleting a missing id returns gorm.ErrRecordNotFound.
func (r *StoreRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Store{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns a page of stores and the total number of matches
func (r *StoreRepository) List(ctx context.Context, page, pageSize int, filters *StoreFilters, sort SortConfig) ([]domain.Store, int64, error) {
	var stores []domain.Store
	var total int64

	page, pageSize = NormalizePage(page, pageSize)

	query := r.applyFilters(r.db.WithContext(ctx).Model(&domain.Store{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order(BuildOrderClause(sort, storeSortableFields, "name")).
		Order("id ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&stores).Error

	return stores, total, err
}

// ListAll returns every store ordered by id
func (r *StoreRepository) ListAll(ctx context.Context) ([]domain.Store, error) {
	var stores []domain.Store
	err := r.db.WithContext(ctx).Order("id ASC").Find(&stores).Error
	return stores, err
}

func (r *StoreRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Store{}).Count(&count).Error
	return count, err
}

// ExistsByNameAndLocation reports whether another store already uses the
// name/location pair. excludeID is ignored when zero.
func (r *StoreRepository) ExistsByNameAndLocation(ctx context.Context, name, location string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.Store{}).
		Where("LOWER(name) = LOWER(?) AND LOWER(location) = LOWER(?)", strings.TrimSpace(name), strings.TrimSpace(location))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *StoreRepository) applyFilters(query *gorm.DB, filters *StoreFilters) *gorm.DB {
	if filters == nil {
		return query
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		query = query.Where(
			`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(location) LIKE ? ESCAPE '\' OR LOWER(address) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	}
	if location := strings.TrimSpace(filters.Location); location != "" {
		query = query.Where("LOWER(location) = LOWER(?)", location)
	}
	return query
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes LIKE wildcards in s match literally (with ESCAPE '\')
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
