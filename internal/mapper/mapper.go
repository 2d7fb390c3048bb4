package mapper

import (
	"time"

	"github.com/storedir/store-directory/internal/domain"
)

const timestampLayout = "2006-01-02T15:04:05Z"

// ToStoreDTO converts Store to StoreDTO
func ToStoreDTO(store *domain.Store) domain.StoreDTO {
	return domain.StoreDTO{
		ID:                store.ID,
		Name:              store.Name,
		Location:          store.Location,
		Address:           store.Address,
		URL:               store.URL,
		SearchURLTemplate: store.SearchURLTemplate,
		CanSearch:         store.CanSearch(),
		CreatedAt:         store.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:         store.UpdatedAt.UTC().Format(timestampLayout),
	}
}

// ToStoreDTOs converts a slice of stores
func ToStoreDTOs(stores []domain.Store) []domain.StoreDTO {
	dtos := make([]domain.StoreDTO, len(stores))
	for i := range stores {
		dtos[i] = ToStoreDTO(&stores[i])
	}
	return dtos
}

// ToStoreExportDTO builds a directory snapshot taken at exportedAt
func ToStoreExportDTO(stores []domain.Store, exportedAt time.Time) domain.StoreExportDTO {
	return domain.StoreExportDTO{
		ExportedAt: exportedAt.UTC().Format(timestampLayout),
		Count:      len(stores),
		Stores:     ToStoreDTOs(stores),
	}
}
