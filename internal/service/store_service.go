package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/storedir/store-directory/internal/domain"
	"github.com/storedir/store-directory/internal/logger"
	"github.com/storedir/store-directory/internal/mapper"
	"github.com/storedir/store-directory/internal/metrics"
	"github.com/storedir/store-directory/internal/repository"
	"github.com/storedir/store-directory/internal/searchurl"
	"github.com/storedir/store-directory/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExportPrefix is the storage key prefix of directory snapshots
const ExportPrefix = "exports/stores-"

const exportKeyLayout = "20060102T150405Z"

type StoreService struct {
	storeRepo *repository.StoreRepository
	storage   storage.Storage
	logger    *zap.Logger
	now       func() time.Time
}

// NewStoreService creates a store service. store may be nil when exports
// to storage are not used.
func NewStoreService(storeRepo *repository.StoreRepository, store storage.Storage, logger *zap.Logger) *StoreService {
	return &StoreService{
		storeRepo: storeRepo,
		storage:   store,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *StoreService) Create(ctx context.Context, req *domain.CreateStoreRequest) (*domain.StoreDTO, error) {
	name, location, err := normalizeNameLocation(req.Name, req.Location)
	if err != nil {
		return nil, err
	}

	template, err := resolveSearchTemplate(req.SearchURLTemplate, req.SampleSearchURL, req.SampleSearchTerm)
	if err != nil {
		return nil, err
	}

	exists, err := s.storeRepo.ExistsByNameAndLocation(ctx, name, location, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate store: %w", err)
	}
	if exists {
		return nil, ErrStoreConflict
	}

	store := &domain.Store{
		Name:              name,
		Location:          location,
		Address:           strings.TrimSpace(req.Address),
		URL:               strings.TrimSpace(req.URL),
		SearchURLTemplate: template,
	}

	if err := s.storeRepo.Create(ctx, store); err != nil {
		// a concurrent create can pass the check above; the unique index decides
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrStoreConflict
		}
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	logger.WithStore(s.logger, store.ID, store.Name).Info("store created",
		zap.Bool("can_search", store.CanSearch()),
	)

	dto := mapper.ToStoreDTO(store)
	return &dto, nil
}

func (s *StoreService) GetByID(ctx context.Context, id uint) (*domain.StoreDTO, error) {
	store, err := s.getStore(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToStoreDTO(store)
	return &dto, nil
}

// Update replaces every editable field. The search template follows the
// same precedence as Create, so an update without template or sample
// clears it.
func (s *StoreService) Update(ctx context.Context, id uint, req *domain.UpdateStoreRequest) (*domain.StoreDTO, error) {
	store, err := s.getStore(ctx, id)
	if err != nil {
		return nil, err
	}

	name, location, err := normalizeNameLocation(req.Name, req.Location)
	if err != nil {
		return nil, err
	}

	template, err := resolveSearchTemplate(req.SearchURLTemplate, req.SampleSearchURL, req.SampleSearchTerm)
	if err != nil {
		return nil, err
	}

	exists, err := s.storeRepo.ExistsByNameAndLocation(ctx, name, location, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate store: %w", err)
	}
	if exists {
		return nil, ErrStoreConflict
	}

	store.Name = name
	store.Location = location
	store.Address = strings.TrimSpace(req.Address)
	store.URL = strings.TrimSpace(req.URL)
	store.SearchURLTemplate = template

	if err := s.storeRepo.Update(ctx, store); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrStoreConflict
		}
		return nil, fmt.Errorf("failed to update store: %w", err)
	}

	logger.WithStore(s.logger, store.ID, store.Name).Info("store updated",
		zap.Bool("can_search", store.CanSearch()),
	)

	dto := mapper.ToStoreDTO(store)
	return &dto, nil
}

func (s *StoreService) Delete(ctx context.Context, id uint) error {
	if err := s.storeRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStoreNotFound
		}
		return fmt.Errorf("failed to delete store: %w", err)
	}
	s.logger.Info("store deleted", zap.Uint("store_id", id))
	return nil
}

// List returns a page of stores. Page and page size are clamped to valid values.
func (s *StoreService) List(ctx context.Context, page, pageSize int, filters *repository.StoreFilters, sortCfg repository.SortConfig) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePage(page, pageSize)

	stores, total, err := s.storeRepo.List(ctx, page, pageSize, filters, sortCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}

	return &domain.PaginatedResponse{
		Data:       mapper.ToStoreDTOs(stores),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// BuildSearchURL expands the store's search template with query
func (s *StoreService) BuildSearchURL(ctx context.Context, id uint, query string) (*domain.StoreSearchDTO, error) {
	store, err := s.getStore(ctx, id)
	if err != nil {
		return nil, err
	}
	if !store.CanSearch() {
		return nil, ErrSearchNotConfigured
	}

	target, err := searchurl.Build(store.SearchURLTemplate, query)
	if err != nil {
		if errors.Is(err, searchurl.ErrEmptyQuery) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, &FieldError{Field: "q", Err: err})
		}
		// Stored templates are validated on write; this only happens for rows edited outside the app
		return nil, fmt.Errorf("%w: %w", ErrInvalidSearchTemplate, err)
	}

	metrics.RecordSearch()
	logger.WithStore(s.logger, store.ID, store.Name).Debug("search url built", zap.String("url", target))

	return &domain.StoreSearchDTO{
		StoreID: store.ID,
		Query:   strings.TrimSpace(query),
		URL:     target,
	}, nil
}

// DeriveSearchTemplate previews the template a sample URL and term produce
func (s *StoreService) DeriveSearchTemplate(ctx context.Context, req *domain.DeriveSearchTemplateRequest) (*domain.DeriveSearchTemplateResponse, error) {
	template, err := deriveTemplate(req.SampleURL, req.SampleTerm, "sampleUrl", "sampleTerm")
	if err != nil {
		return nil, err
	}
	return &domain.DeriveSearchTemplateResponse{Template: template}, nil
}

// Export returns a snapshot of every store ordered by id
func (s *StoreService) Export(ctx context.Context) (*domain.StoreExportDTO, error) {
	stores, err := s.storeRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores for export: %w", err)
	}
	dto := mapper.ToStoreExportDTO(stores, s.now())
	return &dto, nil
}

// ExportToStorage writes a JSON snapshot to storage under ExportPrefix
func (s *StoreService) ExportToStorage(ctx context.Context) (*domain.StoreExportResult, error) {
	if s.storage == nil {
		return nil, ErrStorageNotConfigured
	}

	snapshot, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	key := ExportPrefix + s.now().UTC().Format(exportKeyLayout) + ".json"
	size, err := s.storage.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to upload export: %w", err)
	}

	s.logger.Info("store directory exported",
		zap.String("storage_path", key),
		zap.Int64("size", size),
		zap.Int("count", snapshot.Count),
	)

	return &domain.StoreExportResult{
		StoragePath: key,
		Size:        size,
		Count:       snapshot.Count,
	}, nil
}

// LatestExport opens the newest snapshot in storage. The caller closes the body.
func (s *StoreService) LatestExport(ctx context.Context) (string, io.ReadCloser, error) {
	if s.storage == nil {
		return "", nil, ErrStorageNotConfigured
	}

	keys, err := s.storage.List(ctx, ExportPrefix)
	if err != nil {
		return "", nil, fmt.Errorf("failed to list exports: %w", err)
	}
	if len(keys) == 0 {
		return "", nil, ErrExportNotFound
	}

	sort.Strings(keys)
	key := keys[len(keys)-1]
	body, err := s.storage.Download(ctx, key)
	if err != nil {
		// pruned between List and Download
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil, ErrExportNotFound
		}
		return "", nil, fmt.Errorf("failed to download export %s: %w", key, err)
	}
	return key, body, nil
}

// PruneExports deletes all but the newest retain snapshots. retain <= 0 keeps everything.
func (s *StoreService) PruneExports(ctx context.Context, retain int) (int, error) {
	if s.storage == nil {
		return 0, ErrStorageNotConfigured
	}
	if retain <= 0 {
		return 0, nil
	}

	keys, err := s.storage.List(ctx, ExportPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list exports: %w", err)
	}
	if len(keys) <= retain {
		return 0, nil
	}

	// Keys embed a sortable UTC timestamp
	sort.Strings(keys)
	stale := keys[:len(keys)-retain]
	for _, key := range stale {
		if err := s.storage.Delete(ctx, key); err != nil {
			return 0, fmt.Errorf("failed to delete export %s: %w", key, err)
		}
	}

	s.logger.Info("old exports pruned", zap.Int("deleted", len(stale)), zap.Int("retained", retain))
	return len(stale), nil
}

// SeedDefaults inserts the default stores when the directory is empty and
// returns how many were inserted.
func (s *StoreService) SeedDefaults(ctx context.Context) (int, error) {
	count, err := s.storeRepo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count stores: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	stores := domain.DefaultStores()
	if err := s.storeRepo.CreateBatch(ctx, stores); err != nil {
		return 0, fmt.Errorf("failed to seed stores: %w", err)
	}

	s.logger.Info("default stores seeded", zap.Int("count", len(stores)))
	return len(stores), nil
}

func (s *StoreService) getStore(ctx context.Context, id uint) (*domain.Store, error) {
	store, err := s.storeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	return store, nil
}

func normalizeNameLocation(name, location string) (string, string, error) {
	name = strings.TrimSpace(name)
	location = strings.TrimSpace(location)
	if name == "" {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidInput, &FieldError{Field: "name", Err: errors.New("name is required")})
	}
	if location == "" {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidInput, &FieldError{Field: "location", Err: errors.New("location is required")})
	}
	return name, location, nil
}

// resolveSearchTemplate applies template precedence: an explicit template,
// then one derived from a sample, then none.
func resolveSearchTemplate(template, sampleURL, sampleTerm string) (string, error) {
	template = strings.TrimSpace(template)
	if template != "" {
		if err := searchurl.Validate(template); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidSearchTemplate, &FieldError{Field: "searchUrlTemplate", Err: err})
		}
		return template, nil
	}

	if strings.TrimSpace(sampleURL) == "" {
		return "", nil
	}
	return deriveTemplate(sampleURL, sampleTerm, "sampleSearchUrl", "sampleSearchTerm")
}

func deriveTemplate(sampleURL, sampleTerm, urlField, termField string) (string, error) {
	template, err := searchurl.Derive(sampleURL, sampleTerm)
	if err != nil {
		field := urlField
		if errors.Is(err, searchurl.ErrEmptySampleTerm) || errors.Is(err, searchurl.ErrTermNotFound) {
			field = termField
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidSearchTemplate, &FieldError{Field: field, Err: err})
	}
	return template, nil
}
