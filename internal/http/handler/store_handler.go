package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/storedir/store-directory/internal/domain"
	"github.com/storedir/store-directory/internal/repository"
	"github.com/storedir/store-directory/internal/service"
	"go.uber.org/zap"
)

type StoreHandler struct {
	storeService *service.StoreService
	logger       *zap.Logger
}

func NewStoreHandler(storeService *service.StoreService, logger *zap.Logger) *StoreHandler {
	return &StoreHandler{
		storeService: storeService,
		logger:       logger,
	}
}

// List godoc
// @Summary List stores
// @Description Get paginated list of stores with optional filters
// @Tags Stores
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search name, location and address"
// @Param location query string false "Filter by exact location"
// @Param sortBy query string false "Sort field" Enums(name, location, createdAt, updatedAt)
// @Param sortOrder query string false "Sort direction" Enums(asc, desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.StoreDTO}
// @Failure 500 {object} domain.APIError
// @Router /stores [get]
func (h *StoreHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("pageSize"))

	filters := &repository.StoreFilters{
		Search:   query.Get("search"),
		Location: query.Get("location"),
	}

	sortCfg := repository.DefaultSortConfig()
	if sortBy := query.Get("sortBy"); sortBy != "" {
		sortCfg.Field = sortBy
	}
	sortCfg.Order = repository.ParseSortOrder(query.Get("sortOrder"))

	result, err := h.storeService.List(r.Context(), page, pageSize, filters, sortCfg)
	if err != nil {
		respondServiceError(w, h.logger, err, "list stores")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get store by ID
// @Tags Stores
// @Produce json
// @Param id path int true "Store ID"
// @Success 200 {object} domain.StoreDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /stores/{id} [get]
func (h *StoreHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseStoreID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid store ID")
		return
	}

	store, err := h.storeService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get store")
		return
	}

	respondJSON(w, http.StatusOK, store)
}

// Create godoc
// @Summary Create store
// @Description Create a store. The search template may be given directly or derived from a sample search URL and term.
// @Tags Stores
// @Accept json
// @Produce json
// @Param request body domain.CreateStoreRequest true "Store data"
// @Success 201 {object} domain.StoreDTO
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Duplicate name and location"
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stores [post]
func (h *StoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	store, err := h.storeService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create store")
		return
	}

	w.Header().Set("Location", "/api/v1/stores/"+strconv.FormatUint(uint64(store.ID), 10))
	respondJSON(w, http.StatusCreated, store)
}

// Update godoc
// @Summary Update store
// @Description Replace every editable field of a store. Omitting the template and sample clears search.
// @Tags Stores
// @Accept json
// @Produce json
// @Param id path int true "Store ID"
// @Param request body domain.UpdateStoreRequest true "Store data"
// @Success 200 {object} domain.StoreDTO
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Duplicate name and location"
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stores/{id} [put]
func (h *StoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseStoreID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid store ID")
		return
	}

	var req domain.UpdateStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	store, err := h.storeService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update store")
		return
	}

	respondJSON(w, http.StatusOK, store)
}

// Delete godoc
// @Summary Delete store
// @Tags Stores
// @Param id path int true "Store ID"
// @Success 204
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stores/{id} [delete]
func (h *StoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseStoreID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid store ID")
		return
	}

	if err := h.storeService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete store")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Search godoc
// @Summary Build a store search URL
// @Description Expand the store's search template with a query
// @Tags Stores
// @Produce json
// @Param id path int true "Store ID"
// @Param q query string true "Item to search for"
// @Success 200 {object} domain.StoreSearchDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 422 {object} domain.APIError "Store has no search template"
// @Router /stores/{id}/search [get]
func (h *StoreHandler) Search(w http.ResponseWriter, r *http.Request) {
	id, err := parseStoreID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid store ID")
		return
	}

	result, err := h.storeService.BuildSearchURL(r.Context(), id, r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, h.logger, err, "build search URL")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// DeriveTemplate godoc
// @Summary Derive a search template
// @Description Turn a search results URL and the term searched for into a template containing {query}
// @Tags Stores
// @Accept json
// @Produce json
// @Param request body domain.DeriveSearchTemplateRequest true "Sample search"
// @Success 200 {object} domain.DeriveSearchTemplateResponse
// @Failure 400 {object} domain.APIError
// @Router /stores/search-template/derive [post]
func (h *StoreHandler) DeriveTemplate(w http.ResponseWriter, r *http.Request) {
	var req domain.DeriveSearchTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.SampleURL = strings.TrimSpace(req.SampleURL)

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	result, err := h.storeService.DeriveSearchTemplate(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "derive search template")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Export godoc
// @Summary Export the store directory
// @Description Snapshot of every store ordered by ID
// @Tags Stores
// @Produce json
// @Success 200 {object} domain.StoreExportDTO
// @Failure 500 {object} domain.APIError
// @Router /stores/export [get]
func (h *StoreHandler) Export(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.storeService.Export(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "export stores")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="stores.json"`)
	respondJSON(w, http.StatusOK, snapshot)
}

// LatestExport godoc
// @Summary Download the latest stored export
// @Description Newest snapshot written by the periodic export job
// @Tags Stores
// @Produce json
// @Success 200 {object} domain.StoreExportDTO
// @Failure 404 {object} domain.APIError
// @Failure 503 {object} domain.APIError
// @Router /stores/exports/latest [get]
func (h *StoreHandler) LatestExport(w http.ResponseWriter, r *http.Request) {
	key, body, err := h.storeService.LatestExport(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "load latest export")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, path.Base(key)))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("failed to stream export", zap.String("storage_path", key), zap.Error(err))
	}
}
