package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/storedir/store-directory/internal/domain"
	"github.com/storedir/store-directory/internal/repository"
	"github.com/storedir/store-directory/internal/service"
	"github.com/storedir/store-directory/internal/web"
	"go.uber.org/zap"
)

// PageHandler serves the HTML pages
type PageHandler struct {
	storeService *service.StoreService
	renderer     *web.Renderer
	logger       *zap.Logger
}

func NewPageHandler(storeService *service.StoreService, renderer *web.Renderer, logger *zap.Logger) *PageHandler {
	return &PageHandler{
		storeService: storeService,
		renderer:     renderer,
		logger:       logger,
	}
}

// indexPageSize is the number of stores per HTML index page
const indexPageSize = 50

// Index lists stores one page at a time, optionally filtered by ?search=
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	result, err := h.storeService.List(r.Context(), page, indexPageSize,
		&repository.StoreFilters{Search: search}, repository.DefaultSortConfig())
	if err != nil {
		h.serverError(w, err, "list stores")
		return
	}

	stores, _ := result.Data.([]domain.StoreDTO)
	h.render(w, http.StatusOK, web.PageIndex, &web.IndexPage{
		Stores:     stores,
		Search:     search,
		Total:      result.Total,
		Page:       result.Page,
		TotalPages: result.TotalPages,
	})
}

func (h *PageHandler) Detail(w http.ResponseWriter, r *http.Request) {
	store, ok := h.loadStore(w, r)
	if !ok {
		return
	}
	h.render(w, http.StatusOK, web.PageDetail, &web.DetailPage{
		Layout: web.Layout{Title: store.Name},
		Store:  *store,
	})
}

func (h *PageHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, web.PageForm, &web.FormPage{
		Layout: web.Layout{Title: "Add store"},
		Action: "/stores",
	})
}

func (h *PageHandler) Create(w http.ResponseWriter, r *http.Request) {
	form, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	page := &web.FormPage{
		Layout: web.Layout{Title: "Add store"},
		Action: "/stores",
		Form:   form,
	}

	req := domain.CreateStoreRequest{
		Name:              form.Name,
		Location:          form.Location,
		Address:           form.Address,
		URL:               form.URL,
		SearchURLTemplate: form.SearchURLTemplate,
		SampleSearchURL:   form.SampleSearchURL,
		SampleSearchTerm:  form.SampleSearchTerm,
	}
	if err := validate.Struct(req); err != nil {
		page.Errors = validationErrors(err)
		h.render(w, http.StatusUnprocessableEntity, web.PageForm, page)
		return
	}

	store, err := h.storeService.Create(r.Context(), &req)
	if err != nil {
		h.formError(w, page, err, "create store")
		return
	}

	http.Redirect(w, r, storePath(store.ID), http.StatusSeeOther)
}

func (h *PageHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	store, ok := h.loadStore(w, r)
	if !ok {
		return
	}
	h.render(w, http.StatusOK, web.PageForm, &web.FormPage{
		Layout:  web.Layout{Title: "Edit " + store.Name},
		Action:  storePath(store.ID),
		StoreID: store.ID,
		Form:    web.FormFromStore(store),
	})
}

func (h *PageHandler) Update(w http.ResponseWriter, r *http.Request) {
	store, ok := h.loadStore(w, r)
	if !ok {
		return
	}
	form, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	page := &web.FormPage{
		Layout:  web.Layout{Title: "Edit " + store.Name},
		Action:  storePath(store.ID),
		StoreID: store.ID,
		Form:    form,
	}

	req := domain.UpdateStoreRequest{
		Name:              form.Name,
		Location:          form.Location,
		Address:           form.Address,
		URL:               form.URL,
		SearchURLTemplate: form.SearchURLTemplate,
		SampleSearchURL:   form.SampleSearchURL,
		SampleSearchTerm:  form.SampleSearchTerm,
	}
	if err := validate.Struct(req); err != nil {
		page.Errors = validationErrors(err)
		h.render(w, http.StatusUnprocessableEntity, web.PageForm, page)
		return
	}

	updated, err := h.storeService.Update(r.Context(), store.ID, &req)
	if err != nil {
		if errors.Is(err, service.ErrStoreNotFound) {
			h.notFound(w)
			return
		}
		h.formError(w, page, err, "update store")
		return
	}

	http.Redirect(w, r, storePath(updated.ID), http.StatusSeeOther)
}

func (h *PageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseStoreID(r)
	if err != nil {
		h.notFound(w)
		return
	}
	if err := h.storeService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrStoreNotFound) {
			h.notFound(w)
			return
		}
		h.serverError(w, err, "delete store")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Search redirects the browser to the store's own search results
func (h *PageHandler) Search(w http.ResponseWriter, r *http.Request) {
	store, ok := h.loadStore(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")

	result, err := h.storeService.BuildSearchURL(r.Context(), store.ID, query)
	if err != nil {
		page := &web.DetailPage{
			Layout: web.Layout{Title: store.Name},
			Store:  *store,
			Query:  query,
		}
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			page.Error = "Enter an item to search for."
			h.render(w, http.StatusBadRequest, web.PageDetail, page)
		case errors.Is(err, service.ErrSearchNotConfigured), errors.Is(err, service.ErrInvalidSearchTemplate):
			page.Error = "Search is not configured for this store."
			h.render(w, http.StatusUnprocessableEntity, web.PageDetail, page)
		default:
			h.serverError(w, err, "build search URL")
		}
		return
	}

	http.Redirect(w, r, result.URL, http.StatusFound)
}

// NotFound renders the 404 page for unknown routes
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusNotFound, web.PageNotFound, &web.NotFoundPage{
		Layout:  web.Layout{Title: "Not found"},
		Message: "The page you requested does not exist.",
	})
}

func (h *PageHandler) loadStore(w http.ResponseWriter, r *http.Request) (*domain.StoreDTO, bool) {
	id, err := parseStoreID(r)
	if err != nil {
		h.notFound(w)
		return nil, false
	}
	store, err := h.storeService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrStoreNotFound) {
			h.notFound(w)
			return nil, false
		}
		h.serverError(w, err, "get store")
		return nil, false
	}
	return store, true
}

func (h *PageHandler) parseForm(w http.ResponseWriter, r *http.Request) (web.StoreForm, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return web.StoreForm{}, false
	}
	return web.StoreForm{
		Name:              strings.TrimSpace(r.PostForm.Get("name")),
		Location:          strings.TrimSpace(r.PostForm.Get("location")),
		Address:           strings.TrimSpace(r.PostForm.Get("address")),
		URL:               strings.TrimSpace(r.PostForm.Get("url")),
		SearchURLTemplate: strings.TrimSpace(r.PostForm.Get("searchUrlTemplate")),
		SampleSearchURL:   strings.TrimSpace(r.PostForm.Get("sampleSearchUrl")),
		SampleSearchTerm:  strings.TrimSpace(r.PostForm.Get("sampleSearchTerm")),
	}, true
}

// formError re-renders the form for errors the user can fix
func (h *PageHandler) formError(w http.ResponseWriter, page *web.FormPage, err error, action string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidSearchTemplate):
		page.Errors = validationErrors(err)
		h.render(w, http.StatusUnprocessableEntity, web.PageForm, page)
	case errors.Is(err, service.ErrStoreConflict):
		page.Error = "A store with this name and location already exists."
		h.render(w, http.StatusConflict, web.PageForm, page)
	default:
		h.serverError(w, err, action)
	}
}

func (h *PageHandler) notFound(w http.ResponseWriter) {
	h.render(w, http.StatusNotFound, web.PageNotFound, &web.NotFoundPage{
		Layout:  web.Layout{Title: "Not found"},
		Message: "Store not found.",
	})
}

func (h *PageHandler) serverError(w http.ResponseWriter, err error, action string) {
	h.logger.Error("failed to "+action, zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *PageHandler) render(w http.ResponseWriter, status int, page string, data web.PageData) {
	if err := h.renderer.Render(w, status, page, data); err != nil {
		h.serverError(w, err, "render page")
	}
}

func storePath(id uint) string {
	return "/stores/" + strconv.FormatUint(uint64(id), 10)
}
