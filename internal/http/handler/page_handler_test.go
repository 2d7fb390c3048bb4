package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/storedir/store-directory/internal/domain"
	"github.com/storedir/store-directory/internal/repository"
	"github.com/storedir/store-directory/internal/service"
	"github.com/storedir/store-directory/internal/testutil"
	"github.com/storedir/store-directory/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupPages(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := service.NewStoreService(repository.NewStoreRepository(db), nil, zap.NewNop())
	renderer, err := web.NewRenderer("Store Directory")
	require.NoError(t, err)
	h := NewPageHandler(svc, renderer, zap.NewNop())

	r := chi.NewRouter()
	r.NotFound(h.NotFound)
	r.Get("/", h.Index)
	r.Get("/stores/new", h.NewForm)
	r.Post("/stores", h.Create)
	r.Get("/stores/{id}", h.Detail)
	r.Post("/stores/{id}", h.Update)
	r.Get("/stores/{id}/edit", h.EditForm)
	r.Post("/stores/{id}/delete", h.Delete)
	r.Get("/stores/{id}/search", h.Search)
	return r, db
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func postForm(h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPageHandler_Index(t *testing.T) {
	h, db := setupPages(t)
	testutil.CreateTestStore(t, db, "Costco", "Omaha, NE")
	testutil.CreateTestStore(t, db, "Target", "Papillion, NE")

	rec := get(h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Costco")
	assert.Contains(t, rec.Body.String(), "Target")

	rec = get(h, "/?search=papillion")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Costco")
	assert.Contains(t, rec.Body.String(), "Target")
}

func TestPageHandler_DetailAndNotFound(t *testing.T) {
	h, db := setupPages(t)
	testutil.CreateTestStore(t, db, "Costco", "Omaha, NE")

	rec := get(h, "/stores/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Omaha, NE")

	assert.Equal(t, http.StatusNotFound, get(h, "/stores/99").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/stores/abc").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/nowhere").Code)
}

func TestPageHandler_Create(t *testing.T) {
	h, db := setupPages(t)

	rec := get(h, "/stores/new")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/stores"`)

	rec = postForm(h, "/stores", url.Values{
		"name":             {"Best Buy"},
		"location":         {"La Vista, NE"},
		"sampleSearchUrl":  {"https://www.bestbuy.com/site/searchpage.jsp?st=laptop"},
		"sampleSearchTerm": {"laptop"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/stores/1", rec.Header().Get("Location"))

	var store domain.Store
	require.NoError(t, db.First(&store, 1).Error)
	assert.Equal(t, "https://www.bestbuy.com/site/searchpage.jsp?st={query}", store.SearchURLTemplate)

	t.Run("invalid form keeps values", func(t *testing.T) {
		rec := postForm(h, "/stores", url.Values{
			"location":          {"Omaha, NE"},
			"searchUrlTemplate": {"https://example.com/nothing"},
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `value="Omaha, NE"`)
		assert.Contains(t, body, "name is required")
		assert.Contains(t, body, "containing {query}")
	})

	t.Run("duplicate", func(t *testing.T) {
		rec := postForm(h, "/stores", url.Values{"name": {"best buy"}, "location": {"La Vista, NE"}})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "already exists")
	})
}

func TestPageHandler_EditAndDelete(t *testing.T) {
	h, db := setupPages(t)
	testutil.CreateTestStoreWithTemplate(t, db, "Target", "Papillion, NE", "https://www.target.com/s?searchTerm={query}")

	rec := get(h, "/stores/1/edit")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Papillion, NE"`)

	rec = postForm(h, "/stores/1", url.Values{
		"name":     {"Target"},
		"location": {"Papillion, NE"},
		"address":  {"10202 S 15th St"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	var store domain.Store
	require.NoError(t, db.First(&store, 1).Error)
	assert.Equal(t, "10202 S 15th St", store.Address)
	assert.Empty(t, store.SearchURLTemplate)

	rec = postForm(h, "/stores/1/delete", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, postForm(h, "/stores/1/delete", url.Values{}).Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/stores/1/edit").Code)
}

func TestPageHandler_Search(t *testing.T) {
	h, db := setupPages(t)
	testutil.CreateTestStoreWithTemplate(t, db, "Costco", "Omaha, NE", "https://www.costco.com/CatalogSearch?dept=All&keyword={query}")
	testutil.CreateTestStore(t, db, "Corner Shop", "Omaha, NE")

	rec := get(h, "/stores/1/search?q=paper+towels")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://www.costco.com/CatalogSearch?dept=All&keyword=paper+towels", rec.Header().Get("Location"))

	rec = get(h, "/stores/1/search?q=")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enter an item")

	rec = get(h, "/stores/2/search?q=tv")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPageHandler_IndexPagination(t *testing.T) {
	h, db := setupPages(t)

	stores := make([]domain.Store, 0, 201)
	for i := 1; i <= 201; i++ {
		stores = append(stores, domain.Store{Name: fmt.Sprintf("Store %03d", i), Location: "Omaha, NE"})
	}
	require.NoError(t, db.CreateInBatches(stores, 100).Error)

	rec := get(h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Store 001")
	assert.Contains(t, body, "Store 050")
	assert.NotContains(t, body, "Store 051")
	assert.Contains(t, body, "201 store(s), page 1 of 5")
	assert.Contains(t, body, `rel="next" href="/?page=2"`)
	assert.NotContains(t, body, `rel="prev"`)

	rec = get(h, "/?page=5")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "Store 201")
	assert.NotContains(t, body, "Store 200")
	assert.Contains(t, body, `rel="prev" href="/?page=4"`)
	assert.NotContains(t, body, `rel="next"`)

	rec = get(h, "/?search=store&page=2")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "Store 051")
	assert.Contains(t, body, `href="/?page=1&amp;search=store"`)
	assert.Contains(t, body, `href="/?page=3&amp;search=store"`)
}
