// Package web holds the server-rendered pages of the store directory.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"

	"github.com/storedir/store-directory/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page template names
const (
	PageIndex    = "index.html"
	PageDetail   = "detail.html"
	PageForm     = "form.html"
	PageNotFound = "not_found.html"
)

var pageNames = []string{PageIndex, PageDetail, PageForm, PageNotFound}

// Renderer executes page templates inside the shared layout
type Renderer struct {
	appName string
	pages   map[string]*template.Template
}

// NewRenderer parses every page with the layout
func NewRenderer(appName string) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{appName: appName, pages: pages}, nil
}

// Render writes page with status. The page is rendered to a buffer first so
// a template error never leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data PageData) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %s", page)
	}
	data.setAppName(r.appName)

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// StaticHandler serves the embedded stylesheet under /static/
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// PageData is implemented by every page model
type PageData interface {
	setAppName(name string)
}

// Layout carries fields shared by all pages
type Layout struct {
	AppName string
	Title   string
}

func (l *Layout) setAppName(name string) {
	l.AppName = name
}

type IndexPage struct {
	Layout
	Stores     []domain.StoreDTO
	Search     string
	Total      int64
	Page       int
	TotalPages int
}

// PrevURL links the previous page, or is empty on the first page
func (p *IndexPage) PrevURL() string {
	if p.Page <= 1 {
		return ""
	}
	return p.pageURL(max(min(p.Page-1, p.TotalPages), 1))
}

// NextURL links the next page, or is empty on the last page
func (p *IndexPage) NextURL() string {
	if p.Page >= p.TotalPages {
		return ""
	}
	return p.pageURL(p.Page + 1)
}

func (p *IndexPage) pageURL(page int) string {
	q := url.Values{}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	q.Set("page", strconv.Itoa(page))
	return "/?" + q.Encode()
}

type DetailPage struct {
	Layout
	Store domain.StoreDTO
	Query string
	Error string
}

// StoreForm holds submitted form values so they survive a failed submit
type StoreForm struct {
	Name              string
	Location          string
	Address           string
	URL               string
	SearchURLTemplate string
	SampleSearchURL   string
	SampleSearchTerm  string
}

// FormFromStore prefills the edit form
func FormFromStore(store *domain.StoreDTO) StoreForm {
	return StoreForm{
		Name:              store.Name,
		Location:          store.Location,
		Address:           store.Address,
		URL:               store.URL,
		SearchURLTemplate: store.SearchURLTemplate,
	}
}

type FormPage struct {
	Layout
	// Action is the form's POST target
	Action string
	// StoreID is zero for a new store
	StoreID uint
	Form    StoreForm
	Errors  map[string]string
	Error   string
}

type NotFoundPage struct {
	Layout
	Message string
}
