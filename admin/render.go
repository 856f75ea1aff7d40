package admin

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/GoCodeAlone/wpadmin/pluginsapi"
)

// TabLink is one entry of the installer's tab bar.
type TabLink struct {
	Name    string
	Label   string
	URL     string
	Current bool
}

// SearchForm is the state of the search box.
type SearchForm struct {
	Type string // term, author or tag
	Term string
}

// UploadForm posts a plugin zip to update.php.
type UploadForm struct {
	Action string
	Nonce  string
}

// FavoritesForm asks for a directory username.
type FavoritesForm struct {
	User string
}

// InstallPage is plugin-install.php for every tab except plugin-information.
type InstallPage struct {
	AdminURL    string
	UploadURL   string
	Tab         string
	Tabs        []TabLink
	Dashboard   bool
	Recommended bool
	Search      *SearchForm
	Upload      *UploadForm
	Favorites   *FavoritesForm
	Table       *Table
	TagCloud    []CloudTag
	TagsError   string
}

// ErrorPage reports a failure.
type ErrorPage struct {
	Message    string
	SupportURL string
	Retry      bool
}

// MessagePage reports the outcome of an action.
type MessagePage struct {
	Title   string
	Message string
	Back    string
}

// LoginPage is the sign-in form.
type LoginPage struct {
	Action     string
	User       string
	RedirectTo string
	Error      string
}

// Renderer executes the admin templates.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

const (
	pageInstall     = "install"
	pageInformation = "information"
	pageError       = "error"
	pageMessage     = "message"
	pageLogin       = "login"
)

// NewRenderer parses all templates.
func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sets := map[string][]string{
		pageInstall:     {tmplLayout, tmplStars, tmplTable, tmplInstall},
		pageInformation: {tmplIframeLayout, tmplStars, tmplInformation},
		pageError:       {tmplLayout, tmplError},
		pageMessage:     {tmplLayout, tmplMessage},
		pageLogin:       {tmplLayout, tmplLogin},
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(sets)), logger: logger}
	for name, sources := range sets {
		t := template.New(name)
		for _, src := range sources {
			if _, err := t.Parse(src); err != nil {
				return nil, fmt.Errorf("parse %s template: %w", name, err)
			}
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *Renderer) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := r.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error("render admin page", slog.String("page", name), slog.Any("err", err))
		http.Error(w, pluginsapi.UnexpectedErrorMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Install renders a plugin-install.php tab.
func (r *Renderer) Install(w http.ResponseWriter, page InstallPage) {
	r.render(w, http.StatusOK, pageInstall, page)
}

// Information renders the plugin-information iframe.
func (r *Renderer) Information(w http.ResponseWriter, page InfoPage) {
	r.render(w, http.StatusOK, pageInformation, page)
}

// Error renders an error page with status.
func (r *Renderer) Error(w http.ResponseWriter, status int, page ErrorPage) {
	r.render(w, status, pageError, page)
}

// Message renders the outcome of an action.
func (r *Renderer) Message(w http.ResponseWriter, status int, page MessagePage) {
	r.render(w, status, pageMessage, page)
}

// Login renders the sign-in form.
func (r *Renderer) Login(w http.ResponseWriter, status int, page LoginPage) {
	r.render(w, status, pageLogin, page)
}
