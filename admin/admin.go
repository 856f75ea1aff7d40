// Package admin renders the plugin-install admin screens.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/GoCodeAlone/wpadmin/install"
	"github.com/GoCodeAlone/wpadmin/plugin"
	"github.com/GoCodeAlone/wpadmin/pluginsapi"
)

// Directory is the remote plugin directory.
type Directory interface {
	Query(ctx context.Context, args pluginsapi.Args) (*pluginsapi.QueryResult, error)
	Information(ctx context.Context, slug string, fields map[string]bool) (*pluginsapi.Plugin, error)
}

// Classifier computes the install status of a directory plugin.
type Classifier interface {
	Classify(ctx context.Context, p *pluginsapi.Plugin, req install.Request) install.Result
}

// Tags returns the directory's popular tags.
type Tags interface {
	PopularTags(ctx context.Context, args pluginsapi.Args) (pluginsapi.Tags, error)
}

// Installed lists the plugins on this site.
type Installed interface {
	All() ([]plugin.Record, error)
}

// Nonces issues confirmation tokens for form actions.
type Nonces interface {
	Token(ctx context.Context, action string) string
}

// Viewer is the signed-in user as the screens see them.
type Viewer struct {
	Name       string
	Favorites  string // directory username for the favorites tab
	CanInstall bool
	CanUpdate  bool
}

// Screens serves plugin-install.php.
type Screens struct {
	Directory  Directory
	Classifier Classifier
	Tags       Tags
	Installed  Installed
	Nonces     Nonces
	Renderer   *Renderer

	// Viewer extracts the current user from the request.
	Viewer func(r *http.Request) Viewer

	// AdminURL is the base of admin links, e.g. "/wp-admin/".
	AdminURL    string
	CoreVersion string
	Locale      language.Tag
	Logger      *slog.Logger
}

const (
	tabFeatured    = "featured"
	tabPopular     = "popular"
	tabRecommended = "recommended"
	tabFavorites   = "favorites"
	tabNew         = "new"
	tabBeta        = "beta"
	tabSearch      = "search"
	tabUpload      = "upload"
	tabInformation = "plugin-information"
)

const noPermission = "You do not have sufficient permissions to install plugins on this site."

func (s *Screens) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Screens) printer() *message.Printer {
	return message.NewPrinter(s.Locale)
}

func (s *Screens) adminURL(path string) string {
	base := s.AdminURL
	if base == "" {
		base = "/wp-admin/"
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}

// ServeHTTP dispatches on the tab query parameter.
func (s *Screens) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var viewer Viewer
	if s.Viewer != nil {
		viewer = s.Viewer(r)
	}
	if !viewer.CanInstall {
		s.Renderer.Error(w, http.StatusForbidden, ErrorPage{Message: noPermission})
		return
	}

	tab := r.URL.Query().Get("tab")
	if tab == "" {
		tab = tabFeatured
	}

	switch tab {
	case tabInformation:
		s.information(w, r, viewer)
	case tabFeatured, tabPopular, tabRecommended, tabFavorites, tabNew, tabBeta, tabSearch, tabUpload:
		s.install(w, r, tab, viewer)
	default:
		s.Renderer.Error(w, http.StatusNotFound, ErrorPage{Message: "Unknown plugin installer tab."})
	}
}

func (s *Screens) install(w http.ResponseWriter, r *http.Request, tab string, viewer Viewer) {
	ctx := r.Context()
	q := r.URL.Query()
	page := InstallPage{
		AdminURL:  s.adminURL(""),
		UploadURL: s.adminURL("plugin-install.php?tab=upload"),
		Tab:       tab,
		Tabs:      s.tabs(tab),
	}

	switch tab {
	case tabFeatured:
		page.Dashboard = true
	case tabSearch:
		page.Search = &SearchForm{Type: searchType(q.Get("type")), Term: q.Get("s")}
	case tabUpload:
		page.Upload = &UploadForm{
			Action: s.adminURL("update.php?action=upload-plugin"),
			Nonce:  s.Nonces.Token(ctx, "plugin-upload"),
		}
	case tabFavorites:
		user := q.Get("user")
		if user == "" {
			user = viewer.Favorites
		}
		page.Favorites = &FavoritesForm{User: user}
	case tabRecommended:
		page.Recommended = true
	}

	if tab != tabUpload {
		args, ok := s.queryArgs(r, tab, viewer)
		if ok {
			res, err := s.Directory.Query(ctx, args)
			if err != nil {
				s.apiError(w, err, true)
				return
			}
			if res.Info.Pages > 0 && args.Page > res.Info.Pages {
				u := *r.URL
				vals := u.Query()
				vals.Set("paged", strconv.Itoa(res.Info.Pages))
				u.RawQuery = vals.Encode()
				http.Redirect(w, r, u.String(), http.StatusFound)
				return
			}
			page.Table = s.table(r, res, args.Page, viewer)
		}
	}

	if page.Dashboard {
		tags, err := s.Tags.PopularTags(ctx, pluginsapi.Args{})
		if err != nil {
			page.TagsError = errorMessage(err)
		} else {
			page.TagCloud = BuildTagCloud(tags, s.printer(), func(name string) string {
				return s.adminURL("plugin-install.php?tab=search&type=tag&s=" + url.QueryEscape(name))
			})
		}
	}

	s.Renderer.Install(w, page)
}

func (s *Screens) tabs(current string) []TabLink {
	var tabs []TabLink
	if current == tabSearch {
		tabs = append(tabs, TabLink{Name: tabSearch, Label: "Search Results"})
	}
	if current == tabBeta || strings.Contains(s.CoreVersion, "-") {
		tabs = append(tabs, TabLink{Name: tabBeta, Label: "Beta Testing"})
	}
	tabs = append(tabs,
		TabLink{Name: tabFeatured, Label: "Featured"},
		TabLink{Name: tabPopular, Label: "Popular"},
		TabLink{Name: tabRecommended, Label: "Recommended"},
		TabLink{Name: tabFavorites, Label: "Favorites"},
	)
	for i := range tabs {
		tabs[i].URL = s.adminURL("plugin-install.php?tab=" + tabs[i].Name)
		tabs[i].Current = tabs[i].Name == current
	}
	return tabs
}

// queryArgs builds the query_plugins arguments for a list tab. ok is false
// when the tab has nothing to list.
func (s *Screens) queryArgs(r *http.Request, tab string, viewer Viewer) (args pluginsapi.Args, ok bool) {
	q := r.URL.Query()
	args.Page = 1
	if n, err := strconv.Atoi(q.Get("paged")); err == nil && n > 1 {
		args.Page = n
	}

	switch tab {
	case tabSearch:
		term := q.Get("s")
		switch searchType(q.Get("type")) {
		case "tag":
			args.Tag = titleSlug(term)
		case "author":
			args.Author = term
		default:
			args.Search = term
		}
	case tabFavorites:
		user := q.Get("user")
		if user == "" {
			user = viewer.Favorites
		}
		if user == "" {
			return args, false
		}
		args.Browse = tabFavorites
		args.User = user
	case tabRecommended:
		args.Browse = tabRecommended
		args.Installed = s.installedSlugs()
	default:
		args.Browse = tab
	}
	return args, true
}

func (s *Screens) installedSlugs() []string {
	if s.Installed == nil {
		return nil
	}
	records, err := s.Installed.All()
	if err != nil {
		s.logger().Warn("list installed plugins", slog.Any("err", err))
		return nil
	}
	seen := make(map[string]bool, len(records))
	var slugs []string
	for _, rec := range records {
		if !seen[rec.Slug] {
			seen[rec.Slug] = true
			slugs = append(slugs, rec.Slug)
		}
	}
	return slugs
}

func (s *Screens) request(r *http.Request, viewer Viewer) install.Request {
	return install.Request{
		From:       r.URL.Query().Get("from"),
		CanInstall: viewer.CanInstall,
		CanUpdate:  viewer.CanUpdate,
	}
}

func (s *Screens) apiError(w http.ResponseWriter, err error, retry bool) {
	s.logger().Error("plugin directory request failed", slog.Any("err", err))
	page := ErrorPage{Message: errorMessage(err), Retry: retry}
	var apiErr *pluginsapi.APIError
	if errors.As(err, &apiErr) {
		page.SupportURL = pluginsapi.SupportURL
	}
	s.Renderer.Error(w, http.StatusBadGateway, page)
}

func errorMessage(err error) string {
	var apiErr *pluginsapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return pluginsapi.UnexpectedErrorMessage
}

func searchType(t string) string {
	switch t {
	case "author", "tag":
		return t
	}
	return "term"
}

// titleSlug lowercases s and joins its words with dashes, as tag slugs are.
func titleSlug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r > 127:
			b.WriteRune(r)
			dash = false
		case r == ' ' || r == '-' || r == '.':
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
