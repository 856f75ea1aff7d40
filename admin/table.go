package admin

import (
	"html/template"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/text/message"

	"github.com/GoCodeAlone/wpadmin/install"
	"github.com/GoCodeAlone/wpadmin/pluginsapi"
)

// Stars is a five-star rating display.
type Stars struct {
	Icons []string // "star-full", "star-half" or "star-empty"
	Title string
}

// StarRating converts a percent rating into star icons.
func StarRating(percent float64, count int, p *message.Printer) Stars {
	rating := math.Round(percent/10) / 2
	full := int(math.Floor(rating))
	half := int(math.Ceil(rating - float64(full)))
	empty := max(5-full-half, 0)

	icons := make([]string, 0, 5)
	for i := 0; i < full; i++ {
		icons = append(icons, "star-full")
	}
	for i := 0; i < half; i++ {
		icons = append(icons, "star-half")
	}
	for i := 0; i < empty; i++ {
		icons = append(icons, "star-empty")
	}

	title := p.Sprintf("%.1f rating", rating)
	if count > 0 {
		title = p.Sprintf("%.1f rating based on %d ratings", rating, count)
	}
	return Stars{Icons: icons, Title: title}
}

// Action is the button shown for a plugin's install status.
type Action struct {
	Label    string
	URL      string
	Title    string
	Disabled bool
}

// rowAction is the list-table action for res. It is nil when the user has
// nothing to do.
func rowAction(res install.Result, name string) *Action {
	switch res.Status {
	case install.StatusInstall:
		if res.URL != "" {
			return &Action{Label: "Install Now", URL: res.URL, Title: "Install " + name + " now"}
		}
	case install.StatusUpdateAvailable:
		if res.URL != "" {
			return &Action{Label: "Update Now", URL: res.URL, Title: "Update " + name + " now"}
		}
	case install.StatusLatestInstalled, install.StatusNewerInstalled:
		return &Action{Label: "Installed", Title: "This plugin is already installed and is up to date", Disabled: true}
	}
	return nil
}

// footerAction is the plugin-information footer button for res.
func footerAction(res install.Result) *Action {
	switch res.Status {
	case install.StatusInstall:
		if res.URL != "" {
			return &Action{Label: "Install Now", URL: res.URL}
		}
	case install.StatusUpdateAvailable:
		if res.URL != "" {
			return &Action{Label: "Install Update Now", URL: res.URL}
		}
	case install.StatusNewerInstalled:
		return &Action{Label: "Newer Version (" + res.Version + ") Installed", Disabled: true}
	case install.StatusLatestInstalled:
		return &Action{Label: "Latest Version Installed", Disabled: true}
	}
	return nil
}

// Row is one plugin in the list table.
type Row struct {
	Name        string
	Slug        string
	Version     string
	Author      template.HTML
	Description string
	DetailsURL  string
	Stars       Stars
	NumRatings  string
	Action      *Action
}

// Table is a page of query results.
type Table struct {
	Rows    []Row
	Items   string
	Page    int
	Pages   int
	PrevURL string
	NextURL string
}

func (s *Screens) table(r *http.Request, res *pluginsapi.QueryResult, page int, viewer Viewer) *Table {
	p := s.printer()
	req := s.request(r, viewer)

	t := &Table{
		Page:  page,
		Pages: res.Info.Pages,
		Items: p.Sprintf("%d items", res.Info.Results),
	}
	if res.Info.Results == 1 {
		t.Items = "1 item"
	}
	if page > 1 {
		t.PrevURL = pageURL(r, page-1)
	}
	if page < res.Info.Pages {
		t.NextURL = pageURL(r, page+1)
	}

	for i := range res.Plugins {
		plug := &res.Plugins[i]
		status := s.Classifier.Classify(r.Context(), plug, req)
		t.Rows = append(t.Rows, Row{
			Name:        plug.Name,
			Slug:        plug.Slug,
			Version:     plug.Version,
			Author:      sanitizeAuthor(plug.Author),
			Description: plug.ShortDescription,
			DetailsURL: s.adminURL("plugin-install.php?tab=plugin-information&plugin=" +
				url.QueryEscape(plug.Slug) + "&TB_iframe=true&width=600&height=550"),
			Stars:      StarRating(plug.Rating, plug.NumRatings, p),
			NumRatings: p.Sprintf("%d", plug.NumRatings),
			Action:     rowAction(status, plug.Name),
		})
	}
	return t
}

func pageURL(r *http.Request, page int) string {
	vals := r.URL.Query()
	vals.Set("paged", strconv.Itoa(page))
	return "?" + vals.Encode()
}
