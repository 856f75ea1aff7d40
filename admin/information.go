package admin

import (
	"html/template"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/GoCodeAlone/wpadmin/install"
	"github.com/GoCodeAlone/wpadmin/pluginsapi"
)

var sectionTitles = map[string]string{
	"description":  "Description",
	"installation": "Installation",
	"faq":          "FAQ",
	"screenshots":  "Screenshots",
	"changelog":    "Changelog",
	"reviews":      "Reviews",
	"other_notes":  "Other Notes",
}

var titleCaser = cases.Title(language.English)

// SectionTitle is the tab label for a documentation section.
func SectionTitle(name string) string {
	if t, ok := sectionTitles[name]; ok {
		return t
	}
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}

// SectionTab is one documentation section and its tab.
type SectionTab struct {
	Name    string
	Title   string
	URL     string
	Current bool
	Content template.HTML
}

// Counter is one row of the per-star rating breakdown.
type Counter struct {
	Label string
	Title string
	URL   string
	Width string // bar width in px
	Count string
}

// Contributor links a contributor's profile.
type Contributor struct {
	Name    string
	Profile string
	Avatar  string
}

// FYI is the side panel of plugin facts.
type FYI struct {
	Version     template.HTML
	Author      template.HTML
	LastUpdated string
	UpdatedAt   string
	Requires    template.HTML
	Tested      template.HTML
	Downloaded  string
	PluginPage  string
	Homepage    string
	DonateLink  string
}

// InfoPage is the plugin-information iframe.
type InfoPage struct {
	Tab          string
	Name         string
	BannerLow    string
	BannerHigh   string
	Sections     []SectionTab
	FYI          FYI
	Rating       *Stars
	BasedOn      string
	Counters     []Counter
	Contributors []Contributor
	DonateLink   string // shown under the contributors
	Warning      template.HTML
	Footer       *Action
}

// WithBanner reports whether a header image is shown.
func (p InfoPage) WithBanner() bool { return p.BannerLow != "" || p.BannerHigh != "" }

var infoFields = map[string]bool{"banners": true, "reviews": true}

const (
	directoryPage = "https://wordpress.org/plugins/"
	reviewsPage   = "https://wordpress.org/support/view/plugin-reviews/"
	avatarURL     = "https://wordpress.org/grav-redirect.php?user="
)

const (
	untestedWarning     = "<strong>Warning:</strong> This plugin has <strong>not been tested</strong> with your current version of WordPress."
	incompatibleWarning = "<strong>Warning:</strong> This plugin has <strong>not been marked as compatible</strong> with your version of WordPress."
)

func (s *Screens) information(w http.ResponseWriter, r *http.Request, viewer Viewer) {
	q := r.URL.Query()
	slug := q.Get("plugin")
	if slug == "" {
		s.Renderer.Error(w, http.StatusBadRequest, ErrorPage{Message: "No plugin specified."})
		return
	}

	api, err := s.Directory.Information(r.Context(), slug, infoFields)
	if err != nil {
		s.apiError(w, err, false)
		return
	}

	page := BuildInfoPage(r, api, s.CoreVersion, s.printer())
	if api.DownloadLink != "" && (viewer.CanInstall || viewer.CanUpdate) {
		status := s.Classifier.Classify(r.Context(), api, s.request(r, viewer))
		page.Footer = footerAction(status)
	}
	s.Renderer.Information(w, page)
}

// BuildInfoPage lays out the plugin-information screen for api. The footer
// button is left to the caller.
func BuildInfoPage(r *http.Request, api *pluginsapi.Plugin, coreVersion string, p *message.Printer) InfoPage {
	q := r.URL.Query()
	page := InfoPage{
		Tab:  tabInformation,
		Name: api.Name,
	}

	if !api.Banners.Empty() {
		page.BannerLow, page.BannerHigh = api.Banners.Low, api.Banners.High
		if page.BannerLow == "" {
			page.BannerLow = page.BannerHigh
		}
		if page.BannerHigh == "" {
			page.BannerHigh = page.BannerLow
		}
	}

	current := q.Get("section")
	if _, ok := api.Sections.Get(current); !ok && len(api.Sections) > 0 {
		current = api.Sections[0].Name
	}
	hasRatings := api.RatingTotal() > 0
	base := directoryPage + api.Slug + "/"
	for _, sec := range api.Sections {
		if sec.Name == "reviews" && !hasRatings {
			continue
		}
		vals := r.URL.Query()
		vals.Set("tab", tabInformation)
		vals.Set("section", sec.Name)
		page.Sections = append(page.Sections, SectionTab{
			Name:    sec.Name,
			Title:   SectionTitle(sec.Name),
			URL:     "?" + vals.Encode(),
			Current: sec.Name == current,
			Content: sanitizeSection(sec.Content, base),
		})
	}

	page.FYI = FYI{
		Version:  sanitizeField(api.Version),
		Author:   sanitizeAuthor(api.Author),
		Requires: sanitizeField(api.Requires),
		Tested:   sanitizeField(api.Tested),
		Homepage: api.Homepage,
	}
	if api.LastUpdated != "" {
		page.FYI.UpdatedAt = api.LastUpdated
		page.FYI.LastUpdated = api.LastUpdated
		if t, ok := parseLastUpdated(api.LastUpdated); ok {
			page.FYI.LastUpdated = humanize.Time(t)
		}
	}
	if api.Downloaded > 0 {
		page.FYI.Downloaded = p.Sprintf("%d times", api.Downloaded)
		if api.Downloaded == 1 {
			page.FYI.Downloaded = "1 time"
		}
	}
	if api.Slug != "" && !api.External {
		page.FYI.PluginPage = base
	}
	if api.DonateLink != "" {
		if len(api.Contributors) == 0 {
			page.FYI.DonateLink = api.DonateLink
		} else {
			page.DonateLink = api.DonateLink
		}
	}

	if api.Rating > 0 {
		stars := StarRating(api.Rating, api.NumRatings, p)
		page.Rating = &stars
		page.BasedOn = p.Sprintf("(based on %d ratings)", api.NumRatings)
		if api.NumRatings == 1 {
			page.BasedOn = "(based on 1 rating)"
		}
	}
	if hasRatings {
		page.Counters = counters(api, p)
	}
	page.Contributors = contributors(api.Contributors)
	page.Warning = compatibilityWarning(coreVersion, api.Tested, api.Requires)
	return page
}

func counters(api *pluginsapi.Plugin, p *message.Printer) []Counter {
	keys := make([]string, 0, len(api.Ratings))
	for k := range api.Ratings {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.Atoi(keys[i])
		b, _ := strconv.Atoi(keys[j])
		return a > b
	})

	out := make([]Counter, 0, len(keys))
	for _, k := range keys {
		count := api.Ratings[k]
		share := 0.0
		if api.NumRatings > 0 {
			share = float64(count) / float64(api.NumRatings)
		}
		label, title := k+" stars", "Click to see reviews that provided a rating of "+k+" stars"
		if k == "1" {
			label, title = "1 star", "Click to see reviews that provided a rating of 1 star"
		}
		out = append(out, Counter{
			Label: label,
			Title: title,
			URL:   reviewsPage + api.Slug + "?filter=" + k,
			Width: strconv.FormatFloat(92*share, 'f', -1, 64),
			Count: p.Sprintf("%d", count),
		})
	}
	return out
}

var (
	profileUser = regexp.MustCompile(`^.+/([^/]+)/?$`)
	unsafeUser  = regexp.MustCompile(`[^a-zA-Z0-9 _.\-@]`)
)

func contributors(m pluginsapi.Map[string]) []Contributor {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Contributor
	for _, name := range names {
		profile := m[name]
		if name == "" && profile == "" {
			continue
		}
		if name == "" {
			name = profileUser.ReplaceAllString(profile, "$1")
		}
		name = unsafeUser.ReplaceAllString(name, "")
		out = append(out, Contributor{
			Name:    name,
			Profile: profile,
			Avatar:  avatarURL + name + "&s=36",
		})
	}
	return out
}

// compatibilityWarning compares the site's core version, cut to the length
// of the plugin's tested and required versions.
func compatibilityWarning(core, tested, requires string) template.HTML {
	if tested != "" && install.CompareVersions(prefix(core, len(tested)), tested) > 0 {
		return untestedWarning
	}
	if requires != "" && install.CompareVersions(prefix(core, len(requires)), requires) < 0 {
		return incompatibleWarning
	}
	return ""
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var lastUpdatedLayouts = []string{
	"2006-01-02 3:04pm MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

func parseLastUpdated(s string) (time.Time, bool) {
	for _, layout := range lastUpdatedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
