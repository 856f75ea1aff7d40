package admin

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/GoCodeAlone/wpadmin/install"
	"github.com/GoCodeAlone/wpadmin/pluginsapi"
)

func akismetInfo() *pluginsapi.Plugin {
	return &pluginsapi.Plugin{
		Name:         "Akismet",
		Slug:         "akismet",
		Version:      "3.0.4",
		Author:       `<a href="http://automattic.com/">Automattic</a>`,
		Requires:     "3.1",
		Tested:       "4.1",
		Rating:       90,
		Ratings:      pluginsapi.Map[int]{"5": 10, "4": 2, "1": 1},
		NumRatings:   13,
		Downloaded:   1234567,
		LastUpdated:  time.Now().Add(-72 * time.Hour).UTC().Format("2006-01-02 3:04pm MST"),
		DownloadLink: "https://downloads.wordpress.org/plugin/akismet.3.0.4.zip",
		DonateLink:   "https://example.com/donate",
		Contributors: pluginsapi.Map[string]{"matt": "https://profiles.wordpress.org/matt"},
		Banners:      pluginsapi.Banners{Low: "https://ps.w.org/akismet/banner-772x250.png"},
		Sections: pluginsapi.Sections{
			{Name: "description", Content: `<p>Stops spam. <a href="faq/">FAQ</a></p><script>evil()</script><iframe src="x"></iframe>`},
			{Name: "installation", Content: "<p>Upload.</p>"},
			{Name: "other_notes", Content: "<p>Notes.</p>"},
			{Name: "reviews", Content: "<p>Great.</p>"},
		},
	}
}

func TestScreens_Information(t *testing.T) {
	dir := &fakeDirectory{info: akismetInfo()}
	s, classifier := newScreens(t, dir, siteAdmin)
	classifier.results["akismet"] = install.Result{Status: install.StatusNewerInstalled, Version: "3.1"}

	rec := get(t, s, "/wp-admin/plugin-install.php?tab=plugin-information&plugin=akismet&section=installation")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, `<h2>Akismet</h2>`)
	assert.Contains(t, body, `class="with-banner"`)
	assert.Contains(t, body, "banner-772x250.png")
	assert.Contains(t, body, ">Other Notes</a>")
	assert.Contains(t, body, ">Reviews</a>")
	assert.Contains(t, body, `<div id="section-installation" class="section" style="display: block;">`)
	assert.Contains(t, body, `<div id="section-description" class="section" style="display: none;">`)

	assert.NotContains(t, body, "evil()")
	assert.NotContains(t, body, "<iframe")
	assert.Contains(t, body, `href="https://wordpress.org/plugins/akismet/faq/"`)
	assert.Contains(t, body, `target="_blank"`)

	assert.Contains(t, body, "1,234,567 times")
	assert.Contains(t, body, "3 days ago")
	assert.Contains(t, body, "3.1 or higher")
	assert.Contains(t, body, "(based on 13 ratings)")
	assert.Contains(t, body, "https://wordpress.org/support/view/plugin-reviews/akismet?filter=5")
	assert.Contains(t, body, ">1 star</a>")
	assert.Contains(t, body, "Contributors")
	assert.Contains(t, body, `href="https://wordpress.org/plugins/akismet/">WordPress.org Plugin Page`)
	assert.NotContains(t, body, "not been tested")

	assert.Contains(t, body, `<a class="button button-primary right disabled">Newer Version (3.1) Installed</a>`)
}

func TestScreens_InformationFooter(t *testing.T) {
	tests := []struct {
		name   string
		result install.Result
		want   string
	}{
		{"install", install.Result{Status: install.StatusInstall, URL: "/wp-admin/update.php?action=install-plugin"}, ">Install Now</a>"},
		{"update", install.Result{Status: install.StatusUpdateAvailable, URL: "/wp-admin/update.php?action=upgrade-plugin"}, ">Install Update Now</a>"},
		{"latest", install.Result{Status: install.StatusLatestInstalled}, ">Latest Version Installed</a>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, classifier := newScreens(t, &fakeDirectory{info: akismetInfo()}, siteAdmin)
			classifier.results["akismet"] = tt.result
			body := get(t, s, "/wp-admin/plugin-install.php?tab=plugin-information&plugin=akismet").Body.String()
			assert.Contains(t, body, tt.want)
		})
	}
}

func TestScreens_InformationNoDownload(t *testing.T) {
	info := akismetInfo()
	info.DownloadLink = ""
	s, classifier := newScreens(t, &fakeDirectory{info: info}, siteAdmin)

	body := get(t, s, "/wp-admin/plugin-install.php?tab=plugin-information&plugin=akismet").Body.String()
	assert.Empty(t, classifier.requests)
	assert.NotContains(t, body, "button-primary")
}

func TestScreens_InformationErrors(t *testing.T) {
	s, _ := newScreens(t, &fakeDirectory{}, siteAdmin)

	assert.Equal(t, http.StatusBadRequest,
		get(t, s, "/wp-admin/plugin-install.php?tab=plugin-information").Code)

	rec := get(t, s, "/wp-admin/plugin-install.php?tab=plugin-information&plugin=missing")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Try again")
}

func TestBuildInfoPage(t *testing.T) {
	p := message.NewPrinter(language.AmericanEnglish)
	r := httptest.NewRequest(http.MethodGet, "/wp-admin/plugin-install.php?tab=plugin-information&plugin=akismet&section=bogus", nil)

	info := akismetInfo()
	info.Ratings = nil
	info.Contributors = nil
	info.External = true
	info.Tested = "3.9"

	page := BuildInfoPage(r, info, "4.1.1", p)

	require.Len(t, page.Sections, 3, "reviews hidden without ratings")
	assert.True(t, page.Sections[0].Current, "unknown section falls back to the first")
	assert.Equal(t, "?plugin=akismet&section=other_notes&tab=plugin-information", page.Sections[2].URL)
	assert.Empty(t, page.FYI.PluginPage, "external plugins have no directory page")
	assert.Equal(t, "https://example.com/donate", page.FYI.DonateLink)
	assert.Empty(t, page.DonateLink)
	assert.Empty(t, page.Counters)
	assert.Equal(t, template.HTML(untestedWarning), page.Warning)
}

func TestCompatibilityWarning(t *testing.T) {
	assert.Empty(t, compatibilityWarning("4.1", "4.1", "3.1"))
	assert.Empty(t, compatibilityWarning("4.1.1", "4.1", "3.1"), "tested compares only the same length")
	assert.Equal(t, template.HTML(untestedWarning), compatibilityWarning("4.2", "4.1", ""))
	assert.Equal(t, template.HTML(incompatibleWarning), compatibilityWarning("3.9", "", "4.0"))
	assert.Empty(t, compatibilityWarning("4.1", "", ""))
}

func TestSectionTitle(t *testing.T) {
	assert.Equal(t, "FAQ", SectionTitle("faq"))
	assert.Equal(t, "Other Notes", SectionTitle("other_notes"))
	assert.Equal(t, "Upgrade Notice", SectionTitle("upgrade_notice"))
}

func TestStarRating(t *testing.T) {
	p := message.NewPrinter(language.AmericanEnglish)

	s := StarRating(90, 1234, p)
	assert.Equal(t, []string{"star-full", "star-full", "star-full", "star-full", "star-half"}, s.Icons)
	assert.Equal(t, "4.5 rating based on 1,234 ratings", s.Title)

	s = StarRating(0, 0, p)
	assert.Equal(t, []string{"star-empty", "star-empty", "star-empty", "star-empty", "star-empty"}, s.Icons)

	s = StarRating(100, 1, p)
	assert.Len(t, s.Icons, 5)
	assert.Equal(t, "star-full", s.Icons[4])
}

func TestRebaseLinks(t *testing.T) {
	base := "https://wordpress.org/plugins/akismet/"
	in := `<a href="faq/?a=1&amp;b=2">x</a> <img src="/img.png"> <a href="https://other.example/">y</a> <a href="#top">z</a>`
	out := rebaseLinks(in, base)
	assert.Contains(t, out, `href="https://wordpress.org/plugins/akismet/faq/?a=1&amp;b=2"`)
	assert.Contains(t, out, `src="https://wordpress.org/img.png"`)
	assert.Contains(t, out, `href="https://other.example/"`)
	assert.Contains(t, out, `href="https://wordpress.org/plugins/akismet/#top"`)
}

func TestContributors(t *testing.T) {
	got := contributors(pluginsapi.Map[string]{
		"":        "https://profiles.wordpress.org/otto42/",
		"matt":    "https://profiles.wordpress.org/matt",
		"<bad>ok": "",
	})
	require.Len(t, got, 3)
	assert.Equal(t, "otto42", got[0].Name)
	assert.Equal(t, "badok", got[1].Name)
	assert.Empty(t, got[1].Profile)
	assert.Equal(t, "matt", got[2].Name)
}
