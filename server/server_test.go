package server

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/GoCodeAlone/wpadmin/admin"
	"github.com/GoCodeAlone/wpadmin/config"
	"github.com/GoCodeAlone/wpadmin/install"
	"github.com/GoCodeAlone/wpadmin/plugin"
	"github.com/GoCodeAlone/wpadmin/pluginsapi"
	"github.com/GoCodeAlone/wpadmin/transient"
	"github.com/GoCodeAlone/wpadmin/update"
)

// --- Test doubles ---

type fakeDirectory struct{}

func (fakeDirectory) Query(_ context.Context, args pluginsapi.Args) (*pluginsapi.QueryResult, error) {
	return &pluginsapi.QueryResult{
		Info:    pluginsapi.QueryInfo{Page: 1, Pages: 1, Results: 1},
		Plugins: []pluginsapi.Plugin{{Name: "Akismet", Slug: "akismet", Version: "3.0.4", Author: "Automattic"}},
	}, nil
}

func (fakeDirectory) Information(_ context.Context, slug string, _ map[string]bool) (*pluginsapi.Plugin, error) {
	return &pluginsapi.Plugin{Name: slug, Slug: slug, Version: "1.0"}, nil
}

type fakeTags struct{}

func (fakeTags) PopularTags(context.Context, pluginsapi.Args) (pluginsapi.Tags, error) {
	return pluginsapi.Tags{{Name: "spam", Slug: "spam", Count: 12}}, nil
}

type fakeUpdates struct{}

func (fakeUpdates) Load(context.Context) (*update.List, error) { return &update.List{}, nil }
func (fakeUpdates) Refresh(context.Context) error              { return nil }

type fakeUpgrader struct {
	installed []string
	upgraded  []string
	uploads   map[string]string
	err       error
}

func (f *fakeUpgrader) Install(_ context.Context, slug string) error {
	f.installed = append(f.installed, slug)
	return f.err
}

func (f *fakeUpgrader) Upgrade(_ context.Context, file string) error {
	f.upgraded = append(f.upgraded, file)
	return f.err
}

func (f *fakeUpgrader) Upload(_ context.Context, filename string, zip io.Reader) error {
	data, err := io.ReadAll(zip)
	if err != nil {
		return err
	}
	if f.uploads == nil {
		f.uploads = make(map[string]string)
	}
	f.uploads[filename] = string(data)
	return f.err
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	cfg := config.Config{
		Server: config.ServerConfig{Addr: ":0"},
		Auth: config.AuthConfig{
			JWTSecret: "test-secret-key-1234567890",
			Users: []config.UserConfig{
				{
					Name:         "admin",
					PasswordHash: string(hash),
					Capabilities: []string{config.CapInstallPlugins, config.CapUpdatePlugins},
				},
				{Name: "editor", PasswordHash: string(hash)},
			},
		},
		Site: config.SiteConfig{AdminURL: "/wp-admin/", CoreVersion: "4.1", Locale: "en_US"},
	}
	return New(cfg, "test", discardLogger())
}

// newWiredServer attaches fakes plus a real classifier, so install links
// carry nonces issued by the server.
func newWiredServer(t *testing.T, upgrader Upgrader) *Server {
	t.Helper()
	s := newTestServer(t)
	registry := plugin.NewRegistry(t.TempDir())
	classifier := install.NewClassifier(install.Deps{
		Updates:   fakeUpdates{},
		Plugins:   registry,
		Refresher: fakeUpdates{},
		Store:     transient.NewMemoryStore(),
		URLs:      s.Nonces(),
		Logger:    discardLogger(),
	})
	s.SetServices(Services{
		Directory:  fakeDirectory{},
		Classifier: classifier,
		Tags:       fakeTags{},
		Updates:    fakeUpdates{},
		Installed:  registry,
		Upgrader:   upgrader,
	})
	return s
}

func handler(t *testing.T, s *Server) http.Handler {
	t.Helper()
	h, err := s.Handler()
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	return h
}

// login returns a session token for user.
func login(t *testing.T, h http.Handler, user string) string {
	t.Helper()
	body := `{"username":"` + user + `","password":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", user, rr.Code, rr.Body.String())
	}
	var resp loginResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp.Token
}

// getAs issues a GET carrying the session cookie.
func getAs(h http.Handler, token, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

var installLink = regexp.MustCompile(`/wp-admin/update\.php\?action=install-plugin&plugin=akismet&_wpnonce=[A-Za-z0-9_.-]+`)

func TestPluginInstallPage_InstallLinkRoundTrip(t *testing.T) {
	upgrader := &fakeUpgrader{}
	h := handler(t, newWiredServer(t, upgrader))
	token := login(t, h, "admin")

	rr := getAs(h, token, "/wp-admin/plugin-install.php?tab=popular")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	link := installLink.FindString(html.UnescapeString(rr.Body.String()))
	if link == "" {
		t.Fatalf("no install link in page:\n%s", rr.Body.String())
	}

	rr = getAs(h, token, link)
	if rr.Code != http.StatusOK {
		t.Fatalf("install: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(upgrader.installed) != 1 || upgrader.installed[0] != "akismet" {
		t.Errorf("expected akismet installed, got %v", upgrader.installed)
	}
	if !strings.Contains(rr.Body.String(), "Successfully installed the plugin akismet.") {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
}

func TestPluginInstallPage_Dashboard(t *testing.T) {
	h := handler(t, newWiredServer(t, nil))
	rr := getAs(h, login(t, h, "admin"), "/wp-admin/plugin-install.php")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Add Plugins", "Popular tags", ">spam</a>", "Akismet"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestPluginInstallPage_NoCapability(t *testing.T) {
	h := handler(t, newWiredServer(t, nil))
	rr := getAs(h, login(t, h, "editor"), "/wp-admin/plugin-install.php")
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}

func TestAdminRedirects(t *testing.T) {
	h := handler(t, newWiredServer(t, nil))
	token := login(t, h, "admin")

	for _, target := range []string{"/", "/wp-admin/"} {
		rr := getAs(h, token, target)
		if rr.Code != http.StatusFound || rr.Header().Get("Location") != landingPath {
			t.Errorf("%s: expected redirect to %s, got %d %q", target, landingPath, rr.Code, rr.Header().Get("Location"))
		}
	}
}

func TestStaticStylesheet(t *testing.T) {
	s := newWiredServer(t, nil)
	s.SetStaticFS(admin.Assets())
	h := handler(t, s)

	rr := getAs(h, "", "/wp-admin/css/plugin-install.css")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), ".plugin-card") {
		t.Error("expected stylesheet body")
	}
}

func TestRequestID(t *testing.T) {
	h := handler(t, newWiredServer(t, nil))

	rr := getAs(h, "", "/api/status")
	if rr.Header().Get(requestIDHeader) == "" {
		t.Error("expected a generated request ID")
	}

	const inbound = "3b241101-e2bb-4255-8caf-4136c566a962"
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(requestIDHeader, inbound)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(requestIDHeader); got != inbound {
		t.Errorf("expected inbound ID reused, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(requestIDHeader, "not a uuid\r\n")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(requestIDHeader); got == "not a uuid\r\n" || got == "" {
		t.Errorf("expected malformed ID replaced, got %q", got)
	}
}

func TestAPIPluginStatus_UsesCallerCapabilities(t *testing.T) {
	h := handler(t, newWiredServer(t, nil))

	for _, tc := range []struct {
		user    string
		wantURL bool
	}{
		{"admin", true},
		{"editor", false},
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/plugins/akismet/status?from=import", nil)
		req.Header.Set("Authorization", "Bearer "+login(t, h, tc.user))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.user, rr.Code)
		}
		var res install.Result
		if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if res.Status != install.StatusInstall {
			t.Errorf("%s: expected install, got %q", tc.user, res.Status)
		}
		if got := res.URL != ""; got != tc.wantURL {
			t.Errorf("%s: URL presence = %v, want %v (%q)", tc.user, got, tc.wantURL, res.URL)
		}
		if tc.wantURL && !strings.HasSuffix(res.URL, "&from=import") {
			t.Errorf("%s: expected from suffix, got %q", tc.user, res.URL)
		}
	}
}
