package server

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GoCodeAlone/wpadmin/install"
	"github.com/GoCodeAlone/wpadmin/plugin"
	"github.com/GoCodeAlone/wpadmin/pluginsapi"
	"github.com/GoCodeAlone/wpadmin/transient"
)

func nonceFor(t *testing.T, s *Server, user, action string) string {
	t.Helper()
	token, err := s.Nonces().Create(user, action)
	if err != nil {
		t.Fatalf("Create nonce: %v", err)
	}
	return token
}

// withInstalledPlugin points the server's registry at a root holding file.
func withInstalledPlugin(t *testing.T, s *Server, file, name string) {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, filepath.FromSlash(file))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	body := "<?php\n/*\n * Plugin Name: " + name + "\n * Version: 3.0.0\n */\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write plugin: %v", err)
	}
	s.svc.Installed = plugin.NewRegistry(root)
}

func upgradeTarget(t *testing.T, s *Server, file string) string {
	t.Helper()
	return "/wp-admin/update.php?" + url.Values{
		"action":   {"upgrade-plugin"},
		"plugin":   {file},
		"_wpnonce": {nonceFor(t, s, "admin", "upgrade-plugin_"+file)},
	}.Encode()
}

func TestUpdatePHP_Upgrade(t *testing.T) {
	upgrader := &fakeUpgrader{}
	s := newWiredServer(t, upgrader)
	file := "akismet/akismet.php"
	withInstalledPlugin(t, s, file, "Akismet")
	h := handler(t, s)
	token := login(t, h, "admin")

	rr := getAs(h, token, upgradeTarget(t, s, file))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(upgrader.upgraded) != 1 || upgrader.upgraded[0] != file {
		t.Errorf("expected %s upgraded, got %v", file, upgrader.upgraded)
	}
	if !strings.Contains(rr.Body.String(), "Updating Plugin: Akismet") {
		t.Errorf("expected plugin name in title: %s", rr.Body.String())
	}
}

func TestUpdatePHP_UpgradeUnknownPlugin(t *testing.T) {
	upgrader := &fakeUpgrader{}
	s := newWiredServer(t, upgrader)
	withInstalledPlugin(t, s, "akismet/akismet.php", "Akismet")
	h := handler(t, s)
	token := login(t, h, "admin")

	rr := getAs(h, token, upgradeTarget(t, s, "jetpack/jetpack.php"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if len(upgrader.upgraded) != 0 {
		t.Errorf("expected no upgrade, got %v", upgrader.upgraded)
	}
}

func TestUpdatePHP_InstallLinkWithReservedCharacters(t *testing.T) {
	upgrader := &fakeUpgrader{}
	s := newWiredServer(t, upgrader)
	h := handler(t, s)
	token := login(t, h, "admin")

	user, _ := s.cfg.User("admin")
	classifier := install.NewClassifier(install.Deps{
		Updates:   fakeUpdates{},
		Plugins:   plugin.NewRegistry(t.TempDir()),
		Refresher: fakeUpdates{},
		Store:     transient.NewMemoryStore(),
		URLs:      s.Nonces(),
		Logger:    discardLogger(),
	})
	res := classifier.Classify(contextWithUser(context.Background(), user),
		&pluginsapi.Plugin{Slug: "c++", Version: "1.0"}, install.Request{CanInstall: true})
	if res.URL == "" {
		t.Fatal("expected an install URL")
	}

	rr := getAs(h, token, res.URL)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(upgrader.installed) != 1 || upgrader.installed[0] != "c++" {
		t.Errorf("expected c++ installed, got %v", upgrader.installed)
	}
}

func TestUpdatePHP_Rejections(t *testing.T) {
	upgrader := &fakeUpgrader{}
	s := newWiredServer(t, upgrader)
	h := handler(t, s)
	adminToken := login(t, h, "admin")
	editor := login(t, h, "editor")

	tests := []struct {
		name   string
		token  string
		target string
		status int
		want   string
	}{
		{
			name:   "bad nonce",
			token:  adminToken,
			target: "/wp-admin/update.php?action=install-plugin&plugin=akismet&_wpnonce=forged",
			status: http.StatusForbidden,
			want:   expiredLink,
		},
		{
			name:   "nonce for another plugin",
			token:  adminToken,
			target: "/wp-admin/update.php?action=install-plugin&plugin=jetpack&_wpnonce=" + nonceFor(t, s, "admin", "install-plugin_akismet"),
			status: http.StatusForbidden,
			want:   expiredLink,
		},
		{
			name:   "no capability",
			token:  editor,
			target: "/wp-admin/update.php?action=install-plugin&plugin=akismet&_wpnonce=" + nonceFor(t, s, "editor", "install-plugin_akismet"),
			status: http.StatusForbidden,
			want:   cannotInstall,
		},
		{
			name:   "unknown action",
			token:  adminToken,
			target: "/wp-admin/update.php?action=delete-plugin",
			status: http.StatusBadRequest,
			want:   unknownAction,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := getAs(h, tt.token, tt.target)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Errorf("expected %q in body", tt.want)
			}
		})
	}
	if len(upgrader.installed) != 0 {
		t.Errorf("expected nothing installed, got %v", upgrader.installed)
	}
}

func TestUpdatePHP_NoUpgrader(t *testing.T) {
	s := newWiredServer(t, nil)
	h := handler(t, s)

	target := "/wp-admin/update.php?action=install-plugin&plugin=akismet&_wpnonce=" +
		nonceFor(t, s, "admin", "install-plugin_akismet")
	rr := getAs(h, login(t, h, "admin"), target)
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), noUpgrader) {
		t.Errorf("expected %q in body", noUpgrader)
	}
}

func TestUpdatePHP_UpgraderError(t *testing.T) {
	upgrader := &fakeUpgrader{err: errors.New("disk full")}
	s := newWiredServer(t, upgrader)
	h := handler(t, s)

	target := "/wp-admin/update.php?action=install-plugin&plugin=akismet&_wpnonce=" +
		nonceFor(t, s, "admin", "install-plugin_akismet")
	rr := getAs(h, login(t, h, "admin"), target)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Installation failed: disk full") {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
}

func uploadRequest(t *testing.T, token, nonce string, withFile bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("_wpnonce", nonce); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if withFile {
		fw, err := mw.CreateFormFile("pluginzip", "hello-dolly.zip")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write([]byte("PK\x03\x04zip")); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/wp-admin/update.php?action=upload-plugin", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	return req
}

func TestUpdatePHP_Upload(t *testing.T) {
	upgrader := &fakeUpgrader{}
	s := newWiredServer(t, upgrader)
	h := handler(t, s)
	token := login(t, h, "admin")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, uploadRequest(t, token, nonceFor(t, s, "admin", "plugin-upload"), true))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := upgrader.uploads["hello-dolly.zip"]; got != "PK\x03\x04zip" {
		t.Errorf("unexpected upload contents %q", got)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, uploadRequest(t, token, nonceFor(t, s, "admin", "plugin-upload"), false))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing file: expected 400, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, uploadRequest(t, token, nonceFor(t, s, "admin", "install-plugin_akismet"), true))
	if rr.Code != http.StatusForbidden {
		t.Errorf("wrong nonce: expected 403, got %d", rr.Code)
	}
}

func TestUploadForm_CarriesNonce(t *testing.T) {
	s := newWiredServer(t, nil)
	h := handler(t, s)

	rr := getAs(h, login(t, h, "admin"), "/wp-admin/plugin-install.php?tab=upload")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	const marker = `name="_wpnonce" value="`
	i := strings.Index(body, marker)
	if i < 0 {
		t.Fatalf("no nonce field in upload form:\n%s", body)
	}
	nonce := body[i+len(marker):]
	nonce = nonce[:strings.IndexByte(nonce, '"')]
	if err := s.Nonces().Verify(nonce, "admin", "plugin-upload"); err != nil {
		t.Errorf("upload nonce does not verify: %v", err)
	}
}
