package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/GoCodeAlone/wpadmin/admin"
	"github.com/GoCodeAlone/wpadmin/config"
)

// Upgrader performs the package work behind update.php.
type Upgrader interface {
	Install(ctx context.Context, slug string) error
	Upgrade(ctx context.Context, file string) error
	Upload(ctx context.Context, filename string, zip io.Reader) error
}

const maxUploadSize = 64 << 20

const (
	expiredLink    = "The link you followed has expired."
	cannotInstall  = "You do not have sufficient permissions to install plugins on this site."
	cannotUpdate   = "You do not have sufficient permissions to update plugins for this site."
	noUpgrader     = "Installing plugins is not available on this site."
	unknownAction  = "Unknown update action."
	missingPackage = "Please select a plugin package to upload."
	pluginNotFound = "Plugin not found."
)

// handleUpdate serves update.php: install-plugin, upgrade-plugin and upload-plugin.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	q := r.URL.Query()
	back := s.adminLink("plugin-install.php")

	action := q.Get("action")
	switch {
	case action == "install-plugin" && r.Method == http.MethodGet:
		slug := q.Get("plugin")
		if !s.confirm(w, user, config.CapInstallPlugins, cannotInstall, q.Get("_wpnonce"), "install-plugin_"+slug) {
			return
		}
		s.runUpgrade(w, r, "Installing Plugin: "+slug, "Successfully installed the plugin "+slug+".", back,
			func(ctx context.Context) error { return s.svc.Upgrader.Install(ctx, slug) })

	case action == "upgrade-plugin" && r.Method == http.MethodGet:
		file := q.Get("plugin")
		if !s.confirm(w, user, config.CapUpdatePlugins, cannotUpdate, q.Get("_wpnonce"), "upgrade-plugin_"+file) {
			return
		}
		title := "Update Plugin"
		if s.svc.Installed != nil {
			rec, ok := s.svc.Installed.Get(file)
			if !ok {
				s.message(w, http.StatusNotFound, title, pluginNotFound, back)
				return
			}
			title = "Updating Plugin: " + rec.Name
		}
		s.runUpgrade(w, r, title, "Plugin updated successfully.", back,
			func(ctx context.Context) error { return s.svc.Upgrader.Upgrade(ctx, file) })

	case action == "upload-plugin" && r.Method == http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			s.message(w, http.StatusBadRequest, "Upload Plugin", missingPackage, back)
			return
		}
		if !s.confirm(w, user, config.CapInstallPlugins, cannotInstall, r.PostFormValue("_wpnonce"), "plugin-upload") {
			return
		}
		file, header, err := r.FormFile("pluginzip")
		if err != nil {
			s.message(w, http.StatusBadRequest, "Upload Plugin", missingPackage, back)
			return
		}
		defer file.Close()
		s.runUpgrade(w, r, "Installing Plugin from uploaded file: "+header.Filename,
			"Successfully installed the plugin.", back,
			func(ctx context.Context) error { return s.svc.Upgrader.Upload(ctx, header.Filename, file) })

	default:
		s.message(w, http.StatusBadRequest, "Error", unknownAction, back)
	}
}

// confirm checks the capability and nonce for an action, answering 403 on failure.
func (s *Server) confirm(w http.ResponseWriter, user config.UserConfig, capability, denied, nonce, action string) bool {
	back := s.adminLink("plugin-install.php")
	if !user.Can(capability) {
		s.message(w, http.StatusForbidden, "Error", denied, back)
		return false
	}
	if err := s.nonces.Verify(nonce, user.Name, action); err != nil {
		s.logger.Warn("rejected nonce", slog.String("action", action), slog.String("user", user.Name), slog.Any("err", err))
		s.message(w, http.StatusForbidden, "Error", expiredLink, back)
		return false
	}
	return true
}

func (s *Server) runUpgrade(w http.ResponseWriter, r *http.Request, title, success, back string, run func(context.Context) error) {
	if s.svc.Upgrader == nil {
		s.message(w, http.StatusNotImplemented, title, noUpgrader, back)
		return
	}
	if err := run(r.Context()); err != nil {
		s.logger.Error("plugin upgrade failed", slog.String("title", title), slog.Any("err", err))
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) {
			status = http.StatusServiceUnavailable
		}
		s.message(w, status, title, "Installation failed: "+err.Error(), back)
		return
	}
	s.logger.Info("plugin upgrade complete", slog.String("title", title))
	s.message(w, http.StatusOK, title, success, back)
}

func (s *Server) message(w http.ResponseWriter, status int, title, msg, back string) {
	s.renderer.Message(w, status, admin.MessagePage{Title: title, Message: msg, Back: back})
}
