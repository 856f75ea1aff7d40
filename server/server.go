// Package server implements the wpadmin HTTP server: admin pages, REST API, auth and nonces.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/GoCodeAlone/wpadmin/admin"
	"github.com/GoCodeAlone/wpadmin/config"
	"github.com/GoCodeAlone/wpadmin/install"
	"github.com/GoCodeAlone/wpadmin/plugin"
	"github.com/GoCodeAlone/wpadmin/server/api"
)

// Services are the components the server exposes over HTTP.
type Services struct {
	Directory  api.Directory
	Classifier api.Classifier
	Tags       api.Tags
	Updates    api.Updates
	Installed  InstalledPlugins
	Renderer   *admin.Renderer

	// Upgrader is optional; without it update.php answers 501.
	Upgrader Upgrader
}

// InstalledPlugins is the local plugin registry as the server sees it.
type InstalledPlugins interface {
	admin.Installed
	Get(file string) (plugin.Record, bool)
}

// Server is the wpadmin HTTP server.
type Server struct {
	cfg     config.Config
	mux     *http.ServeMux
	httpSrv *http.Server
	logger  *slog.Logger

	svc      Services
	renderer *admin.Renderer
	nonces   *Nonces
	static   fs.FS

	routesOnce sync.Once
	handler    http.Handler
	routesErr  error

	// JWT secret caching
	secretOnce      sync.Once
	generatedSecret string

	startTime time.Time
	version   string
}

// New creates a new Server with the given config and logger.
func New(cfg config.Config, ver string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		logger:    logger,
		startTime: time.Now(),
		version:   ver,
	}
	s.nonces = newNonces(s.jwtSecret(), cfg.Site.AdminURL, logger)
	return s
}

// Nonces returns the server's nonce issuer. It is usable before SetServices,
// so the classifier can be built with it.
func (s *Server) Nonces() *Nonces {
	return s.nonces
}

// SetServices attaches the application components. Call before Start.
func (s *Server) SetServices(svc Services) {
	s.svc = svc
	if svc.Renderer != nil {
		s.renderer = svc.Renderer
	}
}

// SetStaticFS sets the filesystem the admin stylesheets are served from.
// Call before Start.
func (s *Server) SetStaticFS(fsys fs.FS) {
	s.static = fsys
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() (http.Handler, error) {
	s.routesOnce.Do(func() {
		s.routesErr = s.registerRoutes()
	})
	return s.handler, s.routesErr
}

// Start registers routes and begins listening.
func (s *Server) Start() error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	addr := s.cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}
	s.logger.Info("server listening", slog.String("addr", addr))
	return s.httpSrv.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() error {
	if s.renderer == nil {
		r, err := admin.NewRenderer(s.logger)
		if err != nil {
			return fmt.Errorf("admin templates: %w", err)
		}
		s.renderer = r
	}

	h := &api.Handlers{
		Directory:  s.svc.Directory,
		Classifier: s.svc.Classifier,
		Tags:       s.svc.Tags,
		Updates:    s.svc.Updates,
		Logger:     s.logger,
		Version:    s.version,
		StartAt:    s.startTime.Unix(),
		Request:    s.installRequest,
	}

	// Public routes (no auth required)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("GET /api/status", h.StatusHandler())
	s.mux.HandleFunc("GET "+loginPath, s.handleLoginForm)
	s.mux.HandleFunc("POST "+loginPath, s.handleLoginSubmit)
	s.mux.HandleFunc("GET /wp-admin/logout", s.handleLogout)
	if s.static != nil {
		s.mux.Handle("GET /wp-admin/css/", http.StripPrefix("/wp-admin/", http.FileServerFS(s.static)))
	}
	s.mux.Handle("GET /{$}", http.RedirectHandler(landingPath, http.StatusFound))

	// Protected API
	apiMux := http.NewServeMux()
	h.RegisterRoutes(apiMux)
	apiMux.HandleFunc("GET /api/auth/me", s.handleMe)
	s.mux.Handle("/api/", s.authMiddleware(apiMux))

	// Admin pages
	screens := &admin.Screens{
		Directory:   s.svc.Directory,
		Classifier:  s.svc.Classifier,
		Tags:        s.svc.Tags,
		Installed:   s.svc.Installed,
		Nonces:      s.nonces,
		Renderer:    s.renderer,
		Viewer:      viewer,
		AdminURL:    s.cfg.Site.AdminURL,
		CoreVersion: s.cfg.Site.CoreVersion,
		Locale:      s.cfg.LanguageTag(),
		Logger:      s.logger,
	}
	pages := http.NewServeMux()
	pages.Handle("GET "+landingPath, screens)
	pages.HandleFunc("/wp-admin/update.php", s.handleUpdate)
	pages.Handle("GET /wp-admin/{$}", http.RedirectHandler(landingPath, http.StatusFound))
	s.mux.Handle("/wp-admin/", s.pageAuth(pages))

	s.handler = requestID(s.logRequests(s.mux))
	return nil
}

// viewer describes the signed-in user to the admin screens.
func viewer(r *http.Request) admin.Viewer {
	user, ok := UserFromContext(r.Context())
	if !ok {
		return admin.Viewer{}
	}
	return admin.Viewer{
		Name:       user.Name,
		Favorites:  user.Favorites,
		CanInstall: user.Can(config.CapInstallPlugins),
		CanUpdate:  user.Can(config.CapUpdatePlugins),
	}
}

// installRequest carries the caller's capabilities into classification.
func (s *Server) installRequest(r *http.Request) install.Request {
	v := viewer(r)
	return install.Request{CanInstall: v.CanInstall, CanUpdate: v.CanUpdate}
}

// adminLink returns the admin URL for path.
func (s *Server) adminLink(path string) string {
	return s.nonces.adminURL + strings.TrimPrefix(path, "/")
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
