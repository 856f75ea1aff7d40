// Command wpadmind is the wpadmin server daemon.
// It serves the plugin-install admin screens and JSON API from a YAML or TOML config file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/GoCodeAlone/wpadmin/admin"
	"github.com/GoCodeAlone/wpadmin/config"
	"github.com/GoCodeAlone/wpadmin/install"
	"github.com/GoCodeAlone/wpadmin/internal/version"
	"github.com/GoCodeAlone/wpadmin/plugin"
	"github.com/GoCodeAlone/wpadmin/pluginsapi"
	"github.com/GoCodeAlone/wpadmin/server"
	"github.com/GoCodeAlone/wpadmin/transient"
	"github.com/GoCodeAlone/wpadmin/update"
)

var configPath = flag.String("config", "wpadmin.yaml", "path to config file (.yaml or .toml)")

const purgeInterval = time.Hour

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	missing := errors.Is(err, fs.ErrNotExist)
	switch {
	case missing:
		cfg = config.DefaultConfig()
	case err != nil:
		log.Fatalf("Failed to load config %s: %v", *configPath, err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting wpadmind",
		"version", version.Version,
		"commit", version.Commit,
	)
	if missing {
		logger.Warn("config file not found, using defaults", slog.String("path", *configPath))
	}
	if len(cfg.Auth.Users) == 0 {
		logger.Warn("no users configured; nobody can sign in")
	}

	store, closeStore, err := openStore(cfg.Cache, logger)
	if err != nil {
		log.Fatalf("Failed to open transient store: %v", err)
	}

	registry := plugin.NewRegistry(cfg.Site.PluginDir)
	directory := pluginsapi.NewClient(pluginsapi.Config{
		URL:        cfg.Directory.URL,
		Timeout:    cfg.Directory.Timeout.Std(),
		UserAgent:  version.UserAgent(),
		Locale:     cfg.Site.Locale,
		PerPage:    cfg.Directory.PerPage,
		DisableSSL: cfg.Directory.DisableSSL,
	}, pluginsapi.WithLogger(logger))

	checker := update.New(cfg.Updates.URL, store, registry, logger)
	checker.Locale = cfg.Site.Locale
	if cfg.Updates.TTL > 0 {
		checker.TTL = cfg.Updates.TTL.Std()
	}

	tags := &install.TagCache{
		API:    directory,
		Store:  store,
		TTL:    cfg.Directory.TagsTTL.Std(),
		Logger: logger,
	}

	renderer, err := admin.NewRenderer(logger)
	if err != nil {
		log.Fatalf("Failed to parse admin templates: %v", err)
	}

	srv := server.New(*cfg, version.Version, logger)
	classifier := install.NewClassifier(install.Deps{
		Updates:   checker,
		Plugins:   registry,
		Refresher: checker,
		Store:     store,
		URLs:      srv.Nonces(),
		Logger:    logger,
	})
	srv.SetServices(server.Services{
		Directory:  directory,
		Classifier: classifier,
		Tags:       tags,
		Updates:    checker,
		Installed:  registry,
		Renderer:   renderer,
	})
	srv.SetStaticFS(admin.Assets())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	fmt.Printf("wpadmin server running on %s\n", cfg.Server.Addr)
	fmt.Printf("Version: %s (%s)\n", version.Version, version.Commit)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-errCh:
		logger.Error("server error", slog.Any("err", err))
	}

	fmt.Println("Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("server stop error", slog.Any("err", err))
	}
	if err := closeStore(); err != nil {
		logger.Error("close transient store", slog.Any("err", err))
	}
	fmt.Println("Shutdown complete")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// openStore opens the configured transient store and, for SQLite, starts
// the background purge of expired rows.
func openStore(cfg config.CacheConfig, logger *slog.Logger) (transient.Store, func() error, error) {
	if cfg.Driver == "memory" {
		return transient.NewMemoryStore(), func() error { return nil }, nil
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	store, err := transient.NewSQLiteStore(cfg.Path)
	if err != nil {
		return nil, nil, err
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				n, err := store.Purge(context.Background())
				if err != nil {
					logger.Warn("purge transients", slog.Any("err", err))
					continue
				}
				logger.Debug("purged transients", slog.Int64("rows", n))
			}
		}
	}()

	return store, func() error {
		close(done)
		return store.Close()
	}, nil
}
