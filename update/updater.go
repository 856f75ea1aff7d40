// Package update keeps the list of available plugin updates, refreshed from
// the directory's update-check endpoint and cached as the update_plugins transient.
package update

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/GoCodeAlone/wpadmin/internal/version"
	"github.com/GoCodeAlone/wpadmin/plugin"
	"github.com/GoCodeAlone/wpadmin/transient"
)

// CacheKey is the transient holding the current List.
const CacheKey = "update_plugins"

// Offer describes a newer version of one installed plugin.
type Offer struct {
	Slug       string `json:"slug"`
	Plugin     string `json:"plugin"` // plugin file, e.g. "akismet/akismet.php"
	NewVersion string `json:"new_version"`
	URL        string `json:"url,omitempty"`
	Package    string `json:"package,omitempty"`
}

// List is the cached result of the last update check.
type List struct {
	LastChecked time.Time         `json:"last_checked"`
	Checked     map[string]string `json:"checked"`  // plugin file -> installed version
	Response    map[string]Offer  `json:"response"` // plugin file -> offer
}

// Files returns the plugin files with an offer, sorted.
func (l *List) Files() []string {
	files := make([]string, 0, len(l.Response))
	for f := range l.Response {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Installed lists the plugins reported to the update-check endpoint.
type Installed interface {
	All() ([]plugin.Record, error)
}

// Checker reads and refreshes the available-updates list.
type Checker struct {
	URL        string
	TTL        time.Duration
	Locale     string
	store      transient.Store
	plugins    Installed
	httpClient *http.Client
	logger     *slog.Logger
}

// New returns a Checker posting to url and caching in store.
func New(url string, store transient.Store, plugins Installed, logger *slog.Logger) *Checker {
	return &Checker{
		URL:     url,
		TTL:     12 * time.Hour,
		store:   store,
		plugins: plugins,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SetHTTPClient replaces the default http.Client.
func (c *Checker) SetHTTPClient(hc *http.Client) { c.httpClient = hc }

// Load returns the cached list. A missing transient is an empty list.
func (c *Checker) Load(ctx context.Context) (*List, error) {
	var l List
	if _, err := transient.GetJSON(ctx, c.store, CacheKey, &l); err != nil {
		return &List{}, err
	}
	return &l, nil
}

type checkPlugin struct {
	Name    string `json:"Name"`
	Version string `json:"Version"`
}

type checkRequest struct {
	Plugins map[string]checkPlugin `json:"plugins"`
	Locale  string                 `json:"locale,omitempty"`
}

type checkResponse struct {
	Plugins map[string]Offer `json:"plugins"`
}

// Refresh posts the installed plugins to the update-check endpoint and
// stores the resulting list.
func (c *Checker) Refresh(ctx context.Context) error {
	installed, err := c.plugins.All()
	if err != nil {
		return fmt.Errorf("list installed plugins: %w", err)
	}

	body := checkRequest{Plugins: make(map[string]checkPlugin, len(installed)), Locale: c.Locale}
	checked := make(map[string]string, len(installed))
	for _, p := range installed {
		body.Plugins[p.File] = checkPlugin{Name: p.Name, Version: p.Version}
		checked[p.File] = p.Version
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode update check: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("update check: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update check returned %d", resp.StatusCode)
	}

	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode update check: %w", err)
	}

	list := List{
		LastChecked: time.Now().UTC(),
		Checked:     checked,
		Response:    make(map[string]Offer, len(out.Plugins)),
	}
	for file, offer := range out.Plugins {
		if _, ok := checked[file]; !ok {
			continue // not installed here
		}
		if offer.Plugin == "" {
			offer.Plugin = file
		}
		list.Response[file] = offer
	}

	if err := transient.SetJSON(ctx, c.store, CacheKey, list, c.TTL); err != nil {
		return err
	}
	c.logger.Info("plugin update check complete",
		slog.Int("installed", len(checked)),
		slog.Int("updates", len(list.Response)))
	return nil
}
