// Package install decides what the current user can do with a plugin from
// the directory, and caches the directory's popular tags.
package install

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/GoCodeAlone/wpadmin/plugin"
	"github.com/GoCodeAlone/wpadmin/pluginsapi"
	"github.com/GoCodeAlone/wpadmin/transient"
	"github.com/GoCodeAlone/wpadmin/update"
)

// Status is the install state of a directory plugin on this site.
type Status string

const (
	StatusInstall         Status = "install"
	StatusUpdateAvailable Status = "update_available"
	// StatusNewerInstalled means the installed copy is newer than the
	// directory's version.
	StatusNewerInstalled  Status = "newer_installed"
	StatusLatestInstalled Status = "latest_installed"
)

// Result is the outcome of Classify.
type Result struct {
	Status  Status `json:"status"`
	URL     string `json:"url,omitempty"`
	Version string `json:"version,omitempty"`
}

// Request carries the per-request inputs of a classification.
type Request struct {
	// From is the screen to return to after the action.
	From       string
	CanInstall bool
	CanUpdate  bool
}

// UpdateSource reads the cached list of available updates.
type UpdateSource interface {
	Load(ctx context.Context) (*update.List, error)
}

// Refresher re-runs the update check.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Installed is the local plugin registry.
type Installed interface {
	HasDir(slug string) bool
	Plugins(slug string) ([]plugin.Record, error)
}

// URLBuilder makes admin URLs guarded by a confirmation nonce for action.
type URLBuilder interface {
	NonceURL(ctx context.Context, path, action string) string
}

// Deps are the collaborators of a Classifier.
type Deps struct {
	Updates   UpdateSource
	Plugins   Installed
	Refresher Refresher
	Store     transient.Store
	URLs      URLBuilder
	Logger    *slog.Logger
}

// Classifier computes install status.
type Classifier struct {
	deps Deps
}

// NewClassifier returns a Classifier. A nil Logger uses slog.Default().
func NewClassifier(deps Deps) *Classifier {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Classifier{deps: deps}
}

// maxStaleRetries bounds the self-healing retry after a stale update list.
const maxStaleRetries = 1

// Classify reports the status of p for the current user. It never fails:
// lookup errors are logged and missing permissions mean no URL.
//
// When the installed copy is older than the directory's but the cached
// update list has no offer for it, the list is considered stale: it is
// deleted, refreshed and the classification runs once more.
func (c *Classifier) Classify(ctx context.Context, p *pluginsapi.Plugin, req Request) Result {
	retries := 0
	for {
		res, stale := c.classify(ctx, p, req)
		if !stale {
			return withFrom(res, req.From)
		}
		if retries == maxStaleRetries {
			c.deps.Logger.Debug("install status still inconsistent after update refresh",
				slog.String("slug", p.Slug),
				slog.String("version", p.Version))
			return withFrom(res, req.From)
		}
		retries++
		c.invalidateUpdates(ctx)
	}
}

// classify is one pass. stale reports a local copy older than the directory
// version with no pending update.
func (c *Classifier) classify(ctx context.Context, p *pluginsapi.Plugin, req Request) (res Result, stale bool) {
	res.Status = StatusInstall

	list, err := c.deps.Updates.Load(ctx)
	if err != nil {
		c.deps.Logger.Warn("read update list", slog.Any("err", err))
	}
	if list != nil {
		for _, file := range list.Files() {
			offer := list.Response[file]
			if offer.Slug != p.Slug {
				continue
			}
			res.Status = StatusUpdateAvailable
			res.Version = offer.NewVersion
			if req.CanUpdate {
				res.URL = c.deps.URLs.NonceURL(ctx,
					"update.php?action=upgrade-plugin&plugin="+url.QueryEscape(file),
					"upgrade-plugin_"+file)
			}
			return res, false
		}
	}

	if !c.deps.Plugins.HasDir(p.Slug) {
		return c.installable(ctx, p, req), false
	}
	records, err := c.deps.Plugins.Plugins(p.Slug)
	if err != nil {
		c.deps.Logger.Warn("read installed plugin",
			slog.String("slug", p.Slug), slog.Any("err", err))
	}
	if len(records) == 0 {
		return c.installable(ctx, p, req), false
	}

	// Only the first plugin file in the directory is considered.
	installed := records[0].Version
	switch cmp := CompareVersions(p.Version, installed); {
	case cmp == 0:
		res.Status = StatusLatestInstalled
	case cmp < 0:
		res.Status = StatusNewerInstalled
		res.Version = installed
	default:
		stale = true
	}
	return res, stale
}

func (c *Classifier) installable(ctx context.Context, p *pluginsapi.Plugin, req Request) Result {
	res := Result{Status: StatusInstall}
	if req.CanInstall {
		res.URL = c.deps.URLs.NonceURL(ctx,
			"update.php?action=install-plugin&plugin="+url.QueryEscape(p.Slug),
			"install-plugin_"+p.Slug)
	}
	return res
}

func (c *Classifier) invalidateUpdates(ctx context.Context) {
	if err := c.deps.Store.Delete(ctx, update.CacheKey); err != nil {
		c.deps.Logger.Warn("delete stale update list", slog.Any("err", err))
	}
	if err := c.deps.Refresher.Refresh(ctx); err != nil {
		c.deps.Logger.Warn("refresh update list", slog.Any("err", err))
	}
}

func withFrom(res Result, from string) Result {
	if from != "" && res.URL != "" {
		res.URL += "&from=" + url.QueryEscape(from)
	}
	return res
}
