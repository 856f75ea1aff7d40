// Package api defines the REST API handlers and interfaces for the wpadmin server.
package api

import (
	"context"

	"github.com/GoCodeAlone/wpadmin/install"
	"github.com/GoCodeAlone/wpadmin/pluginsapi"
	"github.com/GoCodeAlone/wpadmin/update"
)

// Directory is the remote plugin directory.
// Implemented by *pluginsapi.Client.
type Directory interface {
	Query(ctx context.Context, args pluginsapi.Args) (*pluginsapi.QueryResult, error)
	Information(ctx context.Context, slug string, fields map[string]bool) (*pluginsapi.Plugin, error)
}

// Classifier decides how a directory plugin relates to the local install.
type Classifier interface {
	Classify(ctx context.Context, p *pluginsapi.Plugin, req install.Request) install.Result
}

// Tags returns the directory's popular tags.
type Tags interface {
	PopularTags(ctx context.Context, args pluginsapi.Args) (pluginsapi.Tags, error)
}

// Updates exposes the cached update list.
// Implemented by *update.Checker.
type Updates interface {
	Load(ctx context.Context) (*update.List, error)
	Refresh(ctx context.Context) error
}

// PluginStatus is a directory plugin together with its install status.
type PluginStatus struct {
	pluginsapi.Plugin
	InstallStatus install.Result `json:"install_status"`
}

// PluginPage is one page of directory results.
type PluginPage struct {
	Info    pluginsapi.QueryInfo `json:"info"`
	Plugins []PluginStatus       `json:"plugins"`
}
