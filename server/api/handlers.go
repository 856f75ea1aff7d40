package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/GoCodeAlone/wpadmin/install"
	"github.com/GoCodeAlone/wpadmin/pluginsapi"
	"github.com/GoCodeAlone/wpadmin/update"
)

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Directory  Directory
	Classifier Classifier
	Tags       Tags
	Updates    Updates
	Logger     *slog.Logger
	Version    string
	StartAt    int64 // unix timestamp of server start

	// Request builds the classification request for the caller.
	// Nil means an anonymous caller with no capabilities.
	Request func(r *http.Request) install.Request
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/plugins", h.listPlugins)
	mux.HandleFunc("GET /api/plugins/{slug}", h.getPlugin)
	mux.HandleFunc("GET /api/plugins/{slug}/status", h.pluginStatus)

	mux.HandleFunc("GET /api/tags", h.listTags)

	mux.HandleFunc("GET /api/updates", h.listUpdates)
	mux.HandleFunc("POST /api/updates/refresh", h.refreshUpdates)

	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("GET /api/version", h.version)
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDirectoryError reports a failed directory call as a bad gateway.
func (h *Handlers) writeDirectoryError(w http.ResponseWriter, err error) {
	h.logger().Error("plugin directory request failed", slog.Any("err", err))
	var apiErr *pluginsapi.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": apiErr.Message,
			"data":  apiErr.Data,
		})
		return
	}
	writeError(w, http.StatusBadGateway, pluginsapi.UnexpectedErrorMessage)
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h *Handlers) request(r *http.Request) install.Request {
	var req install.Request
	if h.Request != nil {
		req = h.Request(r)
	}
	req.From = r.URL.Query().Get("from")
	return req
}

// --- Plugin handlers ---

func (h *Handlers) listPlugins(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	args := pluginsapi.Args{
		Search: q.Get("search"),
		Tag:    q.Get("tag"),
		Author: q.Get("author"),
		Browse: q.Get("browse"),
		User:   q.Get("user"),
		Page:   1,
	}
	if p := q.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid page: "+p)
			return
		}
		args.Page = n
	}
	if args.Search == "" && args.Tag == "" && args.Author == "" && args.Browse == "" && args.User == "" {
		args.Browse = "featured"
	}

	res, err := h.Directory.Query(r.Context(), args)
	if err != nil {
		h.writeDirectoryError(w, err)
		return
	}

	req := h.request(r)
	page := PluginPage{Info: res.Info, Plugins: make([]PluginStatus, 0, len(res.Plugins))}
	for i := range res.Plugins {
		p := &res.Plugins[i]
		page.Plugins = append(page.Plugins, PluginStatus{
			Plugin:        *p,
			InstallStatus: h.Classifier.Classify(r.Context(), p, req),
		})
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) getPlugin(w http.ResponseWriter, r *http.Request) {
	info, err := h.Directory.Information(r.Context(), r.PathValue("slug"), nil)
	if err != nil {
		h.writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handlers) pluginStatus(w http.ResponseWriter, r *http.Request) {
	info, err := h.Directory.Information(r.Context(), r.PathValue("slug"), nil)
	if err != nil {
		h.writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Classifier.Classify(r.Context(), info, h.request(r)))
}

// --- Tag handlers ---

func (h *Handlers) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.Tags.PopularTags(r.Context(), pluginsapi.Args{})
	if err != nil {
		h.writeDirectoryError(w, err)
		return
	}
	if tags == nil {
		tags = pluginsapi.Tags{}
	}
	writeJSON(w, http.StatusOK, tags)
}

// --- Update handlers ---

func (h *Handlers) listUpdates(w http.ResponseWriter, r *http.Request) {
	list, err := h.Updates.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list.Response == nil {
		list.Response = map[string]update.Offer{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) refreshUpdates(w http.ResponseWriter, r *http.Request) {
	if err := h.Updates.Refresh(r.Context()); err != nil {
		h.logger().Error("refresh update list", slog.Any("err", err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.listUpdates(w, r)
}

// --- Status / version ---

func (h *Handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  h.Version,
		"start_at": h.StartAt,
	})
}

// StatusHandler returns the status handler function for external registration.
func (h *Handlers) StatusHandler() http.HandlerFunc {
	return h.status
}

func (h *Handlers) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": h.Version,
	})
}
