// Package pluginsapi is the client for the remote plugin directory.
package pluginsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/GoCodeAlone/wpadmin/internal/version"
)

// Directory actions.
const (
	ActionQueryPlugins      = "query_plugins"
	ActionPluginInformation = "plugin_information"
	ActionHotTags           = "hot_tags"
)

// ErrAPIFailed is matched by every failure of the directory call.
var ErrAPIFailed = errors.New("plugins_api_failed")

// UnexpectedErrorMessage is what the admin screens show for any failure.
const UnexpectedErrorMessage = "An unexpected error occurred. Something may be wrong with " +
	"WordPress.org or this server's configuration. If you continue to have problems, " +
	"please try the support forums."

// SupportURL is linked from UnexpectedErrorMessage.
const SupportURL = "https://wordpress.org/support/"

const insecureNotice = "WordPress could not establish a secure connection to WordPress.org. " +
	"Please contact your server administrator."

// APIError is returned for transport failures and unreadable responses.
type APIError struct {
	Message string
	// Data carries the transport error text or the unreadable body.
	Data string
}

func (e *APIError) Error() string { return e.Message }

// Unwrap lets errors.Is match ErrAPIFailed.
func (e *APIError) Unwrap() error { return ErrAPIFailed }

// Config configures the directory client.
type Config struct {
	// URL is the plain-http endpoint; the https form is tried first.
	URL        string
	Timeout    time.Duration
	UserAgent  string
	Locale     string
	PerPage    int
	DisableSSL bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:       "http://api.wordpress.org/plugins/info/1.0/",
		Timeout:   15 * time.Second,
		UserAgent: version.UserAgent(),
		Locale:    "en_US",
		PerPage:   24,
	}
}

// Hooks let other code adjust or answer directory calls.
type Hooks struct {
	// Args may rewrite the arguments before they are sent.
	Args func(action string, args Args) Args

	// Override may answer a call itself. handled=false falls through to the network.
	Override func(ctx context.Context, action string, args Args) (body []byte, handled bool, err error)

	// Result sees every outcome and may replace it.
	Result func(action string, args Args, body []byte, err error) ([]byte, error)
}

// Client talks to the plugin directory.
type Client struct {
	config     Config
	httpClient *http.Client
	hooks      Hooks
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHooks installs call hooks.
func WithHooks(h Hooks) Option {
	return func(c *Client) { c.hooks = h }
}

// WithLogger sets the logger used for the insecure-fallback warning.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a new directory client.
func NewClient(config Config, opts ...Option) *Client {
	def := DefaultConfig()
	if config.URL == "" {
		config.URL = def.URL
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.UserAgent == "" {
		config.UserAgent = def.UserAgent
	}
	if config.PerPage <= 0 {
		config.PerPage = def.PerPage
	}
	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call runs action against the directory and decodes the response into out.
func (c *Client) Call(ctx context.Context, action string, args Args, out any) error {
	_, err := c.call(ctx, action, args, out)
	return err
}

// call returns whether the answer came from the Override hook.
func (c *Client) call(ctx context.Context, action string, args Args, out any) (external bool, err error) {
	if args.PerPage == 0 {
		args.PerPage = c.config.PerPage
	}
	if args.Locale == "" {
		args.Locale = c.config.Locale
	}
	if c.hooks.Args != nil {
		args = c.hooks.Args(action, args)
	}

	var body []byte
	handled := false
	if c.hooks.Override != nil {
		body, handled, err = c.hooks.Override(ctx, action, args)
		external = handled && err == nil
	}
	if !handled {
		body, err = c.post(ctx, action, args)
	}
	if c.hooks.Result != nil {
		body, err = c.hooks.Result(action, args, body, err)
	}
	if err != nil {
		return false, err
	}
	if out == nil {
		return external, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, &APIError{Message: UnexpectedErrorMessage, Data: string(body)}
	}
	return external, nil
}

// post sends the request, trying https first unless disabled. Only a
// failed connection on the secure attempt falls back to plain http.
func (c *Client) post(ctx context.Context, action string, args Args) ([]byte, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	form := url.Values{}
	form.Set("action", action)
	form.Set("request", string(encoded))

	if !c.config.DisableSSL {
		secure := secureURL(c.config.URL)
		body, connected, err := c.send(ctx, secure, form)
		if connected || ctx.Err() != nil {
			if err != nil {
				return nil, err
			}
			return c.checkBody(body)
		}
		c.logger.Warn(UnexpectedErrorMessage+" ("+insecureNotice+")",
			slog.String("url", secure), slog.Any("err", err))
	}

	body, _, err := c.send(ctx, c.config.URL, form)
	if err != nil {
		return nil, err
	}
	return c.checkBody(body)
}

// send posts form to endpoint. connected is false when no HTTP response arrived.
func (c *Client) send(ctx context.Context, endpoint string, form url.Values) (body []byte, connected bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, false, &APIError{Message: UnexpectedErrorMessage, Data: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, &APIError{Message: UnexpectedErrorMessage, Data: err.Error()}
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, &APIError{Message: UnexpectedErrorMessage, Data: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, true, &APIError{
			Message: UnexpectedErrorMessage,
			Data:    fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(data), 200)),
		}
	}
	return data, true, nil
}

// checkBody rejects anything that is not a JSON object or array.
func (c *Client) checkBody(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') || !json.Valid(trimmed) {
		return nil, &APIError{Message: UnexpectedErrorMessage, Data: string(body)}
	}
	return trimmed, nil
}

// Information fetches plugin_information for slug.
func (c *Client) Information(ctx context.Context, slug string, fields map[string]bool) (*Plugin, error) {
	var p Plugin
	external, err := c.call(ctx, ActionPluginInformation, Args{
		Slug:   slug,
		IsSSL:  !c.config.DisableSSL,
		Fields: fields,
	}, &p)
	if err != nil {
		return nil, err
	}
	p.External = external
	return &p, nil
}

// Query runs query_plugins (search, tag, author, browse, or favorites).
func (c *Client) Query(ctx context.Context, args Args) (*QueryResult, error) {
	var res QueryResult
	if err := c.Call(ctx, ActionQueryPlugins, args, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// HotTags fetches the directory's popular tags.
func (c *Client) HotTags(ctx context.Context, args Args) (Tags, error) {
	var tags Tags
	if err := c.Call(ctx, ActionHotTags, args, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func secureURL(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// truncate cuts s to at most n-1 bytes on a rune boundary and marks the cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - 1
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
