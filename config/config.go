// Package config defines the wpadmin application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Capability names understood by the admin screens.
const (
	CapInstallPlugins = "install_plugins"
	CapUpdatePlugins  = "update_plugins"
)

// Config is the top-level wpadmin configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server" toml:"server"`
	Auth      AuthConfig      `json:"auth" yaml:"auth" toml:"auth"`
	Site      SiteConfig      `json:"site" yaml:"site" toml:"site"`
	Directory DirectoryConfig `json:"directory" yaml:"directory" toml:"directory"`
	Updates   UpdatesConfig   `json:"updates" yaml:"updates" toml:"updates"`
	Cache     CacheConfig     `json:"cache" yaml:"cache" toml:"cache"`
	LogLevel  string          `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"` // listen address, e.g., ":8080"
}

// AuthConfig controls admin authentication.
type AuthConfig struct {
	JWTSecret string       `json:"jwt_secret" yaml:"jwt_secret" toml:"jwt_secret"`
	Users     []UserConfig `json:"users" yaml:"users" toml:"users"`
}

// UserConfig is one admin account.
type UserConfig struct {
	Name         string   `json:"name" yaml:"name" toml:"name"`
	PasswordHash string   `json:"password_hash" yaml:"password_hash" toml:"password_hash"` // bcrypt hash
	Capabilities []string `json:"capabilities" yaml:"capabilities" toml:"capabilities"`
	Favorites    string   `json:"favorites,omitempty" yaml:"favorites" toml:"favorites"` // directory username
}

// Can reports whether the user holds the capability.
func (u UserConfig) Can(capability string) bool {
	for _, c := range u.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// SiteConfig describes the local site the admin screens manage.
type SiteConfig struct {
	AdminURL    string `json:"admin_url" yaml:"admin_url" toml:"admin_url"`          // e.g. "/wp-admin/"
	PluginDir   string `json:"plugin_dir" yaml:"plugin_dir" toml:"plugin_dir"`       // local plugin root
	CoreVersion string `json:"core_version" yaml:"core_version" toml:"core_version"` // for compatibility warnings
	Locale      string `json:"locale" yaml:"locale" toml:"locale"`
}

// DirectoryConfig controls the remote plugin directory client.
type DirectoryConfig struct {
	URL        string   `json:"url" yaml:"url" toml:"url"`
	Timeout    Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
	PerPage    int      `json:"per_page" yaml:"per_page" toml:"per_page"`
	DisableSSL bool     `json:"disable_ssl" yaml:"disable_ssl" toml:"disable_ssl"`
	TagsTTL    Duration `json:"tags_ttl" yaml:"tags_ttl" toml:"tags_ttl"`
}

// UpdatesConfig controls the update-check endpoint.
type UpdatesConfig struct {
	URL string   `json:"url" yaml:"url" toml:"url"`
	TTL Duration `json:"ttl" yaml:"ttl" toml:"ttl"`
}

// Duration is a time.Duration written as text ("15s", "3h") in YAML and TOML.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// CacheConfig selects the transient store.
type CacheConfig struct {
	Driver string `json:"driver" yaml:"driver" toml:"driver"` // "sqlite" or "memory"
	Path   string `json:"path" yaml:"path" toml:"path"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Site: SiteConfig{
			AdminURL:    "/wp-admin/",
			PluginDir:   "./wp-content/plugins",
			CoreVersion: "4.1",
			Locale:      "en_US",
		},
		Directory: DirectoryConfig{
			URL:     "http://api.wordpress.org/plugins/info/1.0/",
			Timeout: Duration(15 * time.Second),
			PerPage: 24,
			TagsTTL: Duration(3 * time.Hour),
		},
		Updates: UpdatesConfig{
			URL: "http://api.wordpress.org/plugins/update-check/1.1/",
			TTL: Duration(12 * time.Hour),
		},
		Cache: CacheConfig{
			Driver: "sqlite",
			Path:   "./data/transients.db",
		},
		LogLevel: "info",
	}
}

// Load reads a YAML or TOML config file (chosen by extension) and returns
// the parsed configuration layered over DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at request time.
func (c *Config) Validate() error {
	if c.Site.PluginDir == "" {
		return fmt.Errorf("site.plugin_dir is required")
	}
	if c.Site.Locale != "" {
		if _, err := language.Parse(strings.ReplaceAll(c.Site.Locale, "_", "-")); err != nil {
			return fmt.Errorf("site.locale %q: %w", c.Site.Locale, err)
		}
	}
	switch c.Cache.Driver {
	case "", "sqlite", "memory":
	default:
		return fmt.Errorf("cache.driver %q: want sqlite or memory", c.Cache.Driver)
	}
	seen := make(map[string]bool, len(c.Auth.Users))
	for _, u := range c.Auth.Users {
		if u.Name == "" {
			return fmt.Errorf("auth.users: user without name")
		}
		if seen[u.Name] {
			return fmt.Errorf("auth.users: duplicate user %q", u.Name)
		}
		seen[u.Name] = true
	}
	return nil
}

// User looks up a configured user by name.
func (c *Config) User(name string) (UserConfig, bool) {
	for _, u := range c.Auth.Users {
		if u.Name == name {
			return u, true
		}
	}
	return UserConfig{}, false
}

// LanguageTag returns the site locale as a BCP 47 tag, falling back to English.
func (c *Config) LanguageTag() language.Tag {
	tag, err := language.Parse(strings.ReplaceAll(c.Site.Locale, "_", "-"))
	if err != nil {
		return language.English
	}
	return tag
}
