package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "wpadmin.yaml", `
server:
  addr: ":9999"
site:
  plugin_dir: /srv/wp/plugins
  locale: de_DE
directory:
  timeout: 5s
auth:
  users:
    - name: admin
      password_hash: "$2a$10$abc"
      capabilities: [install_plugins, update_plugins]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "/srv/wp/plugins", cfg.Site.PluginDir)
	assert.Equal(t, 5*time.Second, cfg.Directory.Timeout.Std())
	assert.Equal(t, 24, cfg.Directory.PerPage, "unset keys keep defaults")
	assert.Equal(t, 3*time.Hour, cfg.Directory.TagsTTL.Std())

	u, ok := cfg.User("admin")
	require.True(t, ok)
	assert.True(t, u.Can(CapInstallPlugins))
	assert.True(t, u.Can(CapUpdatePlugins))
	base, _ := cfg.LanguageTag().Base()
	assert.Equal(t, "de", base.String())
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "wpadmin.toml", `
log_level = "debug"

[site]
plugin_dir = "/tmp/plugins"

[directory]
timeout = "5s"
tags_ttl = "90m"

[updates]
ttl = "6h"

[cache]
driver = "memory"

[[auth.users]]
name = "editor"
capabilities = ["install_plugins"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 5*time.Second, cfg.Directory.Timeout.Std())
	assert.Equal(t, 90*time.Minute, cfg.Directory.TagsTTL.Std())
	assert.Equal(t, 6*time.Hour, cfg.Updates.TTL.Std())
	assert.Equal(t, 24, cfg.Directory.PerPage, "unset keys keep defaults")
	u, ok := cfg.User("editor")
	require.True(t, ok)
	assert.True(t, u.Can(CapInstallPlugins))
	assert.False(t, u.Can(CapUpdatePlugins))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad yaml", "a.yaml", "server: [unclosed"},
		{"bad driver", "b.yaml", "cache:\n  driver: redis\n"},
		{"duplicate user", "c.yaml", "auth:\n  users:\n    - name: a\n    - name: a\n"},
		{"bad locale", "d.yaml", "site:\n  locale: not a locale!\n"},
		{"bad yaml duration", "e.yaml", "directory:\n  timeout: soon\n"},
		{"bad toml duration", "f.toml", "[updates]\nttl = \"12 hours\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1h30m")))
	assert.Equal(t, 90*time.Minute, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1h30m0s", string(text))
}

func TestLanguageTag_FallsBackToEnglish(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Site.Locale = ""
	assert.Equal(t, language.English, cfg.LanguageTag())
}
