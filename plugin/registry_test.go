package plugin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloDolly = `<?php
/**
 * @package Hello_Dolly
 * @version 1.6
 */
/*
Plugin Name: Hello Dolly
Plugin URI: http://wordpress.org/plugins/hello-dolly/
Description: This is not just a plugin: it symbolizes hope.
Author: Matt Mullenweg
Version: 1.6
Author URI: http://ma.tt/
*/
function hello_dolly() {}
`

func pluginFile(name, version string) string {
	return "<?php\n/*\n * Plugin Name: " + name + "\n * Version: " + version + "\n */\n"
}

func newTestRoot(t *testing.T, files map[string]string) *Registry {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return NewRegistry(root)
}

func TestParseHeaders(t *testing.T) {
	rec, ok, err := ParseHeaders(strings.NewReader(helloDolly))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hello Dolly", rec.Name)
	assert.Equal(t, "1.6", rec.Version)
	assert.Equal(t, "Matt Mullenweg", rec.Author)
	assert.Equal(t, "http://ma.tt/", rec.AuthorURI)
	assert.Equal(t, "http://wordpress.org/plugins/hello-dolly/", rec.PluginURI)
	assert.Equal(t, "This is not just a plugin: it symbolizes hope.", rec.Description)
}

func TestParseHeaders_FirstMatchCaseInsensitive(t *testing.T) {
	src := `<?php
/*
 * PLUGIN NAME: Shouty
 * version: 1.2
 */
// Version: 9.9 is what the changelog below mentions.
/* Plugin Name: Not this one */
`
	rec, ok, err := ParseHeaders(strings.NewReader(src))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Shouty", rec.Name)
	assert.Equal(t, "1.2", rec.Version)
}

func TestParseHeaders_NotAPlugin(t *testing.T) {
	_, ok, err := ParseHeaders(strings.NewReader("<?php\n// helper functions\nfunction x() {}\n"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseHeaders_TrailingCommentClose(t *testing.T) {
	rec, ok, err := ParseHeaders(strings.NewReader("<?php\n/* Plugin Name: Tiny */ ?>"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Tiny", rec.Name)
}

func TestRegistry_HasDirAndPlugins(t *testing.T) {
	reg := newTestRoot(t, map[string]string{
		"akismet/akismet.php":     pluginFile("Akismet", "3.0.4"),
		"akismet/class.admin.php": "<?php class Akismet_Admin {}\n",
		"empty-dir/readme.txt":    "nothing here",
		"multi/b.php":             pluginFile("Multi B", "2.0"),
		"multi/a.php":             pluginFile("Multi A", "1.0"),
	})

	assert.True(t, reg.HasDir("akismet"))
	assert.True(t, reg.HasDir("empty-dir"))
	assert.False(t, reg.HasDir("jetpack"))
	assert.False(t, reg.HasDir("../etc"))

	recs, err := reg.Plugins("akismet")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "akismet/akismet.php", recs[0].File)
	assert.Equal(t, "akismet", recs[0].Slug)
	assert.Equal(t, "3.0.4", recs[0].Version)

	recs, err = reg.Plugins("empty-dir")
	require.NoError(t, err)
	assert.Empty(t, recs, "a directory without plugin files holds no plugins")

	recs, err = reg.Plugins("jetpack")
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = reg.Plugins("multi")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "multi/a.php", recs[0].File, "plugins are sorted by file")

	_, err = reg.Plugins("a/b")
	assert.Error(t, err)
}

func TestRegistry_All(t *testing.T) {
	reg := newTestRoot(t, map[string]string{
		"hello.php":           helloDolly,
		"index.php":           "<?php // Silence is golden.\n",
		"akismet/akismet.php": pluginFile("Akismet", "3.0.4"),
		".git/hooks.php":      pluginFile("Hidden", "1"),
	})

	all, err := reg.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "akismet/akismet.php", all[0].File)
	assert.Equal(t, "hello.php", all[1].File)
	assert.Equal(t, "hello", all[1].Slug)
}

func TestRegistry_AllMissingRoot(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "nope"))
	all, err := reg.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRegistry_Get(t *testing.T) {
	reg := newTestRoot(t, map[string]string{
		"akismet/akismet.php": pluginFile("Akismet", "3.0.4"),
	})

	rec, ok := reg.Get("akismet/akismet.php")
	require.True(t, ok)
	assert.Equal(t, "Akismet", rec.Name)

	_, ok = reg.Get("../outside.php")
	assert.False(t, ok)
	_, ok = reg.Get("akismet/missing.php")
	assert.False(t, ok)
}
