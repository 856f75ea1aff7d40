// Package plugin reads the locally installed plugins from the plugin root.
// A plugin is a PHP file whose leading comment block carries a "Plugin Name:"
// header; it either sits directly in the root or one directory below it.
package plugin

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"regexp"
	"strings"
)

// Record is the metadata of one installed plugin file.
type Record struct {
	// File is the plugin file relative to the plugin root, e.g. "akismet/akismet.php".
	File string `json:"file"`

	// Slug is the directory holding the plugin, or the file name without
	// extension for single-file plugins.
	Slug string `json:"slug"`

	Name        string `json:"name"`
	PluginURI   string `json:"plugin_uri,omitempty"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	AuthorURI   string `json:"author_uri,omitempty"`
	TextDomain  string `json:"text_domain,omitempty"`
}

// headerLimit is how much of a file is scanned for headers.
const headerLimit = 8 * 1024

// headerFields is keyed by the lower-cased header name.
var headerFields = map[string]func(*Record, string){
	"plugin name": func(r *Record, v string) { r.Name = v },
	"plugin uri":  func(r *Record, v string) { r.PluginURI = v },
	"version":     func(r *Record, v string) { r.Version = v },
	"description": func(r *Record, v string) { r.Description = v },
	"author":      func(r *Record, v string) { r.Author = v },
	"author uri":  func(r *Record, v string) { r.AuthorURI = v },
	"text domain": func(r *Record, v string) { r.TextDomain = v },
}

// headerLine matches "  * Version: 1.2.3" and friends. Leading comment
// decoration is stripped before the key.
var headerLine = regexp.MustCompile(`^[\s/*#@]*([A-Za-z][A-Za-z ]*?)\s*:\s*(.*)$`)

// ParseHeaders reads plugin headers from the start of r. Header names are
// case-insensitive and the first occurrence of each wins. ok is false when
// the data carries no "Plugin Name:" header.
func ParseHeaders(r io.Reader) (rec Record, ok bool, err error) {
	data, err := io.ReadAll(io.LimitReader(r, headerLimit))
	if err != nil {
		return Record{}, false, err
	}
	data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))

	seen := make(map[string]bool, len(headerFields))
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		m := headerLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		key := strings.ToLower(m[1])
		set, known := headerFields[key]
		if !known || seen[key] {
			continue
		}
		seen[key] = true
		set(&rec, cleanHeaderValue(m[2]))
	}
	return rec, rec.Name != "", sc.Err()
}

// cleanHeaderValue trims a trailing comment close and surrounding space.
func cleanHeaderValue(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.Index(v, "*/"); i >= 0 {
		v = v[:i]
	}
	if i := strings.Index(v, "?>"); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func parseFile(path string) (Record, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, false, err
	}
	defer f.Close() //nolint:errcheck
	return ParseHeaders(f)
}
