package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Registry reads installed plugins from a plugin root on disk.
type Registry struct {
	root string
}

// NewRegistry creates a Registry rooted at dir.
func NewRegistry(dir string) *Registry {
	return &Registry{root: dir}
}

// HasDir reports whether a directory for slug exists in the plugin root.
// A directory alone does not mean the plugin is installed; see Plugins.
func (r *Registry) HasDir(slug string) bool {
	if !validSlug(slug) {
		return false
	}
	fi, err := os.Stat(filepath.Join(r.root, slug))
	return err == nil && fi.IsDir()
}

// Plugins returns the plugin files directly inside the slug's directory,
// sorted by file name. A missing directory yields no plugins and no error.
func (r *Registry) Plugins(slug string) ([]Record, error) {
	if !validSlug(slug) {
		return nil, fmt.Errorf("invalid plugin slug %q", slug)
	}
	recs, err := r.scanDir(slug)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return recs, err
}

// All returns every installed plugin: single-file plugins in the root and
// plugins one directory below it, sorted by file.
func (r *Registry) All() ([]Record, error) {
	entries, err := os.ReadDir(r.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read plugin root %s: %w", r.root, err)
	}

	var all []Record
	rootRecs, err := r.scanDir("")
	if err != nil {
		return nil, err
	}
	all = append(all, rootRecs...)

	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		recs, err := r.scanDir(e.Name())
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].File < all[j].File })
	return all, nil
}

// Get returns the plugin with the given file, relative to the root.
func (r *Registry) Get(file string) (Record, bool) {
	clean := filepath.ToSlash(filepath.Clean(file))
	if strings.HasPrefix(clean, "../") || filepath.IsAbs(file) {
		return Record{}, false
	}
	rec, ok, err := parseFile(filepath.Join(r.root, filepath.FromSlash(clean)))
	if err != nil || !ok {
		return Record{}, false
	}
	rec.File = clean
	rec.Slug = slugFor(clean)
	return rec, true
}

// scanDir parses every .php file directly inside root/sub.
func (r *Registry) scanDir(sub string) ([]Record, error) {
	dir := filepath.Join(r.root, sub)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("read plugin dir %s: %w", dir, err)
	}

	var recs []Record
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".php") {
			continue
		}
		rec, ok, err := parseFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		if !ok {
			continue
		}
		rec.File = e.Name()
		if sub != "" {
			rec.File = sub + "/" + e.Name()
		}
		rec.Slug = slugFor(rec.File)
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].File < recs[j].File })
	return recs, nil
}

func slugFor(file string) string {
	if dir, _, ok := strings.Cut(file, "/"); ok {
		return dir
	}
	return strings.TrimSuffix(file, filepath.Ext(file))
}

func validSlug(slug string) bool {
	return slug != "" && slug != "." && slug != ".." && !strings.ContainsAny(slug, `/\`)
}
