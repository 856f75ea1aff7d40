package admin

import (
	"embed"
	"io/fs"
)

//go:embed css
var assets embed.FS

// Assets returns the stylesheets referenced by the admin layout, rooted so
// that "css/plugin-install.css" resolves next to the admin pages.
func Assets() fs.FS {
	return assets
}
