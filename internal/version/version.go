// Package version provides build-time version information.
package version

import "fmt"

// Set via -ldflags at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// UserAgent is sent on every outbound request to the plugin directory.
func UserAgent() string {
	return fmt.Sprintf("wpadmin/%s", Version)
}
