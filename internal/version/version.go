// Package version holds build metadata stamped in via -ldflags.
package version

import "fmt"

var (
	// Version is the current engine version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the build metadata on one line.
func String() string {
	return fmt.Sprintf("kde %s (%s, built %s)", Version, GitSHA, BuildTime)
}
