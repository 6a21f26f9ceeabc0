// Package version exposes build metadata stamped by the release pipeline
// via -ldflags.
package version

// Defaults identify a local development build.
//
//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
