// Package version exposes build-time version information. The
// variables are overridden at build time via -ldflags.
package version

import "fmt"

var (
	// Version is the semantic version of this build.
	Version = "0.1.0"

	// Commit is the git commit the binary was built from.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// Short returns just the version number.
func Short() string {
	return Version
}

// Info returns a human-readable version string.
func Info() string {
	return fmt.Sprintf("tokenchat %s (commit %s, built %s)", Version, Commit, Date)
}

// Map returns the version fields for JSON responses.
func Map() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
	}
}
