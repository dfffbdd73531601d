// Package version exposes build-time version information.
package version

// Version is the semantic version of the running binary.
// Overridden at build time via -ldflags "-X github.com/aristath/modelgate/internal/version.Version=...".
var Version = "dev"

// Commit is the git commit the binary was built from.
var Commit = "unknown"

// String returns a human-readable version string.
func String() string {
	return Version + " (" + Commit + ")"
}
