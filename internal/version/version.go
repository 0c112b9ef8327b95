// Package version provides build-time version information.
package version

import "fmt"

// Set at build time with -ldflags "-X ink-hatch/internal/version.Version=...".
var (
	Version   = "0.3.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats all three values for -version output.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
