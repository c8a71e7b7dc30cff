// Package version exposes build metadata stamped at link time, e.g.
//
//	go build -ldflags "\
//	  -X github.com/spotwatch/spotwatch/internal/version.Version=1.2.0 \
//	  -X github.com/spotwatch/spotwatch/internal/version.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/spotwatch/spotwatch/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import "fmt"

// Stamped by the linker; the zero build is "dev".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns the build info as a single line for --version output.
func String() string {
	return fmt.Sprintf("%s (%s) built %s", Version, Commit, BuildTime)
}
