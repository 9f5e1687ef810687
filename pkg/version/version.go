// Package version holds build-time version information.
package version

// Set via -ldflags at build time:
//
//	go build -ldflags "-X github.com/duopath-network/duopath/pkg/version.Version=v0.3.0 \
//	                   -X github.com/duopath-network/duopath/pkg/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	Version   = "dev"
	GitCommit = "unknown"
)
