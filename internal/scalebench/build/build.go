// Package build holds information about the running binary. The variables are set at link time, e.g.
//
//	go build -ldflags "-X github.com/armadaproject/scalebench/internal/scalebench/build.GitCommit=$(git rev-parse HEAD)"
package build

var (
	ReleaseVersion = "UNKNOWN_VERSION"
	GitCommit      = "UNKNOWN_GITCOMMIT"
	GoVersion      = "UNKNOWN_GOVERSION"
	BuildTime      = "UNKNOWN_BUILDTIME"
)
