// Package version carries build metadata injected with ldflags:
//
//	go build -ldflags "-X github.com/rickgao/bankrates/internal/version.Version=1.2.0 \
//	                   -X github.com/rickgao/bankrates/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/bankrates/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the build metadata as served by the API.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{Version: Version, Commit: Commit, BuildTime: BuildTime}
}

// String formats the build metadata for log lines and --version output.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}

// UserAgent is the default User-Agent sent to rate sources.
func UserAgent() string {
	return "bankrates/" + Version
}
