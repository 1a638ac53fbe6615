// Package buildinfo provides build-time version information.
//
// Variables are set via ldflags during release builds:
//
//	go build -ldflags "-X github.com/matzehuels/fsm/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/fsm/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/fsm/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Binaries built with plain "go install" fall back to the module version and
// VCS stamps recorded by the toolchain.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	// Version is the semantic version (e.g., "v1.2.3").
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

var fill sync.Once

// Info is the resolved build information.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Get returns the build information, filling ldflags gaps from the binary's
// embedded build info.
func Get() Info {
	fill.Do(func() {
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && Commit == "none":
				Commit = s.Value
			case s.Key == "vcs.time" && Date == "unknown":
				Date = s.Value
			}
		}
	})
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// String returns the formatted build information.
func String() string {
	i := Get()
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", i.Version, i.Commit, i.Date)
}

// Template returns the version template string for cobra.
func Template() string {
	i := Get()
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", i.Version, i.Commit, i.Date)
}
