// Package version reports the build identity used in log lines and
// outbound User-Agent strings.
package version

import (
	"runtime/debug"
	"sync"
)

// AppName prefixes every version string.
const AppName = "kredefy"

var (
	once   sync.Once
	commit string
)

// Commit returns the short VCS revision this binary was built from, with a
// "-dirty" suffix when the tree had uncommitted changes. Builds without VCS
// stamping (go test, source archives) report "dev".
func Commit() string {
	once.Do(func() { commit = readCommit() })
	return commit
}

func readCommit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	var rev, suffix string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			if s.Value == "true" {
				suffix = "-dirty"
			}
		}
	}
	if rev == "" {
		return "dev"
	}
	if len(rev) > 8 {
		rev = rev[:8]
	}
	return rev + suffix
}

// Full returns "kredefy/<commit>".
func Full() string {
	return AppName + "/" + Commit()
}
