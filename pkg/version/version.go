// Package version derives the build identity from VCS metadata. An
// -ldflags override takes precedence for container builds where .git is
// not part of the build context.
package version

import "runtime/debug"

// AppName appears in version strings and the health endpoint.
const AppName = "clipforge"

// gitCommitOverride is injected with -ldflags; empty means no override.
var gitCommitOverride string

// GitCommit is the short commit hash, or "dev" when no VCS metadata is
// available (go test, source tarballs).
var GitCommit = resolveCommit()

func resolveCommit() string {
	if gitCommitOverride != "" {
		return shorten(gitCommitOverride)
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return shorten(s.Value)
			}
		}
	}
	return "dev"
}

func shorten(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}

// Full returns "clipforge/<commit>".
func Full() string {
	return AppName + "/" + GitCommit
}
