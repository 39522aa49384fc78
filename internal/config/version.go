package config

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags "-X .../internal/config.Version=..." at release time.
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is reported by /api/version, the MCP get_version tool and
// the CLI --version flag.
type VersionInfo struct {
	Version   string `json:"version"`
	Build     string `json:"build"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

// GetVersion returns the release version, "dev" for local builds.
func GetVersion() string {
	return Version
}

// GetVersionInfo returns the build metadata. When no commit was stamped in
// via ldflags the VCS revision recorded by the go tool is used instead.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{Version: Version, Build: Build, GitCommit: GitCommit, GoVersion: runtime.Version()}
	if info.GitCommit == "unknown" {
		info.GitCommit = vcsRevision(info.GitCommit)
	}
	return info
}

// GetFullVersion returns the one-line form printed by --version.
func GetFullVersion() string {
	info := GetVersionInfo()
	return fmt.Sprintf("%s (build: %s, commit: %s)", info.Version, info.Build, info.GitCommit)
}

func vcsRevision(fallback string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return fallback
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return fallback
}
