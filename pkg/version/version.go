package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Service is the name reported by /health and the CLI
const Service = "eventstats-backend"

// Build information, set via -ldflags "-X .../pkg/version.Version=..."
var (
	Version   = "dev"
	GitCommit = ""
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains all build-related information
type BuildInfo struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// commit prefers the ldflags value and falls back to the VCS stamp the go
// tool embeds in module builds
func commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}

// GetVersion returns the current version
func GetVersion() string {
	if !IsDevBuild() {
		return Version
	}
	c := commit()
	if c == "unknown" {
		return "dev-unknown"
	}
	if len(c) > 8 {
		c = c[:8]
	}
	return "dev-" + c
}

// GetFullVersion returns a detailed version string
func GetFullVersion() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, go: %s)",
		Service, GetVersion(), commit(), BuildDate, GoVersion)
}

// GetBuildInfo returns all build information
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Service:   Service,
		Version:   GetVersion(),
		GitCommit: commit(),
		BuildDate: BuildDate,
		GoVersion: GoVersion,
	}
}

// IsDevBuild returns true if this is a development build
func IsDevBuild() bool {
	return Version == "dev"
}
