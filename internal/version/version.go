package version

import (
	"fmt"
	"strings"
)

// Version is the released version, overridden at build time:
//
//	go build -ldflags "-X github.com/hrygo/verdant/internal/version.Version=v0.3.0"
var Version = "0.0.0-dev"

// DevVersion is reported in dev and demo modes.
var DevVersion = Version

// GitCommit is the git commit hash at build time.
var GitCommit = "unknown"

// BuildTime is the build timestamp in RFC3339 format.
var BuildTime = "unknown"

// GetCurrentVersion returns the version reported for the given mode.
func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}

// String returns the version with a short commit suffix when known.
func String() string {
	if commit := shortCommit(); commit != "" {
		return fmt.Sprintf("%s-%s", Version, commit)
	}
	return Version
}

// StringFull returns the version with build metadata.
func StringFull() string {
	parts := []string{"Version=" + Version}
	if commit := shortCommit(); commit != "" {
		parts = append(parts, "Commit="+commit)
	}
	if BuildTime != "" && BuildTime != "unknown" {
		parts = append(parts, "BuildTime="+BuildTime)
	}
	return strings.Join(parts, " ")
}

func shortCommit() string {
	if GitCommit == "" || GitCommit == "unknown" {
		return ""
	}
	if len(GitCommit) > 8 {
		return GitCommit[:8]
	}
	return GitCommit
}
