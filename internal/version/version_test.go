package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionStrings(t *testing.T) {
	origVersion, origCommit, origBuild := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = origVersion, origCommit, origBuild })

	Version, GitCommit, BuildTime = "0.3.0", "unknown", "unknown"
	assert.Equal(t, "0.3.0", String())
	assert.Equal(t, "Version=0.3.0", StringFull())

	GitCommit, BuildTime = "0123456789abcdef", "2026-01-02T03:04:05Z"
	assert.Equal(t, "0.3.0-01234567", String())
	assert.Equal(t, "Version=0.3.0 Commit=01234567 BuildTime=2026-01-02T03:04:05Z", StringFull())
}

func TestGetCurrentVersion(t *testing.T) {
	assert.Equal(t, DevVersion, GetCurrentVersion("dev"))
	assert.Equal(t, Version, GetCurrentVersion("prod"))
}
