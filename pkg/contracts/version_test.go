package contracts

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, APIVersion, info.APIVersion)
	assert.Equal(t, RuleSetFormatVersion, info.RuleSetFormat)
	assert.Equal(t, IsStable(), info.Stable)
	assert.Equal(t, IsPrerelease(), info.Prerelease)
}

func TestVersionStrings(t *testing.T) {
	assert.Equal(t, "datacheck v"+Version, GetVersionString())

	full := GetFullVersionString()
	assert.True(t, strings.HasPrefix(full, GetVersionString()))
	assert.Contains(t, full, "commit: "+GitCommit)
}

func TestReleaseStage(t *testing.T) {
	assert.Equal(t, VersionPrerelease != "", IsPrerelease())
	assert.False(t, IsStable(), "0.x releases are not stable")
}
