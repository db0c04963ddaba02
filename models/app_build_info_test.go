package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppBuildInfo(t *testing.T) {
	info := NewAppBuildInfo("1.4.0", "2026-10-01", "")

	assert.Equal(t, "1.4.0", info.BuildVersion())
	assert.Equal(t, "2026-10-01", info.BuildDate())
	assert.Equal(t, "N/A", info.BuildCommit(), "missing linker values are reported as N/A")
	assert.Equal(t, "Build version: 1.4.0\nBuild date: 2026-10-01\nBuild commit: N/A\n", info.String())
}
