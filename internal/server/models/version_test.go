package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	for _, ok := range []string{"1.0.0", "0.1.2-alpha.1", "1.2.3+build.5", "10.20.30"} {
		got, err := ParseVersion(ok)
		require.NoError(t, err, ok)
		assert.Equal(t, ok, got)
	}
	for _, bad := range []string{"", "1", "1.2", "v1.2.3", "1.2.3.4", "01.2.3", "x.y.z"} {
		_, err := ParseVersion(bad)
		assert.Error(t, err, bad)
	}
}

func TestMaxVersion(t *testing.T) {
	assert.Equal(t, "0.0.0", MaxVersion(nil))
	assert.Equal(t, "1.10.0", MaxVersion([]string{"1.2.0", "1.10.0", "1.9.9"}))
	assert.Equal(t, "2.0.0", MaxVersion([]string{"2.0.0-rc.1", "2.0.0", "1.0.0"}))
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, -1, CompareVersions("1.0.0-alpha", "1.0.0"))
	assert.Equal(t, 0, CompareVersions("1.0.0", "1.0.0"))
	assert.Equal(t, 1, CompareVersions("1.0.1", "1.0.0"))
}
