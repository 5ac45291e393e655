package gate

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"20.10.16", "20.10.16"},
		{"20.10.16\n", "20.10.16"},
		{"v2.24.6", "2.24.6"},
		{"20.10.16-rc1", "20.10.16"},
		{"24.0.7+azure-1", "24.0.7"},
		{"20.10.21-0ubuntu1~22.04.3", "20.10.21"},
		{"2.2", "2.2.0"},
		{"27", "27.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := ParseVersion(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestParseVersion_Garbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "Cannot connect to the Docker daemon", "docker: command not found"} {
		_, err := ParseVersion(raw)
		assert.Error(t, err, "ParseVersion(%q)", raw)
	}
}

func TestSatisfies(t *testing.T) {
	minimum := semver.MustParse("20.10.16")

	tests := []struct {
		version string
		want    bool
	}{
		{"20.10.16", true},
		{"20.10.17", true},
		{"20.11.0", true},
		{"24.0.0", true},
		{"20.10.15", false},
		{"20.9.99", false},
		{"19.99.99", false},
		// pre-release suffixes are dropped before comparing
		{"20.10.16-rc1", true},
		{"20.10.15-rc9", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			v, err := ParseVersion(tt.version)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Satisfies(v, minimum))
		})
	}

	assert.False(t, Satisfies(nil, minimum))
}

func TestNewThreshold(t *testing.T) {
	th, err := NewThreshold("23.0.0", "v2.20.0")
	require.NoError(t, err)
	assert.Equal(t, "23.0.0", th.Runtime.String())
	assert.Equal(t, "2.20.0", th.Compose.String())

	_, err = NewThreshold("latest", "2.2.3")
	assert.ErrorContains(t, err, "runtime minimum")

	_, err = NewThreshold("20.10.16", "")
	assert.ErrorContains(t, err, "compose minimum")
}

func TestThreshold_Remediation(t *testing.T) {
	msg := DefaultThreshold().Remediation()

	for _, want := range []string{
		"Docker",
		"20.10.16",
		"2.2.3",
		"brew install --cask docker",
		"https://docs.docker.com/get-docker/",
		"use your system package manager",
	} {
		assert.Contains(t, msg, want)
	}
	assert.Equal(t, msg, DefaultThreshold().Remediation(), "remediation text must be stable")
}
