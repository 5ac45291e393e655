package app

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deninstall/internal/config"
	internalruntime "deninstall/internal/runtime"
)

func TestComponentFactory_GetProber(t *testing.T) {
	f := NewComponentFactory(testConfig(t))

	prober, err := f.GetProber(config.ProbeCLI, "/usr/bin/docker", nil)
	require.NoError(t, err)
	assert.IsType(t, &internalruntime.CLIProber{}, prober)

	_, err = f.GetProber(config.ProbeAPI, "/usr/bin/docker", nil)
	assert.Error(t, err)

	_, err = f.GetProber("socket", "/usr/bin/docker", nil)
	assert.EqualError(t, err, "unsupported probe mode: socket")
}

func TestComponentFactory_GetPlatform(t *testing.T) {
	cfg := testConfig(t)
	cfg.Runtime.Binary = "/opt/docker/bin/docker"

	p, err := NewComponentFactory(cfg).GetPlatform()
	if err != nil {
		t.Skipf("platform not supported: %v", err)
	}

	assert.Equal(t, "/opt/docker/bin/docker", p.RuntimeBinaryPath())
	assert.Contains(t, p.InstalledMarkerPaths(), "/opt/docker/bin/docker")
}

func TestComponentFactory_GetPlatform_ResolvesInstalledBinary(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/usr/local/bin/docker", []byte("#!/bin/sh"), 0755))
	f := NewComponentFactory(testConfig(t))
	f.fs = fs

	p, err := f.GetPlatform()
	if err != nil {
		t.Skipf("platform not supported: %v", err)
	}

	assert.Equal(t, "/usr/local/bin/docker", p.RuntimeBinaryPath())
}
