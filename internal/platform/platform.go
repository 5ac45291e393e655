// Package platform describes where the container runtime lives on each
// supported operating system.
package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/afero"
)

// Platform exposes the fixed, per-OS locations of the container runtime.
type Platform interface {
	Name() string
	// RuntimeBinaryPath is the docker CLI the installer invokes.
	RuntimeBinaryPath() string
	// InstalledMarkerPaths are checked for existence; any hit means installed.
	InstalledMarkerPaths() []string
	// FallbackBinDir is appended to PATH for spawned tools.
	FallbackBinDir() string
}

type darwin struct{}

func (darwin) Name() string              { return "darwin" }
func (darwin) RuntimeBinaryPath() string { return "/usr/local/bin/docker" }
func (darwin) FallbackBinDir() string    { return "/usr/local/bin" }

func (darwin) InstalledMarkerPaths() []string {
	return []string{
		"/Applications/Docker.app",
		"/usr/local/bin/docker",
		"/Applications/Docker.app/Contents/Resources/bin/docker",
	}
}

type linux struct{}

func (linux) Name() string              { return "linux" }
func (linux) RuntimeBinaryPath() string { return "/usr/bin/docker" }
func (linux) FallbackBinDir() string    { return "/usr/local/bin" }

func (linux) InstalledMarkerPaths() []string {
	return []string{
		"/usr/bin/docker",
		"/usr/local/bin/docker",
	}
}

// ForOS returns the adapter for goos.
func ForOS(goos string) (Platform, error) {
	switch goos {
	case "darwin":
		return darwin{}, nil
	case "linux":
		return linux{}, nil
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", goos)
	}
}

// Current returns the adapter for the running OS.
func Current() (Platform, error) {
	return ForOS(runtime.GOOS)
}

// WithBinary overrides the runtime binary location. The override also counts
// as an installed marker.
func WithBinary(p Platform, binary string) Platform {
	if binary == "" {
		return p
	}
	return overridden{Platform: p, binary: binary}
}

type overridden struct {
	Platform
	binary string
}

func (o overridden) RuntimeBinaryPath() string { return o.binary }

func (o overridden) InstalledMarkerPaths() []string {
	return append([]string{o.binary}, o.Platform.InstalledMarkerPaths()...)
}

// Resolve points the runtime binary at a marker that actually exists on fs.
// The default path wins when present; otherwise the first marker that is a
// regular file is used. Directory markers such as an application bundle
// never become the binary. With no usable marker p is returned unchanged.
func Resolve(fs afero.Fs, p Platform) Platform {
	if isFile(fs, p.RuntimeBinaryPath()) {
		return p
	}
	for _, path := range p.InstalledMarkerPaths() {
		if isFile(fs, path) {
			slog.Info("Using Docker client found at install marker", "binary", path, "default", p.RuntimeBinaryPath())
			return WithBinary(p, path)
		}
	}
	return p
}

func isFile(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Cannot stat Docker client candidate", "path", path, "error", err)
		}
		return false
	}
	return info.Mode().IsRegular()
}
