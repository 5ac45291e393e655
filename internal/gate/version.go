package gate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	DefaultRuntimeMinimum = "20.10.16"
	DefaultComposeMinimum = "2.2.3"
)

// versionCore captures the leading major[.minor[.patch]] of a tool's output.
// Anything after it (pre-release, build metadata, distro suffixes such as
// "-0ubuntu1~22.04") is not compared.
var versionCore = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// ParseVersion reduces raw to its numeric core. "20.10.16-rc1" parses as
// 20.10.16 and so satisfies a 20.10.16 minimum.
func ParseVersion(raw string) (*semver.Version, error) {
	m := versionCore.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return nil, fmt.Errorf("unrecognised version %q", raw)
	}

	core := m[1] + "." + zeroIfEmpty(m[2]) + "." + zeroIfEmpty(m[3])
	v, err := semver.NewVersion(core)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	return v, nil
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// Satisfies reports v >= minimum.
func Satisfies(v, minimum *semver.Version) bool {
	if v == nil || minimum == nil {
		return false
	}
	return !v.LessThan(minimum)
}

// Threshold is the pair of minimum versions one installer release demands.
type Threshold struct {
	Runtime *semver.Version
	Compose *semver.Version
}

func NewThreshold(runtimeMin, composeMin string) (Threshold, error) {
	rt, err := ParseVersion(runtimeMin)
	if err != nil {
		return Threshold{}, fmt.Errorf("runtime minimum: %w", err)
	}
	cp, err := ParseVersion(composeMin)
	if err != nil {
		return Threshold{}, fmt.Errorf("compose minimum: %w", err)
	}
	return Threshold{Runtime: rt, Compose: cp}, nil
}

func DefaultThreshold() Threshold {
	return Threshold{
		Runtime: semver.MustParse(DefaultRuntimeMinimum),
		Compose: semver.MustParse(DefaultComposeMinimum),
	}
}

// Remediation is the operator-facing text shown whenever the gate fails.
func (t Threshold) Remediation() string {
	return fmt.Sprintf(`Den requires Docker Engine %s or newer and Docker Compose %s or newer.
Docker is missing, not running, or too old on this machine. To install or upgrade it:
  - run: brew install --cask docker
  - download it from https://docs.docker.com/get-docker/
  - or use your system package manager`, t.Runtime, t.Compose)
}
