package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	EnvPath          = "PATH"
	EnvHome          = "HOME"
	EnvDir           = "DEN_DIR"
	EnvHomeDir       = "DEN_HOME_DIR"
	EnvLegacyDir     = "WARDEN_DIR"
	EnvLegacyHomeDir = "WARDEN_HOME_DIR"
)

type envVar struct {
	name  string
	value string
}

// Environment is an ordered overlay of variables applied to spawned tools.
// The installer never writes it into its own process environment.
type Environment struct {
	vars []envVar
}

// NewEnvironment builds the overlay the installed CLI expects. Legacy and
// current names always carry the same value.
func NewEnvironment(prefix, home, currentPath, fallbackBinDir string) Environment {
	var env Environment
	env.Set(EnvPath, appendPathEntry(currentPath, fallbackBinDir))
	env.Set(EnvHome, home)
	env.Set(EnvLegacyDir, prefix)
	env.Set(EnvDir, prefix)
	env.Set(EnvLegacyHomeDir, home)
	env.Set(EnvHomeDir, home)
	return env
}

// Set adds or replaces name.
func (e *Environment) Set(name, value string) {
	for i := range e.vars {
		if e.vars[i].name == name {
			e.vars[i].value = value
			return
		}
	}
	e.vars = append(e.vars, envVar{name: name, value: value})
}

func (e Environment) Get(name string) (string, bool) {
	for _, v := range e.vars {
		if v.name == name {
			return v.value, true
		}
	}
	return "", false
}

func (e Environment) Names() []string {
	names := make([]string, 0, len(e.vars))
	for _, v := range e.vars {
		names = append(names, v.name)
	}
	return names
}

// Apply returns base with the overlay's variables replacing any existing
// entries of the same name.
func (e Environment) Apply(base []string) []string {
	out := make([]string, 0, len(base)+len(e.vars))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, overridden := e.Get(name); overridden {
			continue
		}
		out = append(out, kv)
	}
	for _, v := range e.vars {
		out = append(out, v.name+"="+v.value)
	}
	return out
}

// Exports renders the overlay as POSIX shell export statements, PATH excluded.
func (e Environment) Exports() []string {
	var lines []string
	for _, v := range e.vars {
		if v.name == EnvPath {
			continue
		}
		lines = append(lines, fmt.Sprintf("export %s=%s", v.name, shellQuote(v.value)))
	}
	return lines
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func appendPathEntry(current, dir string) string {
	if dir == "" {
		return current
	}
	if current == "" {
		return dir
	}
	for _, entry := range filepath.SplitList(current) {
		if filepath.Clean(entry) == filepath.Clean(dir) {
			return current
		}
	}
	return current + string(os.PathListSeparator) + dir
}
