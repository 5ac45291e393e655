// Package config loads installer settings from an optional YAML file and
// DEN_INSTALLER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"deninstall/internal/gate"
	"deninstall/internal/installer"
)

const (
	EnvPrefix = "DEN_INSTALLER"

	ProbeCLI = "cli"
	ProbeAPI = "api"

	DefaultSourceURL    = "https://github.com/swiftotter/den.git"
	DefaultSourceBranch = "main"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

type Config struct {
	Runtime RuntimeConfig `mapstructure:"runtime"`
	Compose ComposeConfig `mapstructure:"compose"`
	Install InstallConfig `mapstructure:"install"`
	Source  SourceConfig  `mapstructure:"source"`
}

type RuntimeConfig struct {
	// Binary overrides the platform's docker path when set.
	Binary            string `mapstructure:"binary"`
	MinVersion        string `mapstructure:"min_version" validate:"required,semver"`
	MinComposeVersion string `mapstructure:"min_compose_version" validate:"required,semver"`
	RunningPolicy     string `mapstructure:"running_policy" validate:"required,oneof=require defer"`
	Probe             string `mapstructure:"probe" validate:"required,oneof=cli api"`
}

type ComposeConfig struct {
	Project         string `mapstructure:"project" validate:"required"`
	Service         string `mapstructure:"service" validate:"required"`
	VersionBuildArg string `mapstructure:"version_build_arg" validate:"required"`
}

type InstallConfig struct {
	// FallbackBinDir overrides the platform's fallback PATH entry when set.
	FallbackBinDir string `mapstructure:"fallback_bin_dir"`
}

type SourceConfig struct {
	URL    string `mapstructure:"url" validate:"required,url"`
	Branch string `mapstructure:"branch" validate:"required"`
}

// Threshold converts the configured minimums into a gate threshold.
func (c *Config) Threshold() (gate.Threshold, error) {
	return gate.NewThreshold(c.Runtime.MinVersion, c.Runtime.MinComposeVersion)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("runtime.binary", "")
	v.SetDefault("runtime.min_version", gate.DefaultRuntimeMinimum)
	v.SetDefault("runtime.min_compose_version", gate.DefaultComposeMinimum)
	v.SetDefault("runtime.running_policy", string(gate.PolicyRequire))
	v.SetDefault("runtime.probe", ProbeCLI)
	v.SetDefault("compose.project", installer.DefaultProject)
	v.SetDefault("compose.service", installer.DefaultService)
	v.SetDefault("compose.version_build_arg", installer.DefaultVersionBuildArg)
	v.SetDefault("install.fallback_bin_dir", "")
	v.SetDefault("source.url", DefaultSourceURL)
	v.SetDefault("source.branch", DefaultSourceBranch)
}

// Load returns the validated configuration. An empty filePath uses defaults
// and the environment only.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filePath != "" {
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", filePath)
		}
		v.SetConfigFile(filePath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("config file not found: %s", filePath)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config - malformed YAML: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, formatValidationError(err)
	}

	return &cfg, nil
}

func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("validation failed: %w", err)
	}

	var messages []string
	for _, e := range validationErrors {
		messages = append(messages, formatFieldError(e))
	}
	if len(messages) == 1 {
		return fmt.Errorf("validation error: %s", messages[0])
	}
	return fmt.Errorf("validation errors:\n  - %s", strings.Join(messages, "\n  - "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required but missing", field)
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, e.Param())
	case "semver":
		return fmt.Sprintf("field '%s' must be a semantic version like 20.10.16, got %q", field, e.Value())
	case "url":
		return fmt.Sprintf("field '%s' must be a valid URL", field)
	default:
		return fmt.Sprintf("field '%s' failed validation (%s)", field, e.Tag())
	}
}
