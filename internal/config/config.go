// Package config loads the docsbuild YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docsbuild/internal/artifact"
	"git.home.luguber.info/inful/docsbuild/internal/build"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "docsbuild.yaml"

// Config represents the application configuration
type Config struct {
	// Content is the documentation source tree, mounted read-only.
	Content    string           `yaml:"content"`
	Output     OutputConfig     `yaml:"output"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Runtime    RuntimeConfig    `yaml:"runtime"`
	Git        GitConfig        `yaml:"git"`
	Validation ValidationConfig `yaml:"validation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Report     ReportConfig     `yaml:"report,omitempty"`
	Metrics    MetricsConfig    `yaml:"metrics,omitempty"`
}

// OutputConfig represents output configuration
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"` // Clean output directory before build
}

// GeneratorConfig describes the external static-site generator.
type GeneratorConfig struct {
	// Command is the generator argv. {site_dir}, {content_dir} and
	// {config_file} are replaced with paths as the generator sees them.
	Command    []string `yaml:"command,flow"`
	ConfigFile string   `yaml:"config_file"`
	Timeout    Duration `yaml:"timeout"`
}

// RuntimeConfig selects where the generator runs.
type RuntimeConfig struct {
	Kind RuntimeKind `yaml:"kind"`
	// WorkspaceDir holds the read-only staging copy for the local runtime.
	WorkspaceDir  string       `yaml:"workspace_dir,omitempty"`
	KeepWorkspace bool         `yaml:"keep_workspace,omitempty"`
	Docker        DockerConfig `yaml:"docker"`
}

// DockerConfig configures the container runtime.
type DockerConfig struct {
	Image   string `yaml:"image"`
	Host    string `yaml:"host,omitempty"` // defaults to DOCKER_HOST
	Pull    bool   `yaml:"pull"`
	User    string `yaml:"user,omitempty"`
	Network string `yaml:"network,omitempty"`
}

// GitConfig controls the GIT_INFO value.
type GitConfig struct {
	CheckDirty bool `yaml:"check_dirty"`
	// Info pins GIT_INFO verbatim, e.g. for builds from exported tarballs.
	// Unset means probe the content tree.
	Info *string `yaml:"info,omitempty"`
}

// ValidationConfig tunes the artifact checks.
type ValidationConfig struct {
	Enabled          bool   `yaml:"enabled"`
	YearSample       int    `yaml:"year_sample"`
	GitSample        int    `yaml:"git_sample"`
	BuildDatePattern string `yaml:"build_date_pattern"`
	RevisionPattern  string `yaml:"revision_pattern"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// ReportConfig names the JSON build report file. It must live outside the output tree.
type ReportConfig struct {
	Path string `yaml:"path,omitempty"`
}

// MetricsConfig names a Prometheus textfile written after every build.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Duration is a time.Duration that reads and writes as "10m", "90s" etc.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{
		Output:     OutputConfig{Clean: true},
		Git:        GitConfig{CheckDirty: true},
		Validation: ValidationConfig{Enabled: true},
		Runtime:    RuntimeConfig{Docker: DockerConfig{Pull: true}},
	}
	applyDefaults(cfg)
	return cfg
}

// ErrNotFound reports a missing configuration file.
var ErrNotFound = errors.New("configuration file not found")

// Load loads configuration from the specified file. Variables from .env and
// .env.local are loaded first and ${VAR} references in the file are expanded.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- operator-supplied config path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, configPath)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from Default so that omitted booleans keep their defaults.
	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Content == "" {
		cfg.Content = "."
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "./site"
	}
	if len(cfg.Generator.Command) == 0 {
		cfg.Generator.Command = append([]string(nil), build.DefaultCommand...)
	}
	if cfg.Generator.ConfigFile == "" {
		cfg.Generator.ConfigFile = build.DefaultConfigFile
	}
	if cfg.Generator.Timeout == 0 {
		cfg.Generator.Timeout = Duration(build.DefaultTimeout)
	}
	if cfg.Runtime.Kind == "" {
		cfg.Runtime.Kind = RuntimeLocal
	}
	if cfg.Runtime.Docker.Image == "" {
		cfg.Runtime.Docker.Image = build.DefaultImage
	}
	if cfg.Validation.YearSample == 0 {
		cfg.Validation.YearSample = artifact.DefaultYearSample
	}
	if cfg.Validation.GitSample == 0 {
		cfg.Validation.GitSample = artifact.DefaultGitSample
	}
	if cfg.Validation.BuildDatePattern == "" {
		cfg.Validation.BuildDatePattern = artifact.DefaultBuildDatePattern
	}
	if cfg.Validation.RevisionPattern == "" {
		cfg.Validation.RevisionPattern = artifact.DefaultRevisionPattern
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Default()
	example.Content = "./docs-src"
	example.Runtime.Docker.Network = "none"
	example.Report.Path = "./build-report.json"

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	header := "# docsbuild configuration. ${VAR} references are expanded from the environment.\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
