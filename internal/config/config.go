// Package config loads the application configuration. Defaults are
// applied first, then an optional YAML file, then PETPULSE_* environment
// variables, so the environment always wins.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	validator "github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"petpulse/internal/errors"
	"petpulse/internal/pipeline"
)

// envPrefix namespaces the environment variables.
const envPrefix = "PETPULSE"

// Config is the complete application configuration.
type Config struct {
	// DataDir is where raw input files are discovered when the pipeline
	// section does not name them explicitly.
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR"`

	Logging  LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Pipeline pipeline.RunSpec `yaml:"pipeline"`
	Report   ReportConfig     `yaml:"report" envconfig:"REPORT"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"omitempty,oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"omitempty,oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// ReportConfig controls the summary report step.
type ReportConfig struct {
	Enabled      bool   `yaml:"enabled" envconfig:"ENABLED"`
	MarkdownPath string `yaml:"markdown_path" envconfig:"MARKDOWN_PATH"`
	JSONPath     string `yaml:"json_path" envconfig:"JSON_PATH"`
}

// Default returns the configuration used when nothing else is set. The
// directory layout mirrors the analysis template: raw inputs under
// data/, prepared data and reports under products/.
func Default() Config {
	return Config{
		DataDir: "data",
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: filepath.Join("logs", "petpulse.log"),
		},
		Report: ReportConfig{
			Enabled:      true,
			MarkdownPath: filepath.Join("products", "eda_report.md"),
			JSONPath:     filepath.Join("products", "eda_report.json"),
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file
// at path, and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NewMissingFileError(path, err)
			}
			return nil, errors.NewConfigError(fmt.Sprintf("cannot read config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("cannot parse config file %s", path), err)
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, errors.NewConfigError("cannot read configuration from environment", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration fields that every command needs.
// The pipeline section is validated separately because cmd/report runs
// without one.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c.Logging); err != nil {
		return errors.NewConfigError("invalid logging configuration", err)
	}
	if c.DataDir == "" {
		return errors.NewConfigError("data_dir must not be empty", nil)
	}
	return nil
}

// ValidatePipeline checks the pipeline section for a prepare run.
func (c *Config) ValidatePipeline() error {
	if err := validator.New().Struct(c.Pipeline); err != nil {
		return errors.NewConfigError("invalid pipeline configuration", err)
	}
	return nil
}

// HasPipeline reports whether the config file supplied an explicit
// pipeline section, as opposed to relying on the built-in defaults.
func (c *Config) HasPipeline() bool {
	return len(c.Pipeline.Inputs) > 0
}
