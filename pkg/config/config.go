package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// EigenvectorConfig controls the eigenvector power iteration.
type EigenvectorConfig struct {
	MaxIterations int     `yaml:"max_iterations" validate:"min=1"`
	Tolerance     float64 `yaml:"tolerance" validate:"gt=0"`
}

// CommunityConfig controls community detection.
type CommunityConfig struct {
	Seed       int64   `yaml:"seed"`
	Resolution float64 `yaml:"resolution" validate:"gt=0"`
	MaxPasses  int     `yaml:"max_passes" validate:"min=1"`
}

// PostgresConfig configures the optional database sink. An empty URL
// disables the sink.
type PostgresConfig struct {
	URL   string `yaml:"url"`
	Table string `yaml:"table" validate:"required_with=URL"`
}

// Config is the full pipeline configuration.
type Config struct {
	InputDir  string `yaml:"input_dir" validate:"required"`
	OutputDir string `yaml:"output_dir" validate:"required"`

	// Workers bounds snapshot-level parallelism. Zero means one
	// worker per CPU.
	Workers int `yaml:"workers" validate:"min=0"`

	// Boroughs is the canonical spatial unit list injected into every
	// snapshot. Empty means no injection.
	Boroughs []string `yaml:"boroughs"`

	MetricsAddr string `yaml:"metrics_addr"`

	Eigenvector EigenvectorConfig `yaml:"eigenvector"`
	Community   CommunityConfig   `yaml:"community"`
	Postgres    PostgresConfig    `yaml:"postgres"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		InputDir:  "data/graphs",
		OutputDir: "data/metrics",
		Eigenvector: EigenvectorConfig{
			MaxIterations: 100,
			Tolerance:     1e-6,
		},
		Community: CommunityConfig{
			Seed:       1,
			Resolution: 1.0,
			MaxPasses:  10,
		},
		Postgres: PostgresConfig{
			Table: "panel_metrics",
		},
	}
}

// Load reads a YAML configuration file over the defaults, applies
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values from the environment. Env wins over
// file so deployments can keep one config file per dataset.
func (c *Config) applyEnv() {
	if v := os.Getenv("FLOWPANEL_INPUT_DIR"); v != "" {
		c.InputDir = v
	}
	if v := os.Getenv("FLOWPANEL_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("FLOWPANEL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("FLOWPANEL_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("FLOWPANEL_POSTGRES_URL"); v != "" {
		c.Postgres.URL = v
	}
}

// Validate checks the configuration using struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "required_with":
			return fmt.Errorf("%s: required when %s is set", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
