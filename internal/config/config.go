// Package config provides unified configuration loading for spread.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/spread/internal/models"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// FileName is the config file looked up under ~/.spread.
const FileName = "config.yaml"

// SpreadConfig contains all spread configuration settings.
type SpreadConfig struct {
	// Model holds the simulation parameters.
	Model models.Parameters `json:"model" yaml:"model"`

	// Inputs names the record files. Paths support ${VAR} expansion.
	Inputs InputsConfig `json:"inputs" yaml:"inputs"`

	// Run contains execution and output settings.
	Run RunConfig `json:"run" yaml:"run"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// InputsConfig names the map, network and sample files.
type InputsConfig struct {
	Map     string `json:"map" yaml:"map"`
	Network string `json:"network" yaml:"network"`
	Sample  string `json:"sample" yaml:"sample"`
}

// RunConfig configures execution and outputs.
type RunConfig struct {
	// Workers > 1 runs repetitions in parallel.
	Workers int `json:"workers" yaml:"workers"`

	// SaveOutputs writes the parameters file, final state and lineage table
	// to OutputDir.
	SaveOutputs bool   `json:"save_outputs" yaml:"save_outputs"`
	OutputDir   string `json:"output_dir" yaml:"output_dir"`

	// SaveEvery writes a state dump every k iterations (0 = never).
	SaveEvery int `json:"save_every" yaml:"save_every"`

	// Store is the SQLite run log path; empty disables the run log.
	Store string `json:"store,omitempty" yaml:"store,omitempty"`

	// Plot is the PNG path of the occupancy curve; empty disables it.
	Plot string `json:"plot,omitempty" yaml:"plot,omitempty"`
}

// LoggingConfig configures spread's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the per-iteration trace file in the output directory.
	// "trace" additionally logs every walk.
	Level string `json:"level" yaml:"level"`
}

// Default returns a SpreadConfig with sensible defaults.
func Default() *SpreadConfig {
	return &SpreadConfig{
		Model: models.DefaultParameters(),
		Run: RunConfig{
			Workers:   1,
			OutputDir: "output",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default location and environment variables.
// Order: defaults -> ~/.spread/config.yaml -> environment variables
func Load() (*SpreadConfig, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".spread", FileName)
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFile loads path and then applies environment overrides.
func LoadFile(path string) (*SpreadConfig, error) {
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Fields missing
// from the file keep their defaults.
func LoadFromFile(path string) (*SpreadConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Inputs.Map = expandEnvVars(config.Inputs.Map)
	config.Inputs.Network = expandEnvVars(config.Inputs.Network)
	config.Inputs.Sample = expandEnvVars(config.Inputs.Sample)
	config.Run.Store = expandEnvVars(config.Run.Store)
	config.Run.OutputDir = expandEnvVars(config.Run.OutputDir)
	config.normalizeEnums()

	return config, nil
}

// Marshal renders the configuration as YAML.
func (c *SpreadConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks that the configuration is valid.
func (c *SpreadConfig) Validate() error {
	var errs []error
	if err := c.Model.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Run.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Run.Workers))
	}
	if c.Run.SaveEvery < 0 {
		errs = append(errs, fmt.Errorf("save_every must be non-negative, got %d", c.Run.SaveEvery))
	}
	if (c.Run.SaveOutputs || c.Run.SaveEvery > 0) && c.Run.OutputDir == "" {
		errs = append(errs, fmt.Errorf("output_dir is required when outputs are saved"))
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ToParameters returns the validated simulation parameters.
func (c *SpreadConfig) ToParameters() (models.Parameters, error) {
	if err := c.Validate(); err != nil {
		return models.Parameters{}, err
	}
	return c.Model, nil
}

// normalizeEnums canonicalizes enum spellings ("gaussian" -> NORMAL). Values
// that do not parse are left for Validate to report.
func (c *SpreadConfig) normalizeEnums() {
	if v, err := models.ParseDataType(string(c.Model.DataType)); err == nil {
		c.Model.DataType = v
	}
	if v, err := models.ParseScoreFunction(string(c.Model.ScoreFunction)); err == nil {
		c.Model.ScoreFunction = v
	}
	if v, err := models.ParseJumpLaw(string(c.Model.JumpLaw)); err == nil {
		c.Model.JumpLaw = v
	}
	if v, err := models.ParseConnectivityMetric(string(c.Model.Connectivity)); err == nil {
		c.Model.Connectivity = v
	}
}

// applyEnvOverrides applies SPREAD_* environment variable overrides.
func applyEnvOverrides(config *SpreadConfig) error {
	var errs []error
	setInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	setFloat := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = f
		}
	}

	if v := os.Getenv("SPREAD_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("SPREAD_SEED: %w", err))
		} else {
			config.Model.Seed = seed
		}
	}
	setInt("SPREAD_REPETITIONS", &config.Model.Repetitions)
	setInt("SPREAD_ITERATIONS", &config.Model.Iterations)
	setFloat("SPREAD_LAMBDA", &config.Model.Lambda)
	setFloat("SPREAD_MU", &config.Model.Mu)
	setInt("SPREAD_WORKERS", &config.Run.Workers)

	if v := os.Getenv("SPREAD_STORE"); v != "" {
		config.Run.Store = v
	}
	if v := os.Getenv("SPREAD_OUTPUT_DIR"); v != "" {
		config.Run.OutputDir = v
	}
	if v := os.Getenv("SPREAD_LOG_LEVEL"); v != "" {
		config.Logging.Level = strings.ToLower(v)
	}

	if len(errs) > 0 {
		return fmt.Errorf("environment overrides: %w", errors.Join(errs...))
	}
	return nil
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
