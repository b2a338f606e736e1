// Package config provides configuration loading with layered overrides.
// Load order: defaults -> YAML/JSON file -> environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	configloader "github.com/GabrielNunesIT/go-libs/config-loader"
	"github.com/creasty/defaults"

	"github.com/tilaka3/collector/internal/constraints"
	"github.com/tilaka3/collector/internal/fileinput"
	"github.com/tilaka3/collector/internal/pathset"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "COLLECTOR_"

// Config is the root configuration structure for the collector.
type Config struct {
	LogLevel    string         `koanf:"loglevel" yaml:"log_level" json:"log_level"`
	LogFile     string         `koanf:"logfile" yaml:"log_file" json:"log_file"`
	MetricsAddr string         `koanf:"metricsaddr" yaml:"metrics_addr" json:"metrics_addr"` // empty disables /metrics
	Inputs      InputsConfig   `koanf:"inputs"`
	Enricher    EnricherConfig `koanf:"enricher"`
	Output      OutputConfig   `koanf:"output"`
}

// InputsConfig holds all configured inputs.
// Inputs are identified by name across reloads, so names must be unique.
type InputsConfig struct {
	File []FileInputConfig `koanf:"file" validate:"unique=Name,dive"`
}

// FileInputConfig configures a single file input.
// Pointer fields distinguish an omitted value (defaulted) from an explicit zero.
type FileInputConfig struct {
	Name                   string `koanf:"name"`
	Path                   string `koanf:"path"`
	Charset                string `koanf:"charset" default:"UTF-8"`
	ReaderBufferSize       *int   `koanf:"readerbuffersize" yaml:"reader_buffer_size" json:"reader_buffer_size" default:"102400"`
	ReaderInterval         *int   `koanf:"readerinterval" yaml:"reader_interval" json:"reader_interval" default:"100"` // milliseconds
	ContentSplitter        string `koanf:"contentsplitter" yaml:"content_splitter" json:"content_splitter" default:"NEWLINE" validate:"isoneof=NEWLINE PATTERN"`
	ContentSplitterPattern string `koanf:"contentsplitterpattern" yaml:"content_splitter_pattern" json:"content_splitter_pattern"`
}

// EnricherConfig configures the metadata added to every entry.
type EnricherConfig struct {
	Enabled      bool              `koanf:"enabled"`
	AddHostname  bool              `koanf:"addhostname" yaml:"add_hostname" json:"add_hostname"`
	AddTimestamp bool              `koanf:"addtimestamp" yaml:"add_timestamp" json:"add_timestamp"`
	StaticLabels map[string]string `koanf:"staticlabels" yaml:"static_labels" json:"static_labels"`
}

// OutputConfig controls how collected entries are written.
type OutputConfig struct {
	Format string `koanf:"format" validate:"isoneof=json text"` // "json" or "text"
}

// Configuration converts the loaded values into the form the validator and
// the file ingestor work with. An empty path yields no PathSet.
func (f FileInputConfig) Configuration() fileinput.Configuration {
	cfg := fileinput.Configuration{
		Name:                   f.Name,
		Charset:                f.Charset,
		ContentSplitter:        f.ContentSplitter,
		ContentSplitterPattern: f.ContentSplitterPattern,
	}
	if f.ReaderBufferSize != nil {
		cfg.ReaderBufferSize = *f.ReaderBufferSize
	}
	if f.ReaderInterval != nil {
		cfg.ReaderInterval = *f.ReaderInterval
	}
	if f.Path != "" {
		cfg.PathSet = pathset.New(f.Path)
	}
	return cfg
}

// FileInputs returns the converted configurations of all file inputs.
func (c *Config) FileInputs() []fileinput.Configuration {
	cfgs := make([]fileinput.Configuration, 0, len(c.Inputs.File))
	for _, f := range c.Inputs.File {
		cfgs = append(cfgs, f.Configuration())
	}
	return cfgs
}

// ValidationError lists every problem found by Validate.
type ValidationError struct {
	Constraints []constraints.Violation
	Inputs      []fileinput.Failure
}

// Problems returns the number of rejected fields and inputs.
func (e *ValidationError) Problems() int {
	return len(e.Constraints) + len(e.Inputs)
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid configuration:")
	for _, c := range e.Constraints {
		fmt.Fprintf(&sb, "\n  %s: %s", c.Field, c.Error())
	}
	for _, f := range e.Inputs {
		fmt.Fprintf(&sb, "\n  inputs.file[%d] (%s): %s", f.Index, f.Name, f.Violation.Error())
	}
	return sb.String()
}

// Validate checks the struct constraints and every file input.
// It returns a *ValidationError listing all problems when anything is rejected.
func (c *Config) Validate(v *fileinput.Validator) error {
	violations, err := constraints.New().Struct(c)
	if err != nil {
		return fmt.Errorf("checking constraints: %w", err)
	}

	failures := v.ValidateAll(c.FileInputs())
	if len(violations) > 0 || len(failures) > 0 {
		return &ValidationError{Constraints: violations, Inputs: failures}
	}
	return nil
}

// defaultConfig returns the default configuration values.
func defaultConfig() Config {
	return Config{
		LogLevel: "info",
		Enricher: EnricherConfig{
			Enabled:     true,
			AddHostname: true,
		},
		Output: OutputConfig{
			Format: "json",
		},
	}
}

// applyInputDefaults fills omitted per-input values. List elements are not
// covered by the loader's defaults.
func applyInputDefaults(cfg *Config) error {
	for i := range cfg.Inputs.File {
		if err := defaults.Set(&cfg.Inputs.File[i]); err != nil {
			return fmt.Errorf("applying defaults to inputs.file[%d]: %w", i, err)
		}
		if cfg.Inputs.File[i].Name == "" {
			cfg.Inputs.File[i].Name = fmt.Sprintf("file-%d", i)
		}
	}
	return nil
}

// Load reads configuration from all sources with proper override order.
// Order: defaults -> config file -> environment variables.
func Load(configPath string) (*Config, error) {
	opts := []configloader.Option[Config]{
		configloader.WithDefaults[Config](defaultConfig()),
	}

	// Add file source if path provided or if default config exists
	if configPath != "" {
		opts = append(opts, configloader.WithFile[Config](configPath))
	} else {
		for _, path := range []string{"./config.yaml", "/etc/collector/config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				opts = append(opts, configloader.WithFile[Config](path))
				break
			}
		}
	}

	opts = append(opts, configloader.WithEnv[Config](EnvPrefix))

	loader := configloader.NewConfigLoader[Config](opts...)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	if err := applyInputDefaults(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
