package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/resrules/pkg/telemetry"
)

// DefaultAgentDir is where the cluster installs its resource agents.
const DefaultAgentDir = "/usr/share/cluster"

// Environment variables read by Load.
const (
	EnvAgentDir     = "RESRULES_AGENT_DIR"
	EnvProbeTimeout = "RESRULES_PROBE_TIMEOUT"
	EnvJournal      = "RESRULES_JOURNAL"
	EnvLogLevel     = "LOG_LEVEL"
)

// Config is the complete resrules configuration.
type Config struct {
	// AgentDir is the directory scanned for resource agents.
	AgentDir string `yaml:"agent_dir" validate:"required"`

	// ProbeTimeout bounds each metadata probe. Zero waits indefinitely.
	ProbeTimeout time.Duration `yaml:"probe_timeout" validate:"gte=0"`

	// Journal configures the optional scan journal.
	Journal JournalConfig `yaml:"journal"`

	// Telemetry configures logging, tracing and metrics.
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// JournalConfig configures the SQLite scan journal.
type JournalConfig struct {
	// Path is the database file. Empty disables the journal.
	Path string `yaml:"path"`

	// Retain is the number of scans kept. Zero keeps all.
	Retain int `yaml:"retain" validate:"gte=0"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		AgentDir:  DefaultAgentDir,
		Telemetry: *telemetry.DefaultConfig(),
		Journal: JournalConfig{
			Retain: 100,
		},
	}
}

// Load builds a configuration from the defaults, the YAML file at path (if
// path is not empty) and the environment. It does not validate; call
// Validate once flags have been applied.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML data over cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAgentDir); v != "" {
		c.AgentDir = v
	}
	if v := os.Getenv(EnvProbeTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvProbeTimeout, err)
		}
		c.ProbeTimeout = d
	}
	if v := os.Getenv(EnvJournal); v != "" {
		c.Journal.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Telemetry.Logging.Level = v
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration, including the nested telemetry
// settings, against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed '%s' check", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
