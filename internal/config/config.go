// Package config loads pipeline configuration from YAML with environment
// variable overrides, following the teacher's config-loading shape:
// defaults first, then file, then environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the top-level configuration for one pipeline run.
type Config struct {
	Source          string             `yaml:"source"`
	DatabaseURL     string             `yaml:"database_url"`
	WorkersPerStage [6]int             `yaml:"workers_per_stage"`
	EnableRename    bool               `yaml:"enable_rename"`
	ExportTarget    ExportTargetConfig `yaml:"export_target"`
	QueueCapacity   int                `yaml:"queue_capacity"`
	TempDir         string             `yaml:"temp_dir"`

	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Notifier NotifierConfig `yaml:"notifier"`
}

// ExportFormat selects the sample-library layout convention the Export
// stage writes into, alongside a byte-for-byte copy.
type ExportFormat string

const (
	ExportFormatMPCOne    ExportFormat = "mpc-one"
	ExportFormatAkaiForce ExportFormat = "akai-force"
	ExportFormatBoth      ExportFormat = "both"
)

// ExportTargetConfig is the optional Export stage destination: a directory
// plus which hardware-sampler naming convention to lay files out under.
type ExportTargetConfig struct {
	Path   string       `yaml:"path"`
	Format ExportFormat `yaml:"format"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TracingConfig controls OpenTelemetry OTLP export.
type TracingConfig struct {
	Enabled      bool          `yaml:"enabled"`
	OTLPEndpoint string        `yaml:"otlp_endpoint"`
	Timeout      time.Duration `yaml:"timeout"`
}

// NotifierConfig controls change-event publishing.
type NotifierConfig struct {
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
}

// Load reads configFile (if non-empty) and layers environment-variable
// overrides on top, applying defaults for anything left unset.
func Load(configFile string) (*Config, error) {
	cfg := &Config{}

	if configFile != "" {
		if err := loadFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", configFile, err)
		}
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 10_000
	}
	for i, w := range cfg.WorkersPerStage {
		if w <= 0 {
			cfg.WorkersPerStage[i] = 4
		}
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.Tracing.Timeout == 0 {
		cfg.Tracing.Timeout = 5 * time.Second
	}
	if cfg.ExportTarget.Path != "" && cfg.ExportTarget.Format == "" {
		cfg.ExportTarget.Format = ExportFormatMPCOne
	}
}

// applyEnvironmentOverrides layers MIDI_INGEST_-prefixed environment
// variables on top of file-loaded and default values, matching the
// teacher's env-var-override-after-defaults ordering.
func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("MIDI_INGEST_SOURCE"); v != "" {
		cfg.Source = v
	}
	if v := os.Getenv("MIDI_INGEST_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("MIDI_INGEST_EXPORT_TARGET"); v != "" {
		cfg.ExportTarget.Path = v
	}
	if v := os.Getenv("MIDI_INGEST_EXPORT_FORMAT"); v != "" {
		cfg.ExportTarget.Format = ExportFormat(v)
	}
	if v := os.Getenv("MIDI_INGEST_ENABLE_RENAME"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EnableRename = b
		}
	}
	if v := os.Getenv("MIDI_INGEST_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueueCapacity = n
		}
	}
	if v := os.Getenv("MIDI_INGEST_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MIDI_INGEST_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("MIDI_INGEST_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.OTLPEndpoint = v
	}
	if v := os.Getenv("MIDI_INGEST_KAFKA_BROKERS"); v != "" {
		cfg.Notifier.KafkaBrokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MIDI_INGEST_KAFKA_TOPIC"); v != "" {
		cfg.Notifier.KafkaTopic = v
	}
}

// Validate checks invariants Load's caller depends on: a source directory
// must be set, queue_capacity must be at least 2, a Kafka topic is required
// when brokers are configured, and an export target with a path must name
// one of the supported export formats.
func Validate(cfg *Config) error {
	if cfg.Source == "" {
		return fmt.Errorf("source is required")
	}
	if cfg.QueueCapacity < 2 {
		return fmt.Errorf("queue_capacity must be at least 2, got %d", cfg.QueueCapacity)
	}
	if len(cfg.Notifier.KafkaBrokers) > 0 && cfg.Notifier.KafkaTopic == "" {
		return fmt.Errorf("notifier.kafka_topic is required when kafka_brokers is set")
	}
	if cfg.ExportTarget.Path != "" {
		switch cfg.ExportTarget.Format {
		case ExportFormatMPCOne, ExportFormatAkaiForce, ExportFormatBoth:
		default:
			return fmt.Errorf("export_target.format must be one of mpc-one, akai-force, both, got %q", cfg.ExportTarget.Format)
		}
	}
	return nil
}
