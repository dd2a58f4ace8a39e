package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ModeStdin = "stdin"
	ModeHTTP  = "http"
)

// Config holds every setting of the process. Load reads an optional YAML file
// and then applies environment overrides.
type Config struct {
	Mode string `yaml:"mode"`

	Server struct {
		Port                  string        `yaml:"port"`
		ShutdownTimeout       time.Duration `yaml:"shutdown_timeout"`
		MaxConcurrentRequests int64         `yaml:"max_concurrent_requests"`
		MaintenanceMode       bool          `yaml:"maintenance_mode"`
		RequestLogging        bool          `yaml:"request_logging"`
	} `yaml:"server"`

	RateLimit struct {
		Disabled bool          `yaml:"disabled"`
		Max      int           `yaml:"max"`
		Window   time.Duration `yaml:"window"`
	} `yaml:"rate_limit"`

	OrderBook struct {
		DefaultDepth int `yaml:"default_depth"`
		MaxDepth     int `yaml:"max_depth"`
	} `yaml:"orderbook"`

	Engine struct {
		LoopBuffer int `yaml:"loop_buffer"`
	} `yaml:"engine"`

	Metrics struct {
		MaxLatencies int `yaml:"max_latencies"`
	} `yaml:"metrics"`

	Kafka Kafka `yaml:"kafka"`

	Logging Logging `yaml:"logging"`
}

type Logging struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "json" or "pretty"
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Kafka publishing is off while Brokers is empty.
type Kafka struct {
	Brokers   []string `yaml:"brokers"`
	Topic     string   `yaml:"topic"`
	QueueSize int      `yaml:"queue_size"`
	BatchSize int      `yaml:"batch_size"`
}

func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

// Default returns a complete configuration for stdin mode.
func Default() *Config {
	cfg := &Config{Mode: ModeStdin}

	cfg.Server.Port = "8080"
	cfg.Server.ShutdownTimeout = 10 * time.Second
	cfg.Server.RequestLogging = true

	cfg.RateLimit.Max = 100
	cfg.RateLimit.Window = time.Second

	cfg.OrderBook.DefaultDepth = 10
	cfg.OrderBook.MaxDepth = 1000

	cfg.Engine.LoopBuffer = 1024
	cfg.Metrics.MaxLatencies = 10000

	cfg.Kafka.Topic = "trades"
	cfg.Kafka.QueueSize = 4096
	cfg.Kafka.BatchSize = 100

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.MaxSizeMB = 10
	cfg.Logging.MaxBackups = 3
	cfg.Logging.MaxAgeDays = 28

	return cfg
}

// Load starts from Default, overlays the YAML file at path (skipped when path
// is empty) and then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigError{Field: "path", Err: err}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{Field: "yaml", Err: err}
		}
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Mode != ModeStdin && c.Mode != ModeHTTP {
		return &ConfigError{Field: "mode", Err: fmt.Errorf("must be %q or %q, got %q", ModeStdin, ModeHTTP, c.Mode)}
	}
	if c.Mode == ModeHTTP && c.Server.Port == "" {
		return &ConfigError{Field: "server.port", Err: errors.New("required in http mode")}
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window < time.Second {
		return &ConfigError{Field: "rate_limit", Err: errors.New("max must be positive and window at least 1s")}
	}
	if c.OrderBook.DefaultDepth <= 0 || c.OrderBook.MaxDepth < c.OrderBook.DefaultDepth {
		return &ConfigError{Field: "orderbook", Err: errors.New("default_depth must be positive and not above max_depth")}
	}
	if c.Engine.LoopBuffer < 0 {
		return &ConfigError{Field: "engine.loop_buffer", Err: errors.New("must not be negative")}
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return &ConfigError{Field: "kafka.topic", Err: errors.New("required when brokers are set")}
	}
	return nil
}

// ConfigError names the setting that failed.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Path returns the config file named by MATCH_CONFIG, if any.
func Path() string {
	return os.Getenv("MATCH_CONFIG")
}

func overrideWithEnv(cfg *Config) error {
	if v := os.Getenv("MATCH_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("MAINTENANCE_MODE"); v != "" {
		cfg.Server.MaintenanceMode = v == "1"
	}
	if v := os.Getenv("REQUEST_LOGGING_DISABLED"); v != "" {
		cfg.Server.RequestLogging = v != "1"
	}
	if v := os.Getenv("RATE_LIMIT_DISABLED"); v != "" {
		cfg.RateLimit.Disabled = v == "1"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout},
		{"RATE_LIMIT_WINDOW", &cfg.RateLimit.Window},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			return &ConfigError{Field: d.env, Err: fmt.Errorf("invalid duration %q", v)}
		}
		*d.dst = parsed
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"RATE_LIMIT_MAX", &cfg.RateLimit.Max},
		{"ORDERBOOK_DEFAULT_DEPTH", &cfg.OrderBook.DefaultDepth},
		{"ORDERBOOK_MAX_DEPTH", &cfg.OrderBook.MaxDepth},
		{"METRICS_MAX_LATENCIES", &cfg.Metrics.MaxLatencies},
		{"LOOP_BUFFER", &cfg.Engine.LoopBuffer},
	}
	for _, i := range ints {
		v := os.Getenv(i.env)
		if v == "" {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return &ConfigError{Field: i.env, Err: fmt.Errorf("invalid positive integer %q", v)}
		}
		*i.dst = parsed
	}

	if v := os.Getenv("MAX_CONCURRENT_REQUESTS"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			return &ConfigError{Field: "MAX_CONCURRENT_REQUESTS", Err: fmt.Errorf("invalid count %q", v)}
		}
		cfg.Server.MaxConcurrentRequests = parsed
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
