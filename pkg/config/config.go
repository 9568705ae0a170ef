package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cuemby/karatekonnect/pkg/storage"
	"gopkg.in/yaml.v3"
)

// Config holds everything the client needs to reach the roster document
type Config struct {
	APIBase         string        `yaml:"api_base" env:"KARATEKONNECT_API_BASE"`
	ResourceKind    string        `yaml:"resource_kind" env:"KARATEKONNECT_RESOURCE_KIND"`
	DocumentID      string        `yaml:"document_id" env:"KARATEKONNECT_DOCUMENT_ID"`
	Filename        string        `yaml:"filename" env:"KARATEKONNECT_FILENAME"`
	CacheTTL        time.Duration `yaml:"cache_ttl" env:"KARATEKONNECT_CACHE_TTL"`
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"KARATEKONNECT_REFRESH_INTERVAL"`
	Timeout         time.Duration `yaml:"timeout" env:"KARATEKONNECT_TIMEOUT"`
	FetchRetries    uint          `yaml:"fetch_retries" env:"KARATEKONNECT_FETCH_RETRIES"`
	DataDir         string        `yaml:"data_dir" env:"KARATEKONNECT_DATA_DIR"`
	Backend         string        `yaml:"backend" env:"KARATEKONNECT_BACKEND"`
	LogLevel        string        `yaml:"log_level" env:"KARATEKONNECT_LOG_LEVEL"`
	JSONLogs        bool          `yaml:"json_logs" env:"KARATEKONNECT_JSON_LOGS"`
	MetricsAddr     string        `yaml:"metrics_addr" env:"KARATEKONNECT_METRICS_ADDR"`

	// DefaultStats lists the stat axes in display order with the value an
	// athlete shows before it is ever scored
	DefaultStats []Stat `yaml:"default_stats"`
}

// Stat is one named score axis
type Stat struct {
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		APIBase:         "https://api.github.com",
		ResourceKind:    "gists",
		Filename:        "karatekonnect-data.json",
		CacheTTL:        5 * time.Minute,
		RefreshInterval: 5 * time.Minute,
		Timeout:         10 * time.Second,
		FetchRetries:    2,
		DataDir:         defaultDataDir(),
		Backend:         storage.BackendBolt,
		LogLevel:        "info",
		DefaultStats: []Stat{
			{Name: "Strength", Value: 50},
			{Name: "Endurance", Value: 50},
			{Name: "Stamina", Value: 50},
			{Name: "Agility", Value: 50},
			{Name: "Speed", Value: 50},
			{Name: "Flexibility", Value: 50},
			{Name: "Intelligence", Value: 50},
			{Name: "Technique", Value: 50},
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then KARATEKONNECT_* environment variables
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the fields every command depends on
func (c Config) Validate() error {
	var errs []error
	if c.APIBase == "" {
		errs = append(errs, errors.New("api_base is required"))
	}
	if c.ResourceKind == "" {
		errs = append(errs, errors.New("resource_kind is required"))
	}
	if c.Filename == "" {
		errs = append(errs, errors.New("filename is required"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must not be negative, got %s", c.CacheTTL))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("refresh_interval must be positive, got %s", c.RefreshInterval))
	}
	switch c.Backend {
	case "", storage.BackendBolt, storage.BackendBadger, storage.BackendMemory:
		// empty selects bolt, as in storage.Open
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// StatNames returns the stat axes in display order
func (c Config) StatNames() []string {
	names := make([]string, len(c.DefaultStats))
	for i, s := range c.DefaultStats {
		names[i] = s.Name
	}
	return names
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "karatekonnect")
	}
	return ".karatekonnect"
}
