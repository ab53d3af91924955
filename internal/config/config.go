package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Market    MarketConfig    `yaml:"market"`
	Publisher PublisherConfig `yaml:"publisher"`
	Log       LogConfig       `yaml:"log"`
}

// AppConfig represents application settings.
type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
}

// MarketConfig lists the symbols registered at bootstrap. Symbols not
// listed here are rejected at submission time.
type MarketConfig struct {
	Symbols []string `yaml:"symbols"`
}

// PublisherConfig sizes the event fan-out.
type PublisherConfig struct {
	Workers int `yaml:"workers"`
	Buffer  int `yaml:"buffer"`
	Retries int `yaml:"retries"`
}

// LogConfig represents logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file with env overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.loadEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) loadEnvOverrides() {
	if v := os.Getenv("TRADESIM_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TRADESIM_ENVIRONMENT"); v != "" {
		cfg.App.Environment = v
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.App.Name == "" {
		cfg.App.Name = "tradesim"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Publisher.Workers == 0 {
		cfg.Publisher.Workers = 4
	}
	if cfg.Publisher.Buffer == 0 {
		cfg.Publisher.Buffer = 256
	}
	if cfg.Publisher.Retries == 0 {
		cfg.Publisher.Retries = 3
	}
}

func (cfg *Config) validate() error {
	if len(cfg.Market.Symbols) == 0 {
		return errors.New("config: at least one market symbol is required")
	}
	seen := make(map[string]bool, len(cfg.Market.Symbols))
	for _, symbol := range cfg.Market.Symbols {
		if symbol == "" {
			return errors.New("config: empty market symbol")
		}
		if seen[symbol] {
			return fmt.Errorf("config: duplicate market symbol %q", symbol)
		}
		seen[symbol] = true
	}
	return nil
}
