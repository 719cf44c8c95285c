package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Tick     TickConfig     `toml:"tick"`
	Temporal TemporalConfig `toml:"temporal"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	Dimension string `toml:"dimension"` // passed to duration scripts
	StartTime int64  // set at boot, not from config
}

type TickConfig struct {
	Rate       time.Duration `toml:"rate"`        // length of one game tick
	RetryDelay int64         `toml:"retry_delay"` // ticks before a panicking revert is retried
	OwnerCheck bool          `toml:"owner_check"` // warn on structural calls off the game loop
}

type TemporalConfig struct {
	CategoriesFile string `toml:"categories_file"` // yaml table of category defaults
	ScriptsDir     string `toml:"scripts_dir"`     // lua duration policies
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Tick.Rate <= 0 {
		return nil, fmt.Errorf("tick.rate must be positive, got %s", cfg.Tick.Rate)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:      "tempworld",
			Dimension: "overworld",
		},
		Tick: TickConfig{
			Rate:       50 * time.Millisecond,
			RetryDelay: 20,
			OwnerCheck: true,
		},
		Temporal: TemporalConfig{
			CategoriesFile: "data/temporal.yaml",
			ScriptsDir:     "scripts",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled:     false,
			BindAddress: "127.0.0.1:9464",
		},
	}
}
