package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlerConfig holds crawler-specific configuration.
type CrawlerConfig struct {
	MaxDepth       int           `mapstructure:"max_depth"`
	MaxWorkers     int           `mapstructure:"max_workers"`
	RateLimit      float64       `mapstructure:"rate_limit"` // seconds between same-domain fetches
	RestrictDomain bool          `mapstructure:"restrict_domain"`
	SavePath       string        `mapstructure:"save_path"`
	UserAgent      string        `mapstructure:"user_agent"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// OutputConfig holds report output configuration.
type OutputConfig struct {
	Format string `mapstructure:"format"` // "text", "markdown" or "json"
	Path   string `mapstructure:"path"`   // empty writes to stdout
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// RateLimitDuration converts the rate_limit seconds value to a Duration.
func (c CrawlerConfig) RateLimitDuration() time.Duration {
	return time.Duration(c.RateLimit * float64(time.Second))
}

// Load loads configuration from an optional YAML file and the
// environment. Flag values are layered on top by the CLI.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.linkatlas")
	}

	setDefaults(v)

	v.SetEnvPrefix("LINKATLAS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.max_depth", 3)
	v.SetDefault("crawler.max_workers", 10)
	v.SetDefault("crawler.rate_limit", 0.1)
	v.SetDefault("crawler.restrict_domain", true)
	v.SetDefault("crawler.save_path", "")
	v.SetDefault("crawler.user_agent", "LinkAtlas/1.0")
	v.SetDefault("crawler.timeout", "10s")

	v.SetDefault("output.format", "text")
	v.SetDefault("output.path", "")

	v.SetDefault("logging.level", "info")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Crawler.MaxDepth <= 0 {
		return fmt.Errorf("crawler.max_depth must be positive")
	}
	if c.Crawler.MaxWorkers <= 0 {
		return fmt.Errorf("crawler.max_workers must be positive")
	}
	if c.Crawler.RateLimit < 0 {
		return fmt.Errorf("crawler.rate_limit must not be negative")
	}
	switch c.Output.Format {
	case "text", "markdown", "json":
	default:
		return fmt.Errorf("output.format must be text, markdown or json")
	}
	return nil
}
