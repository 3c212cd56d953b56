/*
config.go - Application configuration

PURPOSE:
  Loads runtime configuration from an optional JSON file with environment
  variable override (PERF_ prefix, dashes become underscores). The
  cost-classification vocabulary lives here rather than in code: finance
  renames ledger categories more often than we deploy.

PRECEDENCE:
  defaults < config file < environment variables

EXAMPLE config.json:
  {
    "port": 8080,
    "db-path": "./data/performance.db",
    "scheduler-enabled": true,
    "scheduler-interval-hours": 6,
    "attraction-keywords": ["attraction", "show", "artist"],
    "payroll-categories": ["STAFF SALARY", "OVERTIME"]
  }

SEE ALSO:
  - metrics/classify.go: how the vocabulary is applied
  - cmd/server/main.go: load site
*/
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/zykor/performance-engine/metrics"
)

// Config is the application's runtime configuration.
type Config struct {
	Port                   int      `json:"port" mapstructure:"port"`
	DBPath                 string   `json:"db-path" mapstructure:"db-path"`
	SchedulerEnabled       bool     `json:"scheduler-enabled" mapstructure:"scheduler-enabled"`
	SchedulerIntervalHours int      `json:"scheduler-interval-hours" mapstructure:"scheduler-interval-hours"`
	AttractionKeywords     []string `json:"attraction-keywords" mapstructure:"attraction-keywords"`
	PayrollCategories      []string `json:"payroll-categories" mapstructure:"payroll-categories"`
	TicketKeywords         []string `json:"ticket-keywords" mapstructure:"ticket-keywords"`
}

// Classifier builds the injected classification sets from the config.
func (c *Config) Classifier() metrics.Classifier {
	return metrics.Classifier{
		AttractionKeywords: c.AttractionKeywords,
		PayrollCategories:  c.PayrollCategories,
		TicketKeywords:     c.TicketKeywords,
	}
}

// Load reads configuration from the given file (optional) and environment
// variables. Environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := metrics.DefaultClassifier()
	v.SetDefault("port", 8080)
	v.SetDefault("db-path", "performance.db")
	v.SetDefault("scheduler-enabled", false)
	v.SetDefault("scheduler-interval-hours", 6)
	v.SetDefault("attraction-keywords", defaults.AttractionKeywords)
	v.SetDefault("payroll-categories", defaults.PayrollCategories)
	v.SetDefault("ticket-keywords", defaults.TicketKeywords)

	v.SetEnvPrefix("PERF")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if cfg.SchedulerIntervalHours <= 0 {
		return nil, fmt.Errorf("scheduler-interval-hours must be positive, got %d", cfg.SchedulerIntervalHours)
	}

	return &cfg, nil
}
