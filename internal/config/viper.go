package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Tagging struct {
		// Amount magnitudes separating the expense bands, in statement
		// currency. Statement amounts are PLN today; keeping the
		// thresholds here avoids hard-coding a single currency.
		MajorExpenseThreshold  float64 `mapstructure:"major_expense_threshold" yaml:"major_expense_threshold"`
		SmallPurchaseThreshold float64 `mapstructure:"small_purchase_threshold" yaml:"small_purchase_threshold"`
	} `mapstructure:"tagging" yaml:"tagging"`

	Tables struct {
		// Optional YAML overrides for the curated brand/keyword tables.
		// Empty paths mean the built-in tables are used as-is.
		BrandsFile   string `mapstructure:"brands_file" yaml:"brands_file"`
		KeywordsFile string `mapstructure:"keywords_file" yaml:"keywords_file"`
	} `mapstructure:"tables" yaml:"tables"`

	Storage struct {
		// Postgres DSN; empty selects the in-memory store.
		DSN string `mapstructure:"dsn" yaml:"-"`
	} `mapstructure:"storage" yaml:"storage"`

	AI struct {
		Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
		Model          string `mapstructure:"model" yaml:"model"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		APIKey         string `mapstructure:"api_key" yaml:"-"` // Never serialize API key
	} `mapstructure:"ai" yaml:"ai"`
}

// InitializeConfig loads configuration hierarchically: built-in defaults,
// then an optional config.yaml, then MBANK_* environment variables.
func InitializeConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.mbank-ledger")
	v.AddConfigPath(".mbank-ledger")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MBANK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Continue with defaults and env vars; a broken config file
			// should not abort imports.
			Logger.Warnf("error reading config file %s: %v", v.ConfigFileUsed(), err)
		}
	}

	// API key and DSN always come from their conventional variables.
	if err := v.BindEnv("ai.api_key", "GEMINI_API_KEY"); err != nil {
		Logger.Warnf("failed to bind GEMINI_API_KEY: %v", err)
	}
	if err := v.BindEnv("storage.dsn", "DATABASE_URL"); err != nil {
		Logger.Warnf("failed to bind DATABASE_URL: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("tagging.major_expense_threshold", 500.0)
	v.SetDefault("tagging.small_purchase_threshold", 20.0)

	v.SetDefault("tables.brands_file", "")
	v.SetDefault("tables.keywords_file", "")

	v.SetDefault("storage.dsn", "")

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout_seconds", 30)
}

func validateConfig(c *Config) error {
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json', got '%s'", c.Log.Format)
	}

	if c.Tagging.MajorExpenseThreshold <= 0 {
		return fmt.Errorf("tagging.major_expense_threshold must be positive")
	}
	if c.Tagging.SmallPurchaseThreshold <= 0 {
		return fmt.Errorf("tagging.small_purchase_threshold must be positive")
	}
	if c.Tagging.SmallPurchaseThreshold >= c.Tagging.MajorExpenseThreshold {
		return fmt.Errorf("tagging.small_purchase_threshold must be below tagging.major_expense_threshold")
	}

	if c.AI.Enabled && c.AI.APIKey == "" {
		return fmt.Errorf("ai.enabled requires GEMINI_API_KEY to be set")
	}

	return nil
}
