// Package config loads application configuration and sets up logging.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Synthesis SynthesisConfig `yaml:"synthesis" mapstructure:"synthesis"`
	Recipe    RecipeConfig    `yaml:"recipe" mapstructure:"recipe"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// SynthesisConfig tunes the fitting and drawing pipeline.
type SynthesisConfig struct {
	MarginalZeroSub float64 `yaml:"marginal_zero_sub" mapstructure:"marginal_zero_sub"`
	JDZeroSub       float64 `yaml:"jd_zero_sub" mapstructure:"jd_zero_sub"`
	MaxIterations   int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	Seed            int64   `yaml:"seed" mapstructure:"seed"`
	Workers         int     `yaml:"workers" mapstructure:"workers"`
}

// RecipeConfig configures where synthesis inputs come from.
type RecipeConfig struct {
	Source    string  `yaml:"source" mapstructure:"source"` // csv or http
	Dir       string  `yaml:"dir" mapstructure:"dir"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	UserAgent string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the diagnostics server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SYNTHPOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("synthesis.marginal_zero_sub", 0.01)
	v.SetDefault("synthesis.jd_zero_sub", 0.001)
	v.SetDefault("synthesis.max_iterations", 20000)
	v.SetDefault("synthesis.workers", 0)
	v.SetDefault("recipe.source", "csv")
	v.SetDefault("recipe.dir", "data")
	v.SetDefault("recipe.rate_limit", 10)
	v.SetDefault("recipe.user_agent", "synthpop/1.0")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "synthpop.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
