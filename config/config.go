// Package config loads the service configuration and bootstraps logging.
//
// Configuration is read with viper from config.yaml (working directory, or
// an explicit path), overridden by VARPAY_* environment variables, e.g.
// VARPAY_COMPENSATION_PER_TASK_RATE=2.50.
//
// The per-task rate has no default: task-counted calculations fail with
// generic.ErrTaskRateNotConfigured until one is set. Watch reloads the file
// so the rate can be changed without a restart.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/variable-pay/generic"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VARPAY"

// Config holds the full application configuration.
type Config struct {
	Compensation CompensationConfig `yaml:"compensation" mapstructure:"compensation"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	DB           DBConfig           `yaml:"db" mapstructure:"db"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// CompensationConfig holds the pay rules that are not catalog data.
type CompensationConfig struct {
	// PerTaskRate is decimal text ("2.50" or "2,50"). Empty means unset.
	PerTaskRate string `yaml:"per_task_rate" mapstructure:"per_task_rate"`
	ClaimLimit  int    `yaml:"claim_limit" mapstructure:"claim_limit"`
	// Timezone the task export timestamps are written in.
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AccessLog      bool     `yaml:"access_log" mapstructure:"access_log"`
}

// DBConfig configures the SQLite store.
type DBConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads the configuration. An empty path searches for config.yaml in
// the working directory and tolerates its absence; an explicit path must
// exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("compensation.per_task_rate", "")
	v.SetDefault("compensation.claim_limit", 1)
	v.SetDefault("compensation.timezone", "America/Sao_Paulo")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("server.access_log", true)
	v.SetDefault("db.path", "variable-pay.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that would otherwise fail on first use.
func (c *Config) Validate() error {
	if _, err := c.Compensation.Rate(); err != nil {
		return err
	}
	if _, err := c.Compensation.Location(); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	return nil
}

// Rate parses the per-task rate. Unset reads as zero, which the engine
// treats as not configured.
func (c CompensationConfig) Rate() (decimal.Decimal, error) {
	raw := strings.TrimSpace(c.PerTaskRate)
	if raw == "" {
		return decimal.Zero, nil
	}
	rate, err := generic.ParseDecimal(raw)
	if err != nil {
		return decimal.Zero, &generic.InvalidInputError{Field: "compensation.per_task_rate", Value: raw, Reason: "not a decimal number"}
	}
	if rate.IsNegative() {
		return decimal.Zero, &generic.InvalidInputError{Field: "compensation.per_task_rate", Value: raw, Reason: "must not be negative"}
	}
	return rate, nil
}

// Location loads the export time zone. Empty means time.Local.
func (c CompensationConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, eris.Wrapf(err, "config: load timezone %q", c.Timezone)
	}
	return loc, nil
}

// InitLogger builds the global zap logger.
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
