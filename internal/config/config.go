package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Enhance   EnhanceConfig   `yaml:"enhance" mapstructure:"enhance"`
	JobQueue  JobQueueConfig  `yaml:"jobqueue" mapstructure:"jobqueue"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst   int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// EnhanceConfig configures the enhancement pipeline.
type EnhanceConfig struct {
	ModelVersion      string  `yaml:"model_version" mapstructure:"model_version"`
	SetAsideLLMCutoff float64 `yaml:"set_aside_llm_cutoff" mapstructure:"set_aside_llm_cutoff"`
	SetAsideRulesPath string  `yaml:"set_aside_rules_path" mapstructure:"set_aside_rules_path"`
	ChunkSize         int     `yaml:"chunk_size" mapstructure:"chunk_size"`
	CheckpointEvery   int     `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
	StaleAgeMins      int     `yaml:"stale_age_mins" mapstructure:"stale_age_mins"`
	StopGraceSecs     int     `yaml:"stop_grace_secs" mapstructure:"stop_grace_secs"`
}

// StaleAge returns the cleanup threshold as a duration.
func (c EnhanceConfig) StaleAge() time.Duration {
	return time.Duration(c.StaleAgeMins) * time.Minute
}

// StopGrace returns how long Stop waits for the worker to exit.
func (c EnhanceConfig) StopGrace() time.Duration {
	return time.Duration(c.StopGraceSecs) * time.Second
}

// JobQueueConfig configures the optional external bulk-job surface.
type JobQueueConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("JPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "prospects.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.timeout_secs", 120)
	v.SetDefault("anthropic.rate_per_sec", 2.0)
	v.SetDefault("anthropic.rate_burst", 4)
	v.SetDefault("enhance.set_aside_llm_cutoff", 0.80)
	v.SetDefault("enhance.chunk_size", 50)
	v.SetDefault("enhance.checkpoint_every", 100)
	v.SetDefault("enhance.stale_age_mins", 60)
	v.SetDefault("enhance.stop_grace_secs", 5)

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

// Validate checks that the fields the given run mode needs are present and
// in range. Mode is the command being run: batch, serve, cleanup, or status.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			problems = append(problems, "store.sqlite_path is required for the sqlite driver")
		}
	default:
		problems = append(problems, "store.driver must be postgres or sqlite")
	}

	switch mode {
	case "batch", "serve":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		if c.Enhance.SetAsideLLMCutoff < 0 || c.Enhance.SetAsideLLMCutoff > 1 {
			problems = append(problems, "enhance.set_aside_llm_cutoff must be between 0 and 1")
		}
		if c.Enhance.ChunkSize < 1 || c.Enhance.ChunkSize > 1000 {
			problems = append(problems, "enhance.chunk_size must be between 1 and 1000")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "cleanup", "status":
		// Store settings only.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
