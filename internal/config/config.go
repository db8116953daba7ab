// Package config loads application configuration from file and environment
// and initializes the global logger. The loaded value is constructed once at
// process start and passed explicitly into the pipeline and its dependents.
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
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	OpenAI   OpenAIConfig   `yaml:"openai" mapstructure:"openai"`
	Mail     MailConfig     `yaml:"mail" mapstructure:"mail"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the sheet store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OpenAIConfig holds API credentials and the per-stage model names.
type OpenAIConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	ExtractModel  string `yaml:"extract_model" mapstructure:"extract_model"`
	SummaryModel  string `yaml:"summary_model" mapstructure:"summary_model"`
	CategoryModel string `yaml:"category_model" mapstructure:"category_model"`
}

// MailConfig configures the mail source query.
type MailConfig struct {
	Token        string `yaml:"token" mapstructure:"token"`
	SearchTerm   string `yaml:"search_term" mapstructure:"search_term"`
	LookbackDays int    `yaml:"lookback_days" mapstructure:"lookback_days"`
	MaxThreads   int    `yaml:"max_threads" mapstructure:"max_threads"`
}

// PipelineConfig configures extraction, dedup and persistence behavior.
type PipelineConfig struct {
	EventSheet          string  `yaml:"event_sheet" mapstructure:"event_sheet"`
	MailsPerBatch       int     `yaml:"mails_per_batch" mapstructure:"mails_per_batch"`
	BodyPromptLimit     int     `yaml:"body_prompt_limit" mapstructure:"body_prompt_limit"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	FanOutByCategory    bool    `yaml:"fan_out_by_category" mapstructure:"fan_out_by_category"`
	KeywordRuleFile     string  `yaml:"keyword_rule_file" mapstructure:"keyword_rule_file"`
	ExpiryDays          int     `yaml:"expiry_days" mapstructure:"expiry_days"`
}

// ServerConfig configures the read/search API server.
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
	v.SetEnvPrefix("DEADLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "deadline.db")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.extract_model", "gpt-3.5-turbo-0125")
	v.SetDefault("openai.summary_model", "gpt-4o-mini")
	v.SetDefault("openai.category_model", "gpt-4o-mini")
	v.SetDefault("mail.search_term", "N高")
	v.SetDefault("mail.lookback_days", 1)
	v.SetDefault("mail.max_threads", 200)
	v.SetDefault("pipeline.event_sheet", "イベント一覧")
	v.SetDefault("pipeline.mails_per_batch", 5)
	v.SetDefault("pipeline.body_prompt_limit", 3000)
	v.SetDefault("pipeline.similarity_threshold", 0.8)
	v.SetDefault("pipeline.fan_out_by_category", true)
	v.SetDefault("pipeline.expiry_days", 14)
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
