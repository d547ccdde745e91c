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
	Docs      DocsConfig      `yaml:"docs" mapstructure:"docs"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Jobs      JobsConfig      `yaml:"jobs" mapstructure:"jobs"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the job store backend.
type StoreConfig struct {
	// Driver is one of "memory", "sqlite", "postgres".
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// DocsConfig configures blueprint document storage.
type DocsConfig struct {
	// Provider is "local" or "s3".
	Provider     string `yaml:"provider" mapstructure:"provider"`
	LocalDir     string `yaml:"local_dir" mapstructure:"local_dir"`
	MaxSizeBytes int64  `yaml:"max_size_bytes" mapstructure:"max_size_bytes"`

	S3Endpoint  string `yaml:"s3_endpoint" mapstructure:"s3_endpoint"`
	S3Region    string `yaml:"s3_region" mapstructure:"s3_region"`
	S3Bucket    string `yaml:"s3_bucket" mapstructure:"s3_bucket"`
	S3AccessKey string `yaml:"s3_access_key" mapstructure:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key" mapstructure:"s3_secret_key"`
	S3UseSSL    bool   `yaml:"s3_use_ssl" mapstructure:"s3_use_ssl"`
}

// OCRConfig configures blueprint text extraction.
type OCRConfig struct {
	// Provider is "pdftotext" or "plain".
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// AnthropicConfig holds settings for the optional LLM geometry refinement.
// An empty key disables refinement and the deterministic extractor output
// is used directly.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PricingConfig configures the price resolver.
type PricingConfig struct {
	CacheTTLSecs    int     `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	CacheSize       int     `yaml:"cache_size" mapstructure:"cache_size"`
	LiveTimeoutMs   int     `yaml:"live_timeout_ms" mapstructure:"live_timeout_ms"`
	LiveRatePerSec  float64 `yaml:"live_rate_per_sec" mapstructure:"live_rate_per_sec"`
	LiveEnabled     bool    `yaml:"live_enabled" mapstructure:"live_enabled"`
	SimulatedJitter float64 `yaml:"simulated_jitter" mapstructure:"simulated_jitter"`
	SimulatedDelay  int     `yaml:"simulated_delay_ms" mapstructure:"simulated_delay_ms"`
}

// CacheTTL returns the price cache TTL as a duration.
func (p PricingConfig) CacheTTL() time.Duration {
	return time.Duration(p.CacheTTLSecs) * time.Second
}

// LiveTimeout returns the live-source timeout as a duration.
func (p PricingConfig) LiveTimeout() time.Duration {
	return time.Duration(p.LiveTimeoutMs) * time.Millisecond
}

// AnalysisConfig configures pipeline behavior.
type AnalysisConfig struct {
	TaxRate          float64 `yaml:"tax_rate" mapstructure:"tax_rate"`
	PriceConcurrency int     `yaml:"price_concurrency" mapstructure:"price_concurrency"`
}

// JobsConfig configures job execution.
type JobsConfig struct {
	// Mode is "sync" or "async"; chosen once at process start.
	Mode             string `yaml:"mode" mapstructure:"mode"`
	Workers          int    `yaml:"workers" mapstructure:"workers"`
	PollIntervalMs   int    `yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	MaxAttempts      int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryBackoffSecs int    `yaml:"retry_backoff_secs" mapstructure:"retry_backoff_secs"`
	RetentionHours   int    `yaml:"retention_hours" mapstructure:"retention_hours"`
	CleanupEveryMins int    `yaml:"cleanup_every_mins" mapstructure:"cleanup_every_mins"`
}

// PollInterval returns the queue poll interval as a duration.
func (j JobsConfig) PollInterval() time.Duration {
	return time.Duration(j.PollIntervalMs) * time.Millisecond
}

// Retention returns how long terminal jobs are kept before the janitor
// purges them.
func (j JobsConfig) Retention() time.Duration {
	return time.Duration(j.RetentionHours) * time.Hour
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
	v.SetEnvPrefix("TAKEOFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "takeoff.db")
	v.SetDefault("docs.provider", "local")
	v.SetDefault("docs.local_dir", "/tmp/takeoff-uploads")
	v.SetDefault("docs.max_size_bytes", 50*1024*1024)
	v.SetDefault("docs.s3_region", "us-east-1")
	v.SetDefault("ocr.provider", "pdftotext")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4000)
	v.SetDefault("anthropic.timeout_secs", 60)
	v.SetDefault("pricing.cache_ttl_secs", 3600)
	v.SetDefault("pricing.cache_size", 1024)
	v.SetDefault("pricing.live_timeout_ms", 5000)
	v.SetDefault("pricing.live_rate_per_sec", 10)
	v.SetDefault("pricing.live_enabled", true)
	v.SetDefault("pricing.simulated_jitter", 0.10)
	v.SetDefault("pricing.simulated_delay_ms", 100)
	v.SetDefault("analysis.tax_rate", 0.12)
	v.SetDefault("analysis.price_concurrency", 4)
	v.SetDefault("jobs.mode", "async")
	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.poll_interval_ms", 500)
	v.SetDefault("jobs.max_attempts", 3)
	v.SetDefault("jobs.retry_backoff_secs", 2)
	v.SetDefault("jobs.retention_hours", 24)
	v.SetDefault("jobs.cleanup_every_mins", 60)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
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
