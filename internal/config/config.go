package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/pdm-qc/internal/cost"
	"github.com/sells-group/pdm-qc/internal/ingest"
	"github.com/sells-group/pdm-qc/internal/resilience"
	"github.com/sells-group/pdm-qc/internal/review"
	"github.com/sells-group/pdm-qc/internal/validate"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Review     ReviewConfig     `yaml:"review" mapstructure:"review"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Pricing    cost.Rates       `yaml:"pricing" mapstructure:"pricing"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxBodyMB      int      `yaml:"max_body_mb" mapstructure:"max_body_mb"`
}

// IngestConfig configures how the three input tables are read.
type IngestConfig struct {
	SkipRows         int    `yaml:"skip_rows" mapstructure:"skip_rows"`
	AfterproofSheet  string `yaml:"afterproof_sheet" mapstructure:"afterproof_sheet"`
	BeforeproofSheet string `yaml:"beforeproof_sheet" mapstructure:"beforeproof_sheet"`
	PdmSheet         string `yaml:"pdm_sheet" mapstructure:"pdm_sheet"`
	CSVDelimiter     string `yaml:"csv_delimiter" mapstructure:"csv_delimiter"`
	Charset          string `yaml:"charset" mapstructure:"charset"`
}

// ValidationConfig holds the validator's policy knobs.
type ValidationConfig struct {
	ForbiddenBrands []string           `yaml:"forbidden_brands" mapstructure:"forbidden_brands"`
	ForbiddenURLs   []validate.URLRule `yaml:"forbidden_urls" mapstructure:"forbidden_urls"`
	QualityAllow    []string           `yaml:"quality_allow" mapstructure:"quality_allow"`
	QualityDeny     []string           `yaml:"quality_deny" mapstructure:"quality_deny"`
	MaxHeadings     int                `yaml:"max_headings" mapstructure:"max_headings"`
	MinWords        int                `yaml:"min_words" mapstructure:"min_words"`
	MaxWords        int                `yaml:"max_words" mapstructure:"max_words"`
}

// ReviewConfig configures the optional text review stage.
type ReviewConfig struct {
	Enabled             bool    `yaml:"enabled" mapstructure:"enabled"`
	Model               string  `yaml:"model" mapstructure:"model"`
	MaxTokens           int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	SmallBatchThreshold int     `yaml:"small_batch_threshold" mapstructure:"small_batch_threshold"`
	RatePerSecond       float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	TimeoutSecs         int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RetryAttempts       int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMS      int     `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	RetryMaxBackoffMS   int     `yaml:"retry_max_backoff_ms" mapstructure:"retry_max_backoff_ms"`
	CircuitThreshold    int     `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
	CircuitResetSecs    int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// AnthropicConfig holds Anthropic API credentials.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PDMQC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_mb", 32)
	v.SetDefault("ingest.skip_rows", 1)
	v.SetDefault("ingest.csv_delimiter", ",")
	v.SetDefault("ingest.charset", "utf-8")
	v.SetDefault("validation.max_headings", validate.DefaultMaxHeadings)
	v.SetDefault("validation.min_words", 0)
	v.SetDefault("validation.max_words", 0)
	v.SetDefault("review.enabled", false)
	v.SetDefault("review.model", "claude-haiku-4-5-20251001")
	v.SetDefault("review.max_tokens", 512)
	v.SetDefault("review.small_batch_threshold", 10)
	v.SetDefault("review.rate_per_second", 5)
	v.SetDefault("review.timeout_secs", 1800)
	v.SetDefault("review.retry_attempts", 3)
	v.SetDefault("review.retry_backoff_ms", 500)
	v.SetDefault("review.retry_max_backoff_ms", 30000)
	v.SetDefault("review.circuit_threshold", 5)
	v.SetDefault("review.circuit_reset_secs", 30)
	v.SetDefault("anthropic.key", "")

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

// Validate checks the settings a command mode depends on. Modes are
// "report", "serve" and "review".
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Validation.MaxHeadings < 0 {
		errs = append(errs, "validation.max_headings must be >= 0")
	}
	if c.Validation.MinWords < 0 || c.Validation.MaxWords < 0 {
		errs = append(errs, "validation word bounds must be >= 0")
	}
	if c.Validation.MaxWords > 0 && c.Validation.MinWords > c.Validation.MaxWords {
		errs = append(errs, "validation.min_words must not exceed validation.max_words")
	}
	for i, r := range c.Validation.ForbiddenURLs {
		if strings.TrimSpace(r.Substring) == "" {
			errs = append(errs, fmt.Sprintf("validation.forbidden_urls[%d].substring is required", i))
		}
	}
	if len(c.Ingest.CSVDelimiter) > 1 {
		errs = append(errs, "ingest.csv_delimiter must be a single character")
	}

	switch mode {
	case "report":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "review":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if c.Review.SmallBatchThreshold < 1 {
			errs = append(errs, "review.small_batch_threshold must be >= 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Policy converts the validation section into a validator policy.
func (c *Config) Policy() validate.Policy {
	v := c.Validation
	return validate.Policy{
		ForbiddenBrands: v.ForbiddenBrands,
		ForbiddenURLs:   v.ForbiddenURLs,
		QualityAllow:    v.QualityAllow,
		QualityDeny:     v.QualityDeny,
		MaxHeadings:     v.MaxHeadings,
		MinWords:        v.MinWords,
		MaxWords:        v.MaxWords,
	}
}

// IngestOptions returns read options for one input sheet.
func (c *Config) IngestOptions(sheet string) ingest.Options {
	var delim rune
	if d := c.Ingest.CSVDelimiter; d != "" {
		delim = []rune(d)[0]
	}
	return ingest.Options{
		SheetName: sheet,
		SkipRows:  c.Ingest.SkipRows,
		Delimiter: delim,
		Charset:   c.Ingest.Charset,
	}
}

// ReviewSettings converts the review section for review.New.
func (c *Config) ReviewSettings() review.Config {
	r := c.Review
	return review.Config{
		Model:               r.Model,
		MaxTokens:           r.MaxTokens,
		SmallBatchThreshold: r.SmallBatchThreshold,
		RatePerSecond:       r.RatePerSecond,
		Timeout:             time.Duration(r.TimeoutSecs) * time.Second,
		Retry: resilience.FromRetryConfig(
			r.RetryAttempts,
			time.Duration(r.RetryBackoffMS)*time.Millisecond,
			time.Duration(r.RetryMaxBackoffMS)*time.Millisecond,
		),
		Circuit: resilience.FromCircuitConfig(r.CircuitThreshold, time.Duration(r.CircuitResetSecs)*time.Second),
		Rates:   c.Pricing,
	}
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
