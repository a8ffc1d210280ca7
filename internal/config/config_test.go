package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/pdm-qc/internal/validate"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 32, cfg.Server.MaxBodyMB)
	assert.Equal(t, 1, cfg.Ingest.SkipRows)
	assert.Equal(t, ",", cfg.Ingest.CSVDelimiter)
	assert.Equal(t, 8, cfg.Validation.MaxHeadings)
	assert.Zero(t, cfg.Validation.MinWords)
	assert.Zero(t, cfg.Validation.MaxWords)
	assert.Empty(t, cfg.Validation.ForbiddenBrands)
	assert.False(t, cfg.Review.Enabled)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Review.Model)
	assert.Equal(t, int64(512), cfg.Review.MaxTokens)
	assert.Equal(t, 10, cfg.Review.SmallBatchThreshold)
	assert.Equal(t, 3, cfg.Review.RetryAttempts)
	assert.Equal(t, 5, cfg.Review.CircuitThreshold)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
  allowed_origins:
    - https://qc.example.com
validation:
  forbidden_brands: [Acme, Widgetron]
  forbidden_urls:
    - substring: /search?
      message: Search result URL
    - substring: ?utm_
      message: Tracking parameters
  quality_deny: [Website]
  max_headings: 12
  min_words: 20
review:
  enabled: true
  small_batch_threshold: 4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://qc.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []string{"Acme", "Widgetron"}, cfg.Validation.ForbiddenBrands)
	assert.Equal(t, []validate.URLRule{
		{Substring: "/search?", Message: "Search result URL"},
		{Substring: "?utm_", Message: "Tracking parameters"},
	}, cfg.Validation.ForbiddenURLs)
	assert.Equal(t, 12, cfg.Validation.MaxHeadings)
	assert.True(t, cfg.Review.Enabled)
	assert.Equal(t, 4, cfg.Review.SmallBatchThreshold)
	// Defaults still apply for unset values
	assert.Equal(t, int64(512), cfg.Review.MaxTokens)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
validation:
  max_headings: 12
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PDMQC_LOG_LEVEL", "warn")
	t.Setenv("PDMQC_VALIDATION_MAX_HEADINGS", "6")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 6, cfg.Validation.MaxHeadings)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("PDMQC_SERVER_PORT", "3000")
	t.Setenv("PDMQC_ANTHROPIC_KEY", "sk-ant-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with the loaded defaults for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Ingest.CSVDelimiter = ","
	cfg.Validation.MaxHeadings = 8
	cfg.Review.SmallBatchThreshold = 10
	return cfg
}

func TestValidateReport(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("report"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateReview_RequiresKey(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("review")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Anthropic.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("review"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateWordBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Validation.MinWords = 50
	cfg.Validation.MaxWords = 10

	err := cfg.Validate("report")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "min_words must not exceed")

	cfg.Validation.MaxWords = 0
	assert.NoError(t, cfg.Validate("report"))
}

func TestValidateURLRules(t *testing.T) {
	cfg := validDefaults()
	cfg.Validation.ForbiddenURLs = []validate.URLRule{{Substring: " ", Message: "blank"}}

	err := cfg.Validate("report")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden_urls[0].substring is required")
}

func TestValidateDelimiter(t *testing.T) {
	cfg := validDefaults()
	cfg.Ingest.CSVDelimiter = ";;"

	err := cfg.Validate("report")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "csv_delimiter")
}

func TestPolicy(t *testing.T) {
	cfg := validDefaults()
	cfg.Validation.ForbiddenBrands = []string{"Acme"}
	cfg.Validation.QualityAllow = []string{"Website", "Catalog"}
	cfg.Validation.MinWords = 20

	p := cfg.Policy()
	assert.Equal(t, []string{"Acme"}, p.ForbiddenBrands)
	assert.Equal(t, []string{"Website", "Catalog"}, p.QualityAllow)
	assert.Equal(t, 8, p.MaxHeadings)
	assert.Equal(t, 20, p.MinWords)
}

func TestIngestOptions(t *testing.T) {
	cfg := validDefaults()
	cfg.Ingest.SkipRows = 2
	cfg.Ingest.CSVDelimiter = ";"
	cfg.Ingest.Charset = "windows-1252"

	opts := cfg.IngestOptions("Afterproof")
	assert.Equal(t, "Afterproof", opts.SheetName)
	assert.Equal(t, 2, opts.SkipRows)
	assert.Equal(t, ';', opts.Delimiter)
	assert.Equal(t, "windows-1252", opts.Charset)

	cfg.Ingest.CSVDelimiter = ""
	assert.Zero(t, cfg.IngestOptions("").Delimiter)
}

func TestReviewSettings(t *testing.T) {
	cfg := validDefaults()
	cfg.Review.Model = "claude-haiku-4-5"
	cfg.Review.TimeoutSecs = 60
	cfg.Review.RetryAttempts = 5
	cfg.Review.RetryBackoffMS = 250
	cfg.Review.CircuitThreshold = 2
	cfg.Review.CircuitResetSecs = 10

	rc := cfg.ReviewSettings()
	assert.Equal(t, "claude-haiku-4-5", rc.Model)
	assert.Equal(t, 10, rc.SmallBatchThreshold)
	assert.Equal(t, time.Minute, rc.Timeout)
	assert.Equal(t, 5, rc.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, rc.Retry.InitialBackoff)
	// Unset values keep the retry defaults.
	assert.Equal(t, 30*time.Second, rc.Retry.MaxBackoff)
	assert.Equal(t, 2, rc.Circuit.FailureThreshold)
	assert.Equal(t, 10*time.Second, rc.Circuit.ResetTimeout)
}

func TestLoadPricing(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
pricing:
  anthropic:
    claude-haiku-4-5:
      input: 1.0
      output: 5.0
      batch_discount: 0.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	rate, ok := cfg.Pricing.Anthropic["claude-haiku-4-5"]
	require.True(t, ok)
	assert.InDelta(t, 5.0, rate.Output, 0.001)
	assert.Equal(t, cfg.Pricing, cfg.ReviewSettings().Rates)
}
