package config

import (
	"errors"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/pdfqa/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Completion CompletionConfig `yaml:"completion" mapstructure:"completion"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Circuit    CircuitConfig    `yaml:"circuit" mapstructure:"circuit"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Rank       RankConfig       `yaml:"rank" mapstructure:"rank"`
	Similarity SimilarityConfig `yaml:"similarity" mapstructure:"similarity"`
	PDF        PDFConfig        `yaml:"pdf" mapstructure:"pdf"`
	Credential CredentialConfig `yaml:"credential" mapstructure:"credential"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// CompletionConfig configures the per-page completion calls.
type CompletionConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"`
	Model             string  `yaml:"model" mapstructure:"model"`
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Candidates        int     `yaml:"candidates" mapstructure:"candidates"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxConcurrency    int     `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"api_key" mapstructure:"api_key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// RetryConfig configures retries of transient completion failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig configures the completion circuit breaker. A zero threshold
// disables it.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// CacheConfig bounds the answer cache. Zero means unbounded.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries"`
}

// RankConfig configures answer ranking.
type RankConfig struct {
	Limit int `yaml:"limit" mapstructure:"limit"`
}

// SimilarityConfig selects the similarity backend.
type SimilarityConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// PDFConfig configures PDF text extraction.
type PDFConfig struct {
	Provider        string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath   string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey      string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel    string `yaml:"mistral_model" mapstructure:"mistral_model"`
	MistralEndpoint string `yaml:"mistral_endpoint" mapstructure:"mistral_endpoint"`
}

// CredentialConfig points at the local credential file.
type CredentialConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// PricingConfig overrides per-model token prices (USD per million tokens).
type PricingConfig struct {
	OpenAI    map[string]ModelPricing `yaml:"openai" mapstructure:"openai"`
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing is the input and output price of one model.
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file. Named explicitly so the credential file (config.ini) is
	// never picked up by extension search.
	v.SetConfigFile("config.yaml")
	v.SetConfigType("yaml")

	// Environment
	v.SetEnvPrefix("PDFQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("completion.provider", "openai")
	v.SetDefault("completion.model", "")
	v.SetDefault("completion.max_tokens", 100)
	v.SetDefault("completion.candidates", 1)
	v.SetDefault("completion.temperature", 0.7)
	v.SetDefault("completion.timeout_secs", 60)
	v.SetDefault("completion.max_concurrency", 0)
	v.SetDefault("completion.requests_per_second", 0)
	v.SetDefault("completion.burst", 1)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("retry.max_attempts", 1)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("circuit.failure_threshold", 0)
	v.SetDefault("circuit.reset_timeout_secs", 30)
	v.SetDefault("cache.max_entries", 0)
	v.SetDefault("rank.limit", 3)
	v.SetDefault("similarity.backend", "lexical")
	v.SetDefault("similarity.model", "text-embedding-3-small")
	v.SetDefault("pdf.provider", "native")
	v.SetDefault("pdf.pdftotext_path", "pdftotext")
	v.SetDefault("pdf.mistral_api_key", "")
	v.SetDefault("pdf.mistral_model", "pixtral-large-latest")
	v.SetDefault("pdf.mistral_endpoint", "https://api.mistral.ai/v1/ocr")
	v.SetDefault("credential.file", "config.ini")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read file")
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

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch c.Completion.Provider {
	case "openai", "anthropic":
	default:
		return &model.ConfigError{Key: "completion.provider", Err: eris.Errorf("unknown provider %q", c.Completion.Provider)}
	}
	switch c.Similarity.Backend {
	case "lexical", "embedding":
	default:
		return &model.ConfigError{Key: "similarity.backend", Err: eris.Errorf("unknown backend %q", c.Similarity.Backend)}
	}
	switch c.PDF.Provider {
	case "native", "pdftotext", "mistral":
	default:
		return &model.ConfigError{Key: "pdf.provider", Err: eris.Errorf("unknown provider %q", c.PDF.Provider)}
	}
	if c.Completion.MaxTokens <= 0 {
		return &model.ConfigError{Key: "completion.max_tokens", Err: eris.New("must be positive")}
	}
	if c.Completion.Candidates <= 0 {
		return &model.ConfigError{Key: "completion.candidates", Err: eris.New("must be positive")}
	}
	if c.Completion.RequestsPerSecond < 0 {
		return &model.ConfigError{Key: "completion.requests_per_second", Err: eris.New("must not be negative")}
	}
	return nil
}

// CompletionModel returns the configured completion model, falling back to
// the provider's default.
func (c *Config) CompletionModel() string {
	if c.Completion.Model != "" {
		return c.Completion.Model
	}
	if c.Completion.Provider == "anthropic" {
		return c.Anthropic.Model
	}
	return "gpt-4o-mini"
}

var providerEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// ResolveAPIKey finds the API key for provider. The credential file is only
// consulted for the completion provider and wins when it exists and is not
// empty; then the provider's standard environment variable; then the key
// from config.yaml or PDFQA_* environment.
func ResolveAPIKey(cfg *Config, provider string) (string, error) {
	if provider == cfg.Completion.Provider && cfg.Credential.File != "" {
		data, err := os.ReadFile(cfg.Credential.File)
		switch {
		case err == nil:
			if key := strings.TrimSpace(string(data)); key != "" {
				return key, nil
			}
		case !os.IsNotExist(err):
			return "", &model.ConfigError{Key: "credential.file", Err: eris.Wrapf(err, "read %s", cfg.Credential.File)}
		}
	}

	if key := strings.TrimSpace(os.Getenv(providerEnv[provider])); key != "" {
		return key, nil
	}

	var key string
	switch provider {
	case "openai":
		key = cfg.OpenAI.Key
	case "anthropic":
		key = cfg.Anthropic.Key
	}
	if key = strings.TrimSpace(key); key != "" {
		return key, nil
	}

	return "", &model.ConfigError{
		Key: provider + ".api_key",
		Err: eris.Errorf("%s API key not provided. Please provide a valid API key", providerName(provider)),
	}
}

// ResolveMistralKey returns the Mistral OCR key from config or MISTRAL_API_KEY.
func ResolveMistralKey(cfg *Config) string {
	if cfg.PDF.MistralKey != "" {
		return cfg.PDF.MistralKey
	}
	return strings.TrimSpace(os.Getenv("MISTRAL_API_KEY"))
}

func providerName(provider string) string {
	switch provider {
	case "openai":
		return "OpenAI"
	case "anthropic":
		return "Anthropic"
	default:
		return provider
	}
}

// InitLogger initializes the global zap logger. Output goes to stderr so
// stdout carries only answers.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

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
