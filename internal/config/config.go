package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PartialPolicy selects how the orchestrator treats a request in which one
// evaluation branch failed after exhausting its retries.
type PartialPolicy string

const (
	// PartialPolicyDegrade aggregates whatever results exist and returns a
	// success flagged as partial.
	PartialPolicyDegrade PartialPolicy = "degrade"
	// PartialPolicyStrict fails the whole request on any branch failure.
	PartialPolicyStrict PartialPolicy = "strict"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIMaxTokens   int
	OpenAITemperature float32

	CallTimeout    time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration

	PromptsDir    string
	PromptVersion string

	PartialPolicy PartialPolicy

	InputCostPer1M  float64
	OutputCostPer1M float64
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ESSAY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Essay Eval API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 800)
	v.SetDefault("call_timeout_ms", 30000)
	v.SetDefault("max_retries", 2)
	v.SetDefault("retry_base_delay_ms", 250)
	v.SetDefault("request_timeout_ms", 90000)
	v.SetDefault("prompts.dir", "prompts")
	v.SetDefault("prompts.version", "v1.0.0")
	v.SetDefault("eval.partial_policy", string(PartialPolicyDegrade))
	v.SetDefault("pricing.input_per_1m", 0.25)
	v.SetDefault("pricing.output_per_1m", 2.0)

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		OpenAIAPIKey:      v.GetString("openai_api_key"),
		OpenAIModel:       v.GetString("openai.model"),
		OpenAIMaxTokens:   v.GetInt("openai.max_tokens"),
		OpenAITemperature: float32(v.GetFloat64("openai.temperature")),
		CallTimeout:       time.Duration(v.GetInt("call_timeout_ms")) * time.Millisecond,
		MaxRetries:        v.GetInt("max_retries"),
		RetryBaseDelay:    time.Duration(v.GetInt("retry_base_delay_ms")) * time.Millisecond,
		RequestTimeout:    time.Duration(v.GetInt("request_timeout_ms")) * time.Millisecond,
		PromptsDir:        v.GetString("prompts.dir"),
		PromptVersion:     v.GetString("prompts.version"),
		PartialPolicy:     PartialPolicy(strings.ToLower(v.GetString("eval.partial_policy"))),
		InputCostPer1M:    v.GetFloat64("pricing.input_per_1m"),
		OutputCostPer1M:   v.GetFloat64("pricing.output_per_1m"),
	}

	switch cfg.PartialPolicy {
	case PartialPolicyDegrade, PartialPolicyStrict:
	default:
		return Config{}, fmt.Errorf("invalid partial policy %q", cfg.PartialPolicy)
	}

	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}

	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 90 * time.Second
	}

	return cfg, nil
}
