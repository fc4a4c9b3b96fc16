package config

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
// Values come from defaults, an optional songsmith.yaml and the environment,
// in increasing order of precedence.
type Config struct {
	// Environment
	Environment string
	Port        string

	// Generation backend
	Backend      string // "gemini" or "openai"
	GeminiAPIKey string // fallback credential when none is stored
	OpenAIAPIKey string

	// Gemini models per tier
	TextModel      string
	ReasoningModel string
	AudioModel     string
	ImageModel     string
	ProImageModel  string

	// OpenAI models per tier
	OpenAITextModel      string
	OpenAIReasoningModel string

	// Persistence
	StoreDriver      string // memory, sqlite, postgres, mysql, redis
	StoreDSN         string
	StorePrefix      string
	RedisAddr        string
	RedisPassword    string
	CredentialSecret string // enables secretbox obfuscation of the stored credential

	// Limits
	GenerationRateLimit float64 // requests per second across generation routes
	GenerationRateBurst int
	VerifyRateLimit     float64 // credential verifications per second per client
	VerifyRateBurst     int
	ProbeTimeout        time.Duration
	MaxAudioBytes       int64
	RequestTimeout      time.Duration

	// Observability
	SentryDSN         string
	LangfusePublicKey string
	LangfuseSecretKey string
	LangfuseHost      string
	LangfuseEnabled   bool
	MetricsPath       string

	// Auth mode
	// - "none": No auth (self-hosted, local dev)
	// - "gateway": Trust X-User-* headers from an upstream gateway
	AuthMode string
}

const configName = "songsmith"

// Load reads configuration from ./songsmith.yaml (if present) and the environment
func Load() *Config {
	return LoadFrom("")
}

// LoadFrom reads configuration from the given YAML file (if not empty) and the environment
func LoadFrom(path string) *Config {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Printf("⚠️  Failed to read config file: %v", err)
		}
	}

	v.AutomaticEnv()

	return &Config{
		Environment: v.GetString("ENVIRONMENT"),
		Port:        v.GetString("PORT"),

		Backend:      v.GetString("BACKEND"),
		GeminiAPIKey: v.GetString("GEMINI_API_KEY"),
		OpenAIAPIKey: v.GetString("OPENAI_API_KEY"),

		TextModel:      v.GetString("TEXT_MODEL"),
		ReasoningModel: v.GetString("REASONING_MODEL"),
		AudioModel:     v.GetString("AUDIO_MODEL"),
		ImageModel:     v.GetString("IMAGE_MODEL"),
		ProImageModel:  v.GetString("PRO_IMAGE_MODEL"),

		OpenAITextModel:      v.GetString("OPENAI_TEXT_MODEL"),
		OpenAIReasoningModel: v.GetString("OPENAI_REASONING_MODEL"),

		StoreDriver:      v.GetString("STORE_DRIVER"),
		StoreDSN:         v.GetString("STORE_DSN"),
		StorePrefix:      v.GetString("STORE_PREFIX"),
		RedisAddr:        v.GetString("REDIS_ADDR"),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		CredentialSecret: v.GetString("CREDENTIAL_SECRET"),

		GenerationRateLimit: v.GetFloat64("GENERATION_RATE_LIMIT"),
		GenerationRateBurst: v.GetInt("GENERATION_RATE_BURST"),
		VerifyRateLimit:     v.GetFloat64("VERIFY_RATE_LIMIT"),
		VerifyRateBurst:     v.GetInt("VERIFY_RATE_BURST"),
		ProbeTimeout:        v.GetDuration("PROBE_TIMEOUT"),
		MaxAudioBytes:       v.GetInt64("MAX_AUDIO_BYTES"),
		RequestTimeout:      v.GetDuration("REQUEST_TIMEOUT"),

		SentryDSN:         v.GetString("SENTRY_DSN"),
		LangfusePublicKey: v.GetString("LANGFUSE_PUBLIC_KEY"),
		LangfuseSecretKey: v.GetString("LANGFUSE_SECRET_KEY"),
		LangfuseHost:      v.GetString("LANGFUSE_HOST"),
		LangfuseEnabled:   v.GetBool("LANGFUSE_ENABLED"),
		MetricsPath:       v.GetString("METRICS_PATH"),

		AuthMode: v.GetString("AUTH_MODE"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("BACKEND", "gemini")

	v.SetDefault("TEXT_MODEL", "gemini-3-flash-preview")
	v.SetDefault("REASONING_MODEL", "gemini-3-pro-preview")
	v.SetDefault("AUDIO_MODEL", "gemini-2.5-flash")
	v.SetDefault("IMAGE_MODEL", "gemini-2.5-flash-image")
	v.SetDefault("PRO_IMAGE_MODEL", "gemini-3-pro-image-preview")
	v.SetDefault("OPENAI_TEXT_MODEL", "gpt-4.1-mini")
	v.SetDefault("OPENAI_REASONING_MODEL", "gpt-5.1")

	v.SetDefault("STORE_DRIVER", "sqlite")
	v.SetDefault("STORE_DSN", "songsmith.db")
	v.SetDefault("STORE_PREFIX", "songsmith:")
	v.SetDefault("REDIS_ADDR", "localhost:6379")

	v.SetDefault("GENERATION_RATE_LIMIT", 2.0)
	v.SetDefault("GENERATION_RATE_BURST", 5)
	v.SetDefault("VERIFY_RATE_LIMIT", 0.2)
	v.SetDefault("VERIFY_RATE_BURST", 3)
	v.SetDefault("PROBE_TIMEOUT", "30s")
	v.SetDefault("MAX_AUDIO_BYTES", 10*1024*1024)
	v.SetDefault("REQUEST_TIMEOUT", "3m")

	v.SetDefault("LANGFUSE_HOST", "https://cloud.langfuse.com")
	v.SetDefault("LANGFUSE_ENABLED", false)
	v.SetDefault("METRICS_PATH", "/metrics")

	v.SetDefault("AUTH_MODE", "none") // Default to no auth for self-hosted
}

// IsGatewayMode returns true if running behind an authenticating gateway
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == "gateway"
}

// IsProduction returns true in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
