package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	AppBaseURL     string
	DatabaseType   string
	DatabaseURL    string
	DatabasePath   string
	MigrationsPath string

	JWTSecret string
	TokenTTL  time.Duration

	// Comma separated IPs/CIDRs whose X-Forwarded-For is believed
	TrustedProxies string

	LogLevel  string
	LogFormat string

	DefaultLevel    string
	SetupWait       time.Duration
	ProviderTimeout time.Duration
	MaxMessageSize  int64

	// Hosted providers
	OpenAIAPIKey     string
	OpenAIModel      string
	GoogleAPIKey     string
	GeminiModel      string
	AnthropicAPIKey  string
	AnthropicModel   string
	ElevenLabsAPIKey string
	NarakeetAPIKey   string
	TTSService       string

	ProhibitedWordsURL string

	// Teacher sign-in with Google
	GoogleClientID     string
	GoogleClientSecret string

	// Email (Amazon SES)
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	EmailDebug   bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("PORT", "8000"),
		AppBaseURL:     strings.TrimSuffix(getEnv("APP_BASE_URL", "http://localhost:8000"), "/"),
		DatabaseType:   getEnv("DATABASE_TYPE", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DatabasePath:   getEnv("DB_PATH", "./vocaflow.db"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 24*time.Hour),

		TrustedProxies: getEnv("TRUSTED_PROXIES", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DefaultLevel:    getEnv("DEFAULT_LEVEL", "intermediate_mid"),
		SetupWait:       getEnvDuration("SETUP_WAIT", time.Second),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),
		MaxMessageSize:  int64(getEnvInt("WS_MAX_MESSAGE_BYTES", 10*1024*1024)),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GoogleAPIKey:     getEnv("GOOGLE_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-flash"),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-haiku"),
		ElevenLabsAPIKey: getEnv("ELEVENLABS_API_KEY", ""),
		NarakeetAPIKey:   getEnv("NARAKEET_API_KEY", ""),
		TTSService:       strings.ToLower(getEnv("TTS_SERVICE", "elevenlabs")),

		ProhibitedWordsURL: getEnv("PROHIBITED_WORDS_URL", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "VocaFlow"),
		EmailDebug:   getEnvBool("EMAIL_DEBUG", false),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getEnvDuration accepts Go duration strings ("1s", "500ms") or whole seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
