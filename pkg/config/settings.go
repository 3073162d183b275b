// Package config loads runtime configuration: typed settings from the
// environment plus operator-tunable rules from kredefy.yaml merged over
// built-in defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Settings holds environment-sourced configuration. Secrets stay here and
// never appear in the YAML tunables.
type Settings struct {
	Environment string
	Debug       bool
	HTTPPort    string
	CORSOrigins []string

	// OracleSigningKey keys risk-assessment signatures; empty means
	// digest-only unsigned output.
	OracleSigningKey string

	// JWTSecret verifies bearer tokens on the authenticated endpoints.
	JWTSecret string

	Database  DatabaseSettings
	LLM       LLMSettings
	Payments  PaymentsSettings
	Messaging MessagingSettings
	TTS       TTSSettings
	Chain     ChainSettings
}

// DatabaseSettings configures the PostgreSQL store.
type DatabaseSettings struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// LLMSettings configures the OpenAI-compatible chat endpoint.
type LLMSettings struct {
	APIKey  string
	BaseURL string
	Model   string
}

// PaymentsSettings configures the payment gateway.
type PaymentsSettings struct {
	APIKey        string
	BaseURL       string
	WebhookSecret string
}

// MessagingSettings configures the SMS/WhatsApp gateway.
type MessagingSettings struct {
	AccountSID     string
	AuthToken      string
	FromNumber     string
	WhatsAppNumber string
	BaseURL        string
}

// TTSSettings configures speech synthesis.
type TTSSettings struct {
	APIKey   string
	BaseURL  string
	Model    string
	CacheDir string
}

// ChainSettings configures the notarization relayer.
type ChainSettings struct {
	RelayerURL      string
	APIKey          string
	ExplorerBaseURL string
}

// LoadSettings reads settings from the environment, applying defaults for
// anything unset.
func LoadSettings() (*Settings, error) {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	s := &Settings{
		Environment:      getEnv("ENVIRONMENT", "development"),
		Debug:            getEnv("DEBUG", "false") == "true",
		HTTPPort:         getEnv("HTTP_PORT", "8000"),
		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "*")),
		OracleSigningKey: os.Getenv("ORACLE_SIGNING_KEY"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		Database: DatabaseSettings{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "kredefy"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "kredefy"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		LLM: LLMSettings{
			APIKey:  os.Getenv("GROQ_API_KEY"),
			BaseURL: getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			Model:   getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		},
		Payments: PaymentsSettings{
			APIKey:        os.Getenv("DODO_API_KEY"),
			BaseURL:       getEnv("DODO_BASE_URL", "https://api.dodopayments.com"),
			WebhookSecret: os.Getenv("DODO_WEBHOOK_SECRET"),
		},
		Messaging: MessagingSettings{
			AccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber:     os.Getenv("TWILIO_FROM_NUMBER"),
			WhatsAppNumber: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
			BaseURL:        getEnv("TWILIO_BASE_URL", "https://api.twilio.com"),
		},
		TTS: TTSSettings{
			APIKey:   os.Getenv("ELEVENLABS_API_KEY"),
			BaseURL:  getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
			Model:    getEnv("ELEVENLABS_MODEL", "eleven_multilingual_v2"),
			CacheDir: getEnv("TTS_CACHE_DIR", "/tmp/kredefy-tts-cache"),
		},
		Chain: ChainSettings{
			RelayerURL:      os.Getenv("CHAIN_RELAYER_URL"),
			APIKey:          os.Getenv("CHAIN_RELAYER_API_KEY"),
			ExplorerBaseURL: getEnv("CHAIN_EXPLORER_BASE_URL", "https://amoy.polygonscan.com"),
		},
	}
	return s, nil
}

// getEnv returns the environment variable value or a fallback.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
