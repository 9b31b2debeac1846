package infra

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   string `env:"PORT" envDefault:"8080"`

	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	ChatModel     string `env:"GEMINI_CHAT_MODEL" envDefault:"gemini-2.5-flash"`
	ImageModel    string `env:"GEMINI_IMAGE_MODEL" envDefault:"imagen-4.0-generate-001"`
	VideoModel    string `env:"GEMINI_VIDEO_MODEL" envDefault:"veo-2.0-generate-001"`

	VideoPollInterval time.Duration `env:"VIDEO_POLL_INTERVAL" envDefault:"10s"`
	VideoPollTimeout  time.Duration `env:"VIDEO_POLL_TIMEOUT" envDefault:"15m"`

	HTTPReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	// Write timeout is disabled by default: a video request holds the
	// connection open through the provider poll loop and the byte relay,
	// which can outlast any fixed write window.
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"0"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. The Gemini credential is validated here, once, at
// process start; a missing key is a boot error rather than a per-request
// surprise. API_KEY is honored as a fallback name for the credential.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("API_KEY")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("API_KEY environment variable not set")
	}

	if cfg.VideoPollInterval <= 0 {
		return nil, fmt.Errorf("VIDEO_POLL_INTERVAL must be positive, got %s", cfg.VideoPollInterval)
	}

	return cfg, nil
}
