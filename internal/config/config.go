package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// VideoBypassPaid bypasses video watermarking for paid tiers only.
// VideoBypassPaidOrAnimation additionally bypasses image-animation requests
// regardless of tier.
const (
	VideoBypassPaid            = "paid"
	VideoBypassPaidOrAnimation = "paid_or_animation"
)

type Config struct {
	// Supabase
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseJWTSecret     string
	SupabaseStorageBucket string

	// Gemini API
	GeminiAPIKey     string
	GeminiAPIBaseURL string

	// Payment processor
	StripeAPIKey        string
	StripeWebhookSecret string

	// Watermarking
	LogoPath             string
	VideoWatermarkBypass string

	// Video generation polling
	VideoPollInterval time.Duration
	VideoPollTimeout  time.Duration

	// Database
	DatabaseURL string

	// Server
	Port        string
	Environment string
}

func Load() (*Config, error) {
	// Missing .env is fine; deployments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseJWTSecret:     getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "gallery"),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiAPIBaseURL: getEnv("GEMINI_API_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/"),

		StripeAPIKey:        getEnv("STRIPE_API_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		LogoPath:             getEnv("LOGO_PATH", "logo.png"),
		VideoWatermarkBypass: getEnv("VIDEO_WATERMARK_BYPASS", VideoBypassPaid),

		VideoPollInterval: getEnvDuration("VIDEO_POLL_INTERVAL", 5*time.Second),
		VideoPollTimeout:  getEnvDuration("VIDEO_POLL_TIMEOUT", 10*time.Minute),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.VideoWatermarkBypass != VideoBypassPaid && c.VideoWatermarkBypass != VideoBypassPaidOrAnimation {
		return fmt.Errorf("VIDEO_WATERMARK_BYPASS must be %q or %q", VideoBypassPaid, VideoBypassPaidOrAnimation)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
