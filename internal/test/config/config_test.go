package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nastia-backend/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("DATABASE_URL", "postgres://localhost/nastia")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "gallery", cfg.SupabaseStorageBucket)
	assert.Equal(t, "logo.png", cfg.LogoPath)
	assert.Equal(t, config.VideoBypassPaid, cfg.VideoWatermarkBypass)
	assert.Equal(t, 5*time.Second, cfg.VideoPollInterval)
	assert.Equal(t, 10*time.Minute, cfg.VideoPollTimeout)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GEMINI_API_KEY", "")

	_, err := config.Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestLoad_BypassPolicy(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VIDEO_WATERMARK_BYPASS", "paid_or_animation")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, config.VideoBypassPaidOrAnimation, cfg.VideoWatermarkBypass)
}

func TestLoad_InvalidBypassPolicy(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VIDEO_WATERMARK_BYPASS", "never")

	_, err := config.Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "VIDEO_WATERMARK_BYPASS")
}

func TestLoad_PollDurations(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VIDEO_POLL_INTERVAL", "2s")
	t.Setenv("VIDEO_POLL_TIMEOUT", "3m")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.VideoPollInterval)
	assert.Equal(t, 3*time.Minute, cfg.VideoPollTimeout)
}

func TestLoad_MalformedDurationFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VIDEO_POLL_INTERVAL", "soon")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.VideoPollInterval)
}
