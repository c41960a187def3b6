package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "AI_PROVIDER", "ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "Model",
		"ARK_TEMPERATURE", "ARK_TOP_P", "ARK_MAX_TOKENS", "GEMINI_API_KEY", "GOOGLE_AI_STUDIO_KEY",
		"GEMINI_MODEL", "PANEL_TEMPLATES_PATH", "PERSONAS_PATH", "PANEL_SESSION_TTL",
		"PANEL_SWEEP_INTERVAL", "PANEL_CALL_TIMEOUT", "PANEL_SUMMARY_THRESHOLD",
		"PANEL_MAX_PREVIOUS_EXCHANGES", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ProviderArk, cfg.AI.Provider)
	assert.False(t, cfg.AI.Enabled())
	assert.Equal(t, "gemini-2.0-flash", cfg.AI.GeminiModel)
	assert.Equal(t, "config/panel_configs.json", cfg.Panel.TemplatesPath)
	assert.Empty(t, cfg.Panel.PersonasPath)
	assert.Equal(t, 30*time.Minute, cfg.Panel.SessionTTL)
	assert.Equal(t, time.Minute, cfg.Panel.SweepInterval)
	assert.Equal(t, 30*time.Second, cfg.Panel.CallTimeout)
	assert.Equal(t, 3, cfg.Panel.SummaryThreshold)
	assert.Equal(t, 3, cfg.Panel.MaxPreviousExchanges)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("GOOGLE_AI_STUDIO_KEY", "studio-key")
	t.Setenv("ARK_TEMPERATURE", "0.7")
	t.Setenv("PANEL_SESSION_TTL", "45m")
	t.Setenv("PANEL_SUMMARY_THRESHOLD", "5")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, "studio-key", cfg.AI.GeminiAPIKey)
	assert.True(t, cfg.AI.Enabled())
	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, 0.7, *cfg.AI.Temperature, 1e-9)
	assert.Equal(t, 45*time.Minute, cfg.Panel.SessionTTL)
	assert.Equal(t, 5, cfg.Panel.SummaryThreshold)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadPortNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Addr)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"PORT", "80 80", "invalid PORT value"},
		{"AI_PROVIDER", "llama", "invalid AI_PROVIDER value"},
		{"ARK_TOP_P", "high", "invalid ARK_TOP_P value"},
		{"PANEL_SESSION_TTL", "soon", "invalid PANEL_SESSION_TTL value"},
		{"PANEL_CALL_TIMEOUT", "-1s", "must be positive"},
		{"PANEL_SUMMARY_THRESHOLD", "0", "must be at least 1"},
		{"PANEL_MAX_PREVIOUS_EXCHANGES", "three", "invalid PANEL_MAX_PREVIOUS_EXCHANGES value"},
		{"LOG_LEVEL", "loud", "invalid LOG_LEVEL value"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestArkRequiresCredentials(t *testing.T) {
	cfg := AIConfig{Provider: ProviderArk, Model: "doubao"}
	assert.False(t, cfg.Enabled())

	cfg.AccessKey, cfg.SecretKey = "ak", "sk"
	assert.True(t, cfg.Enabled())
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
	assert.True(t, logger.Core().Enabled(1))

	_, err = NewLogger(LogConfig{Level: "chatty"})
	assert.Error(t, err)
}
