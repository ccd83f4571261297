package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), Default())
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout.Duration)
	assert.Len(t, cfg.Assistant.Models, 4)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "growwly.toml")
	content := `
[server]
bind = ":9090"
shutdown_timeout = "2s"

[database]
driver = "postgres"
dsn = "postgres://growwly@localhost/growwly?sslmode=disable"

[calendar]
timezone = "Europe/Berlin"

[assistant]
models = ["llama-3.1-8b-instant"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path, Default())
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Bind)
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout.Duration)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []string{"llama-3.1-8b-instant"}, cfg.Assistant.Models)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown driver", "[database]\ndriver = \"mysql\"\n"},
		{"bad timezone", "[calendar]\ntimezone = \"Mars/Olympus\"\n"},
		{"bad duration", "[server]\nshutdown_timeout = \"soon\"\n"},
		{"zero shutdown", "[server]\nshutdown_timeout = \"0s\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "growwly.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			_, err := Load(path, Default())
			assert.Error(t, err)
		})
	}
}

func TestApplyEnvKeepsFileSecrets(t *testing.T) {
	cfg := Default()
	cfg.Assistant.GroqAPIKey = "gsk_from_file"
	env := map[string]string{
		"GROQ_API_KEY":     "gsk_from_env",
		"RESEND_API_KEY":   "re_123",
		"GROWWLY_TIMEZONE": "Asia/Tokyo",
	}
	applyEnv(&cfg, func(k string) string { return env[k] })

	assert.Equal(t, "gsk_from_file", cfg.Assistant.GroqAPIKey)
	assert.Equal(t, "re_123", cfg.Mail.ResendAPIKey)
	assert.Equal(t, "Asia/Tokyo", cfg.Calendar.Timezone)
}
