package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := "api_url: https://borka.example.se/\nsource: carrier-pigeon\nmax_events_per_day: 0\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://borka.example.se", cfg.APIURL)
	assert.Equal(t, SourceJSON, cfg.Source)
	assert.Equal(t, 2, cfg.MaxEventsPerDay)
	assert.Equal(t, "Europe/Stockholm", cfg.Timezone)
	assert.Equal(t, "*/15 * * * *", cfg.RefreshCron)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.APIURL = "https://borka.example.se"
	cfg.Source = SourceICS
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "hemligt"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.APIURL = "https://borka.example.se"
	assert.NoError(t, cfg.Validate())

	cfg.Timezone = "Mars/Olympus_Mons"
	assert.Error(t, cfg.Validate())
	assert.Equal(t, time.Local, cfg.Location())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvAPIURL, "https://env.example.se/")
	t.Setenv(EnvListen, ":9000")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvSessionToken, "tok")

	cfg := DefaultConfig()
	cfg.APIURL = "https://file.example.se"
	require.NoError(t, cfg.ApplyEnv(filepath.Join(t.TempDir(), "missing.env")))

	assert.Equal(t, "https://env.example.se", cfg.APIURL)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "tok", cfg.SessionToken)
}

func TestApplyEnvReadsDotEnv(t *testing.T) {
	for _, k := range []string{EnvAPIURL, EnvListen, EnvLogLevel, EnvSessionToken} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BORKA_API_URL=https://dotenv.example.se\n"), 0o600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(envFile))
	assert.Equal(t, "https://dotenv.example.se", cfg.APIURL)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
}
