package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "session.json"), cfg.SessionPath())
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	cfg.APIURL = "https://tasks.example.com/base"
	cfg.Mock = true
	cfg.ReconnectDelay = 2 * time.Second
	require.NoError(t, cfg.Save())

	loaded, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://tasks.example.com/base", loaded.APIURL)
	assert.True(t, loaded.Mock)
	assert.Equal(t, 2*time.Second, loaded.ReconnectDelay)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("api_url: http://file:1\n"), 0644))
	t.Setenv("TASKCORE_API_URL", "http://env:2")
	t.Setenv("TASKCORE_RECONNECT_DELAY", "750ms")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://env:2", cfg.APIURL)
	assert.Equal(t, 750*time.Millisecond, cfg.ReconnectDelay)
}

func TestInvalidAPIURL(t *testing.T) {
	t.Setenv("TASKCORE_API_URL", "localhost:8080")
	_, err := LoadFrom(t.TempDir())
	assert.Error(t, err)
}

func TestPushURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"http becomes ws", Config{APIURL: "http://localhost:8080"}, "ws://localhost:8080/ws"},
		{"https becomes wss", Config{APIURL: "https://api.example.com"}, "wss://api.example.com/ws"},
		{"base path kept", Config{APIURL: "http://h:1/app/"}, "ws://h:1/app/ws"},
		{"host override", Config{APIURL: "http://h:1", PushHost: "push"}, "ws://push:1/ws"},
		{"port override", Config{APIURL: "http://h", PushPort: 9000}, "ws://h:9000/ws"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.PushURL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
