package wsession

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
url: wss://stream.example.com/ws
headers:
  Authorization: Bearer abc
keepalive_interval: 5s
terminate_on_send_error: true
log_level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "wss://stream.example.com/ws", cfg.URL)
	assert.Equal(t, map[string]string{"Authorization": "Bearer abc"}, cfg.Headers)
	assert.Equal(t, 5*time.Second, cfg.KeepAliveInterval)
	assert.True(t, cfg.TerminateOnSendError)
	assert.Equal(t, "debug", cfg.LogLevel)

	// untouched fields keep their defaults
	assert.Equal(t, DefaultPongTimeout, cfg.PongTimeout)
	assert.Equal(t, 45*time.Second, cfg.HandshakeTimeout)
}

func TestParseConfigInvalidYAML(t *testing.T) {
	_, err := ParseConfig([]byte("url: [unterminated"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("url: ws://localhost:8080\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080", cfg.URL)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	valid.URL = "ws://localhost"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing url", func(c *Config) { c.URL = "" }},
		{"zero keepalive", func(c *Config) { c.KeepAliveInterval = 0 }},
		{"negative pong timeout", func(c *Config) { c.PongTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeepAliveInterval = 3 * time.Second
	cfg.PongTimeout = time.Second
	cfg.HandshakeTimeout = 2 * time.Second
	cfg.Headers = map[string]string{"X-B": "2", "X-A": "1"}

	s := defaultSettings()
	for _, opt := range cfg.Options() {
		opt(&s)
	}

	assert.Equal(t, 3*time.Second, s.keepAliveInterval)
	assert.Equal(t, time.Second, s.pongTimeout)
	assert.Equal(t, 2*time.Second, s.dialer.HandshakeTimeout)
	assert.Equal(t, "1", s.header.Get("X-A"))
	assert.Equal(t, "2", s.header.Get("X-B"))
}

func TestNewFromConfig(t *testing.T) {
	_, err := NewFromConfig(DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.URL = "http://not-a-socket"
	_, err = NewFromConfig(cfg)
	assert.Error(t, err)

	cfg.URL = "ws://localhost:1"
	c, err := NewFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, c.State())
}
