package wsession

import (
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the file representation of a session. Durations use Go syntax
// ("20s", "1m").
type Config struct {
	URL                  string            `yaml:"url"`
	Headers              map[string]string `yaml:"headers"`
	KeepAliveInterval    time.Duration     `yaml:"keepalive_interval"`
	PongTimeout          time.Duration     `yaml:"pong_timeout"`
	HandshakeTimeout     time.Duration     `yaml:"handshake_timeout"`
	TerminateOnSendError bool              `yaml:"terminate_on_send_error"`
	LogLevel             string            `yaml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		KeepAliveInterval: DefaultKeepAliveInterval,
		PongTimeout:       DefaultPongTimeout,
		HandshakeTimeout:  45 * time.Second,
		LogLevel:          "info",
	}
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "cannot read config %s", path)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML on top of DefaultConfig. The result is not
// validated, so callers can fill in missing fields first.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "cannot decode config")
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("config: url is required")
	}
	if c.KeepAliveInterval <= 0 {
		return errors.New("config: keepalive_interval must be positive")
	}
	if c.PongTimeout <= 0 {
		return errors.New("config: pong_timeout must be positive")
	}
	return nil
}

// Options translates the file settings into coordinator options.
func (c Config) Options() []Option {
	opts := []Option{
		WithKeepAliveInterval(c.KeepAliveInterval),
		WithPongTimeout(c.PongTimeout),
		WithTerminateOnSendError(c.TerminateOnSendError),
	}

	if c.HandshakeTimeout > 0 {
		dialer := *defaultSettings().dialer
		dialer.HandshakeTimeout = c.HandshakeTimeout
		opts = append(opts, WithDialer(&dialer))
	}

	keys := make([]string, 0, len(c.Headers))
	for k := range c.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		opts = append(opts, WithHeader(k, c.Headers[k]))
	}

	return opts
}

// NewFromConfig builds a websocket backed Coordinator from cfg. Extra options
// are applied after the ones derived from cfg.
func NewFromConfig(cfg Config, opts ...Option) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return New(cfg.URL, append(cfg.Options(), opts...)...)
}
