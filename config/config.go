// Package config loads the sioclient settings from the environment, with an
// optional .env file underneath. The socket package never reads it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultNamespace      = "socket.io"
	DefaultPollInterval   = time.Second
	DefaultReconnectDelay = 5 * time.Second
	DefaultHTTPAddr       = ":9090"
)

type Config struct {
	// Socket
	Origin         string
	Namespace      string
	PollInterval   time.Duration
	ReconnectDelay time.Duration

	// Status server; empty disables it.
	HTTPAddr string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads .env from the working directory when present, then the
// environment. Variables already set win over the file.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv paths. Missing files are skipped.
func LoadFiles(paths ...string) (*Config, error) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
	}
	return FromEnv()
}

// FromEnv reads the environment and applies defaults.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Origin:    strings.TrimSpace(os.Getenv("SOCKETIO_ORIGIN")),
		Namespace: os.Getenv("SOCKETIO_NAMESPACE"),
		LogLevel:  strings.ToLower(os.Getenv("LOG_LEVEL")),
		LogFormat: strings.ToLower(os.Getenv("LOG_FORMAT")),
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	var err error
	if cfg.PollInterval, err = durationEnv("SOCKETIO_POLL_INTERVAL", DefaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.ReconnectDelay, err = durationEnv("SOCKETIO_RECONNECT_DELAY", DefaultReconnectDelay); err != nil {
		return nil, err
	}

	// HTTP_ADDR set to "" turns the status server off.
	if v, ok := os.LookupEnv("HTTP_ADDR"); ok {
		cfg.HTTPAddr = v
	} else {
		cfg.HTTPAddr = DefaultHTTPAddr
	}

	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (duration like 1s or 500ms): %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %s", key, v)
	}
	return d, nil
}

// Validate checks the fields the listen command cannot run without.
func (c *Config) Validate() error {
	if c.Origin == "" {
		return errors.New("missing SOCKETIO_ORIGIN (or --origin)")
	}
	u, err := url.Parse(c.Origin)
	if err != nil {
		return fmt.Errorf("invalid SOCKETIO_ORIGIN: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid SOCKETIO_ORIGIN %q: scheme must be http or https", c.Origin)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q (text|json)", c.LogFormat)
	}
	return nil
}
