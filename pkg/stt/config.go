package stt

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-swift/internal/httpc"
)

// Config holds STT provider configuration.
type Config struct {
	APIKey          string
	BaseURL         string
	CredentialsFile string
	Model           string
	Timeout         time.Duration
	HTTPClient      *http.Client
	Logger          *slog.Logger
}

// Option is a functional option for configuring STT providers.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithCredentialsFile sets a Google service-account file.
func WithCredentialsFile(path string) Option {
	return func(c *Config) { c.CredentialsFile = path }
}

// WithModel sets the recognition model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns defaults for OpenAI Whisper.
func DefaultConfig() *Config {
	return &Config{
		Model:   ModelWhisper1,
		Timeout: httpc.DefaultTimeout,
		Logger:  slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
