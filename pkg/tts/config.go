package tts

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-swift/internal/httpc"
)

// Config holds TTS provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Provider credentials
	APIKey  string
	BaseURL string

	// CredentialsFile is a Google service-account JSON file.
	CredentialsFile string

	// Voice configuration
	VoiceID       string
	Voices        map[string]string
	ModelID       string
	VoiceSettings VoiceSettings

	Timeout time.Duration

	// Retry configuration. Zero retries by default.
	MaxRetries int
	RetryDelay time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Option is a functional option for configuring TTS providers.
type Option func(*Config)

// WithAPIKey sets the API key for the provider.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithCredentialsFile sets a Google service-account file.
func WithCredentialsFile(path string) Option {
	return func(c *Config) { c.CredentialsFile = path }
}

// WithVoice sets the fallback voice used when no language voice matches.
func WithVoice(voiceID string) Option {
	return func(c *Config) { c.VoiceID = voiceID }
}

// WithLanguageVoices maps language codes to voice identifiers.
func WithLanguageVoices(voices map[string]string) Option {
	return func(c *Config) {
		c.Voices = make(map[string]string, len(voices))
		for k, v := range voices {
			c.Voices[k] = v
		}
	}
}

// WithModel sets the model ID.
func WithModel(modelID string) Option {
	return func(c *Config) { c.ModelID = modelID }
}

// WithVoiceSettings sets voice characteristics.
func WithVoiceSettings(settings VoiceSettings) Option {
	return func(c *Config) { c.VoiceSettings = settings }
}

// WithTimeout sets the request timeout for buffered requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// WithRetry configures retry behavior for failed requests.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithHTTPClient replaces the HTTP client. Mostly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// DefaultConfig returns the configuration the assistant ships with.
func DefaultConfig() *Config {
	return &Config{
		ModelID:       ModelMultilingualV2,
		Voices:        DefaultLanguageVoices(),
		VoiceSettings: DefaultVoiceSettings(),
		Timeout:       httpc.DefaultTimeout,
		RetryDelay:    100 * time.Millisecond,
		Logger:        slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}

// ValidateWithVoice checks that an API key and at least one voice are present.
func (c *Config) ValidateWithVoice() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.VoiceID == "" && len(c.Voices) == 0 {
		return ErrNoVoiceID
	}
	return nil
}

// resolveVoice picks the voice for a request: explicit voice, then the
// language voice, then the configured default, then English.
func (c *Config) resolveVoice(req Request) string {
	if req.Voice != "" {
		return req.Voice
	}
	if v, ok := c.Voices[req.Language]; ok && v != "" {
		return v
	}
	if c.VoiceID != "" {
		return c.VoiceID
	}
	return c.Voices[LanguageEnglish]
}

func (c *Config) resolveModel(req Request) string {
	if req.Model != "" {
		return req.Model
	}
	return c.ModelID
}
