// Package config loads go-swift service configuration.
//
// Values come from three layers, later layers winning:
// built-in defaults, an optional YAML file, then environment variables
// (optionally seeded from a .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Audio modes for the synthesis step.
const (
	AudioModeBuffered = "buffered"
	AudioModeStreamed = "streamed"
)

// Provider names accepted by each section.
const (
	ProviderOpenAI     = "openai"
	ProviderGoogle     = "google"
	ProviderLangChain  = "langchain"
	ProviderElevenLabs = "elevenlabs"
)

// Config is the complete service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Assistant   AssistantConfig   `yaml:"assistant"`
	STT         STTConfig         `yaml:"stt"`
	LLM         LLMConfig         `yaml:"llm"`
	TTS         TTSConfig         `yaml:"tts"`
	Geo         GeoConfig         `yaml:"geo"`
	Credentials CredentialsConfig `yaml:"credentials"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address     string `yaml:"address"`
	Port        int    `yaml:"port"`
	StaticDir   string `yaml:"static_dir"`
	BodyLimitMB int    `yaml:"body_limit_mb"`
	Debug       bool   `yaml:"debug"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AssistantConfig shapes the conversation pipeline.
type AssistantConfig struct {
	// Persona replaces the default persona lines of the system prompt.
	Persona []string `yaml:"persona"`

	// Disclosures replaces the model and hosting lines.
	Disclosures []string `yaml:"disclosures"`

	// AudioMode is "buffered" or "streamed".
	AudioMode string `yaml:"audio_mode"`

	// TestPhrase is synthesized by the test-speech endpoint.
	TestPhrase string `yaml:"test_phrase"`
}

// STTConfig selects the transcription provider.
type STTConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// LLMConfig selects the chat-completion provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// TTSConfig selects the speech-synthesis provider.
type TTSConfig struct {
	Provider string   `yaml:"provider"`
	Fallback []string `yaml:"fallback"`
	Model    string   `yaml:"model"`
	BaseURL  string   `yaml:"base_url"`

	// Voices maps a language code to a provider voice identifier.
	Voices map[string]string `yaml:"voices"`

	Stability       float64 `yaml:"stability"`
	SimilarityBoost float64 `yaml:"similarity_boost"`

	TestVoice string `yaml:"test_voice"`
	TestModel string `yaml:"test_model"`
}

// GeoConfig names the request headers carrying location hints.
type GeoConfig struct {
	CountryHeader   string `yaml:"country_header"`
	RegionHeader    string `yaml:"region_header"`
	CityHeader      string `yaml:"city_header"`
	TimezoneHeader  string `yaml:"timezone_header"`
	RequestIDHeader string `yaml:"request_id_header"`
}

// CredentialsConfig holds provider secrets. Normally populated from env.
type CredentialsConfig struct {
	OpenAIAPIKey          string `yaml:"openai_api_key"`
	ElevenLabsAPIKey      string `yaml:"elevenlabs_api_key"`
	GoogleAPIKey          string `yaml:"google_api_key"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:     "0.0.0.0",
			Port:        3000,
			BodyLimitMB: 25,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Assistant: AssistantConfig{
			AudioMode:  AudioModeBuffered,
			TestPhrase: "Test me now",
		},
		STT: STTConfig{
			Provider: ProviderOpenAI,
			Model:    "whisper-1",
		},
		LLM: LLMConfig{
			Provider: ProviderOpenAI,
			Model:    "gpt-4o-mini",
		},
		TTS: TTSConfig{
			Provider: ProviderElevenLabs,
			Model:    "eleven_multilingual_v2",
			Voices: map[string]string{
				"en": "21m00Tcm4TlvDq8ikWAM",
				"el": "AZnzlk1XvdvUeBnXmlld",
			},
			Stability:       0.5,
			SimilarityBoost: 0.75,
			TestVoice:       "21m00Tcm4TlvDq8ikWAM",
			TestModel:       "eleven_monolingual_v1",
		},
		Geo: GeoConfig{
			CountryHeader:   "X-Vercel-IP-Country",
			RegionHeader:    "X-Vercel-IP-Country-Region",
			CityHeader:      "X-Vercel-IP-City",
			TimezoneHeader:  "X-Vercel-IP-Timezone",
			RequestIDHeader: "X-Vercel-Id",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path
// (skipped when path is empty), a .env file if present, and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays values from the environment. getenv is os.Getenv in
// production and a map lookup in tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.Credentials.OpenAIAPIKey = v
	}
	for _, key := range []string{"ELEVEN_LABS_API_KEY", "ELEVENLABS_API_KEY"} {
		if v := getenv(key); v != "" {
			c.Credentials.ElevenLabsAPIKey = v
			break
		}
	}
	if v := getenv("GOOGLE_API_KEY"); v != "" {
		c.Credentials.GoogleAPIKey = v
	}
	if v := getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		c.Credentials.GoogleCredentialsFile = v
	}
	if v := getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := getenv("SWIFT_AUDIO_MODE"); v != "" {
		c.Assistant.AudioMode = strings.ToLower(v)
	}
}

// Validate performs validation of every section.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.Assistant.Validate(); err != nil {
		return fmt.Errorf("assistant config: %w", err)
	}
	if err := c.STT.Validate(c.Credentials); err != nil {
		return fmt.Errorf("stt config: %w", err)
	}
	if err := c.LLM.Validate(c.Credentials); err != nil {
		return fmt.Errorf("llm config: %w", err)
	}
	if err := c.TTS.Validate(c.Credentials); err != nil {
		return fmt.Errorf("tts config: %w", err)
	}
	return nil
}

// Validate validates server configuration.
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.BodyLimitMB < 1 {
		return fmt.Errorf("body_limit_mb must be at least 1, got %d", s.BodyLimitMB)
	}
	return nil
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}
	switch l.Format {
	case "json", "text":
	default:
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}
	return nil
}

// Validate validates assistant configuration.
func (a *AssistantConfig) Validate() error {
	switch a.AudioMode {
	case AudioModeBuffered, AudioModeStreamed:
	default:
		return fmt.Errorf("audio_mode must be 'buffered' or 'streamed', got '%s'", a.AudioMode)
	}
	if strings.TrimSpace(a.TestPhrase) == "" {
		return fmt.Errorf("test_phrase cannot be empty")
	}
	return nil
}

// Validate validates transcription configuration.
func (s *STTConfig) Validate(creds CredentialsConfig) error {
	switch s.Provider {
	case ProviderOpenAI:
		if creds.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai transcriber")
		}
	case ProviderGoogle:
		// Application default credentials are acceptable.
	default:
		return fmt.Errorf("provider must be 'openai' or 'google', got '%s'", s.Provider)
	}
	return nil
}

// Validate validates chat-completion configuration.
func (l *LLMConfig) Validate(creds CredentialsConfig) error {
	switch l.Provider {
	case ProviderOpenAI, ProviderLangChain:
	default:
		return fmt.Errorf("provider must be 'openai' or 'langchain', got '%s'", l.Provider)
	}
	// Local OpenAI-compatible servers run without a key.
	if l.BaseURL == "" && creds.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required unless base_url points at a local server")
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", l.Temperature)
	}
	return nil
}

// Validate validates speech-synthesis configuration.
func (t *TTSConfig) Validate(creds CredentialsConfig) error {
	providers := append([]string{t.Provider}, t.Fallback...)
	for _, p := range providers {
		switch p {
		case ProviderElevenLabs:
			if creds.ElevenLabsAPIKey == "" {
				return fmt.Errorf("ELEVEN_LABS_API_KEY is required for the elevenlabs synthesizer")
			}
		case ProviderOpenAI:
			if creds.OpenAIAPIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY is required for the openai synthesizer")
			}
		case ProviderGoogle:
		default:
			return fmt.Errorf("unknown provider '%s'", p)
		}
	}
	for _, lang := range []string{"en", "el"} {
		if t.Voices[lang] == "" {
			return fmt.Errorf("voices must define a voice for %q", lang)
		}
	}
	if t.Stability < 0 || t.Stability > 1 {
		return fmt.Errorf("stability must be between 0 and 1, got %f", t.Stability)
	}
	if t.SimilarityBoost < 0 || t.SimilarityBoost > 1 {
		return fmt.Errorf("similarity_boost must be between 0 and 1, got %f", t.SimilarityBoost)
	}
	return nil
}

// ShutdownTimeout is how long the server waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second
