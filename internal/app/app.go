// Package app builds the swift server from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-swift/internal/config"
	"github.com/teslashibe/go-swift/pkg/assistant"
	"github.com/teslashibe/go-swift/pkg/hub"
	"github.com/teslashibe/go-swift/pkg/inference"
	"github.com/teslashibe/go-swift/pkg/metrics"
	"github.com/teslashibe/go-swift/pkg/stt"
	"github.com/teslashibe/go-swift/pkg/tts"
	"github.com/teslashibe/go-swift/pkg/web"
)

// Providers are the three external services of an exchange.
type Providers struct {
	STT stt.Provider
	LLM inference.Provider
	TTS tts.Provider
}

// Close releases every provider that was built.
func (p *Providers) Close() error {
	var errs []error
	if p.STT != nil {
		errs = append(errs, p.STT.Close())
	}
	if p.LLM != nil {
		errs = append(errs, p.LLM.Close())
	}
	if p.TTS != nil {
		errs = append(errs, p.TTS.Close())
	}
	return errors.Join(errs...)
}

// BuildProviders constructs providers named by cfg. On error, anything
// already built is closed.
func BuildProviders(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Providers, error) {
	p := &Providers{}
	var err error

	if p.STT, err = buildSTT(ctx, cfg, logger); err != nil {
		return nil, fmt.Errorf("transcriber: %w", err)
	}
	if p.LLM, err = buildLLM(cfg, logger); err != nil {
		p.Close()
		return nil, fmt.Errorf("completion: %w", err)
	}
	if p.TTS, err = buildTTS(ctx, cfg, logger); err != nil {
		p.Close()
		return nil, fmt.Errorf("synthesizer: %w", err)
	}
	return p, nil
}

func buildSTT(ctx context.Context, cfg *config.Config, logger *slog.Logger) (stt.Provider, error) {
	c := cfg.STT
	opts := []stt.Option{stt.WithLogger(logger), stt.WithBaseURL(c.BaseURL)}

	switch c.Provider {
	case config.ProviderGoogle:
		// Whisper model names mean nothing to Google.
		if c.Model != "" && c.Model != "whisper-1" {
			opts = append(opts, stt.WithModel(c.Model))
		}
		opts = append(opts,
			stt.WithAPIKey(cfg.Credentials.GoogleAPIKey),
			stt.WithCredentialsFile(cfg.Credentials.GoogleCredentialsFile),
		)
		return stt.NewGoogle(ctx, opts...)
	default:
		opts = append(opts, stt.WithModel(c.Model), stt.WithAPIKey(cfg.Credentials.OpenAIAPIKey))
		return stt.NewOpenAI(opts...)
	}
}

func buildLLM(cfg *config.Config, logger *slog.Logger) (inference.Provider, error) {
	c := cfg.LLM
	opts := []inference.Option{
		inference.WithLogger(logger),
		inference.WithAPIKey(cfg.Credentials.OpenAIAPIKey),
		inference.WithModel(c.Model),
		inference.WithMaxTokens(c.MaxTokens),
		inference.WithTemperature(c.Temperature),
	}
	if c.BaseURL != "" {
		opts = append(opts, inference.WithBaseURL(c.BaseURL))
	}

	if c.Provider == config.ProviderLangChain {
		return inference.NewLangChain(opts...)
	}
	return inference.NewClient(opts...)
}

func buildTTS(ctx context.Context, cfg *config.Config, logger *slog.Logger) (tts.Provider, error) {
	names := append([]string{cfg.TTS.Provider}, cfg.TTS.Fallback...)

	var providers []tts.Provider
	for _, name := range names {
		p, err := buildSynthesizer(ctx, name, cfg, logger)
		if err != nil {
			for _, built := range providers {
				built.Close()
			}
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		providers = append(providers, p)
	}

	if len(providers) == 1 {
		return providers[0], nil
	}
	return tts.NewChain(logger, providers...)
}

func buildSynthesizer(ctx context.Context, name string, cfg *config.Config, logger *slog.Logger) (tts.Provider, error) {
	c := cfg.TTS
	opts := []tts.Option{
		tts.WithLogger(logger),
		tts.WithLanguageVoices(c.Voices),
		tts.WithVoiceSettings(tts.VoiceSettings{Stability: c.Stability, SimilarityBoost: c.SimilarityBoost}),
	}
	// The configured model and base URL belong to the primary provider.
	if name == c.Provider {
		opts = append(opts, tts.WithModel(c.Model))
		if c.BaseURL != "" {
			opts = append(opts, tts.WithBaseURL(c.BaseURL))
		}
	}

	switch name {
	case config.ProviderOpenAI:
		return tts.NewOpenAI(append(opts, tts.WithAPIKey(cfg.Credentials.OpenAIAPIKey))...)
	case config.ProviderGoogle:
		return tts.NewGoogle(ctx, append(opts,
			tts.WithAPIKey(cfg.Credentials.GoogleAPIKey),
			tts.WithCredentialsFile(cfg.Credentials.GoogleCredentialsFile),
		)...)
	default:
		return tts.NewElevenLabs(append(opts, tts.WithAPIKey(cfg.Credentials.ElevenLabsAPIKey))...)
	}
}

// PipelineOptions maps the assistant section of cfg to pipeline options.
func PipelineOptions(cfg *config.Config, logger *slog.Logger, hooks assistant.Hooks) []assistant.Option {
	test := assistant.TestSpeech{Phrase: cfg.Assistant.TestPhrase}
	// The test voice and model are ElevenLabs identifiers.
	if cfg.TTS.Provider == config.ProviderElevenLabs {
		test.Voice = cfg.TTS.TestVoice
		test.Model = cfg.TTS.TestModel
	}

	return []assistant.Option{
		assistant.WithLogger(logger),
		assistant.WithPersona(assistant.Persona{
			Lines:       cfg.Assistant.Persona,
			Disclosures: cfg.Assistant.Disclosures,
		}),
		assistant.WithAudioMode(assistant.AudioMode(cfg.Assistant.AudioMode)),
		assistant.WithHooks(hooks),
		assistant.WithTestSpeech(test),
	}
}

// GeoHeaders maps the geo section of cfg.
func GeoHeaders(cfg *config.Config) web.GeoHeaders {
	return web.GeoHeaders{
		Country:   cfg.Geo.CountryHeader,
		Region:    cfg.Geo.RegionHeader,
		City:      cfg.Geo.CityHeader,
		Timezone:  cfg.Geo.TimezoneHeader,
		RequestID: cfg.Geo.RequestIDHeader,
	}
}

// Server is a fully wired swift server.
type Server struct {
	*web.Server
	Providers *Providers
	Pipeline  *assistant.Pipeline
	Metrics   *metrics.Metrics
	Events    *hub.Hub
}

// Build wires providers, pipeline, event hub, metrics and HTTP server.
func Build(ctx context.Context, cfg *config.Config, version string, logger *slog.Logger) (*Server, error) {
	providers, err := BuildProviders(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return Assemble(cfg, version, logger, providers)
}

// Assemble wires already-built providers into a server.
func Assemble(cfg *config.Config, version string, logger *slog.Logger, providers *Providers) (*Server, error) {
	m := metrics.New()
	events := hub.New("events",
		hub.WithLogger(logger),
		hub.WithCountHook(func(n int) { m.EventSubscribers.Set(float64(n)) }),
	)

	pipeline, err := assistant.New(providers.STT, providers.LLM, providers.TTS,
		PipelineOptions(cfg, logger, web.Hooks(events, m))...)
	if err != nil {
		providers.Close()
		return nil, err
	}

	srv := web.NewServer(pipeline, events, m, web.Config{
		Addr:      cfg.Server.Addr(),
		StaticDir: cfg.Server.StaticDir,
		BodyLimit: cfg.Server.BodyLimitMB << 20,
		Debug:     cfg.Server.Debug,
		Version:   version,
		Geo:       GeoHeaders(cfg),
		Logger:    logger,
	})

	return &Server{
		Server:    srv,
		Providers: providers,
		Pipeline:  pipeline,
		Metrics:   m,
		Events:    events,
	}, nil
}
