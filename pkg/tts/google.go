package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"github.com/teslashibe/go-swift/internal/gcp"
)

const providerGoogle = "google"

// Google implements Provider with Google Cloud Text-to-Speech.
// Voices maps languages to Google voice names; when empty, Google picks a
// voice for the language.
type Google struct {
	config  *Config
	service *texttospeech.Service
	logger  *slog.Logger
}

// NewGoogle creates a Google Cloud TTS provider. An API key, a
// credentials file, or application default credentials authenticate it.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.Voices = nil
	cfg.ModelID = ""
	cfg.Apply(opts...)

	clientOpts, err := gcp.ClientOptions(ctx, gcp.Credentials{
		APIKey:          cfg.APIKey,
		CredentialsFile: cfg.CredentialsFile,
		Endpoint:        cfg.BaseURL,
		HTTPClient:      cfg.HTTPClient,
	})
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}

	service, err := texttospeech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create service: %w", err))
	}

	return &Google{
		config:  cfg,
		service: service,
		logger:  cfg.Logger.With("component", "tts.google"),
	}, nil
}

// Synthesize converts text to MP3 audio.
func (g *Google) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, WrapError(providerGoogle, ErrEmptyText)
	}
	start := time.Now()

	voice := &texttospeech.VoiceSelectionParams{
		LanguageCode: googleLanguageCode(req.Language),
		Name:         g.voiceName(req),
	}

	resp, err := g.service.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input:       &texttospeech.SynthesisInput{Text: req.Text},
		Voice:       voice,
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: "MP3"},
	}).Context(ctx).Do()
	if err != nil {
		return nil, g.wrapError(err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("decode audio: %w", err))
	}
	if len(audio) == 0 {
		return nil, WrapError(providerGoogle, ErrEmptyAudio)
	}

	latency := elapsedMs(start)
	g.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(audio),
		"latency_ms", latency,
		"language", voice.LanguageCode,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    MP3Format,
		CharCount: len(req.Text),
		LatencyMs: latency,
	}, nil
}

// Stream synthesizes the full clip and hands it out in chunks; the API
// returns audio in a single JSON document.
func (g *Google) Stream(ctx context.Context, req Request) (AudioStream, error) {
	result, err := g.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}
	return NewBufferStream(result.Audio, result.Format), nil
}

// Health lists English voices as a credentials check.
func (g *Google) Health(ctx context.Context) error {
	_, err := g.service.Voices.List().LanguageCode(googleLanguageCode(LanguageEnglish)).Context(ctx).Do()
	if err != nil {
		return g.wrapError(err)
	}
	return nil
}

// Close is a no-op; the generated client holds no resources.
func (g *Google) Close() error {
	return nil
}

// Name identifies the provider in logs and health reports.
func (g *Google) Name() string {
	return providerGoogle
}

func (g *Google) voiceName(req Request) string {
	if req.Voice != "" && !isElevenLabsID(req.Voice) {
		return req.Voice
	}
	if v := g.config.Voices[req.Language]; v != "" {
		return v
	}
	return g.config.VoiceID
}

func (g *Google) wrapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &APIError{
			StatusCode: gerr.Code,
			Message:    gerr.Message,
			Provider:   providerGoogle,
		}
	}
	return WrapError(providerGoogle, err)
}

// Verify Google implements Provider at compile time.
var _ Provider = (*Google)(nil)
