package stt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	speech "google.golang.org/api/speech/v1"

	"github.com/teslashibe/go-swift/internal/gcp"
)

const providerGoogle = "google"

var googleLanguageCodes = map[string]string{
	LanguageEnglish: "en-US",
	LanguageGreek:   "el-GR",
}

// Google transcribes audio with Google Cloud Speech-to-Text (synchronous
// recognize, so recordings must stay under a minute).
type Google struct {
	config  *Config
	service *speech.Service
	logger  *slog.Logger
}

// NewGoogle creates a Google Cloud transcriber.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.Model = ""
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

	service, err := speech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create service: %w", err))
	}

	return &Google{
		config:  cfg,
		service: service,
		logger:  cfg.Logger.With("component", "stt.google"),
	}, nil
}

// Transcribe sends the recording inline and joins the top alternatives.
func (g *Google) Transcribe(ctx context.Context, audio Audio) (*Result, error) {
	if len(audio.Data) == 0 {
		return nil, WrapError(providerGoogle, ErrEmptyAudio)
	}
	start := time.Now()
	lang := NormalizeLanguage(audio.Language)

	config := &speech.RecognitionConfig{
		LanguageCode:               googleLanguageCodes[lang],
		Model:                      g.config.Model,
		EnableAutomaticPunctuation: true,
	}
	config.Encoding, config.SampleRateHertz = googleEncoding(audio)

	resp, err := g.service.Speech.Recognize(&speech.RecognizeRequest{
		Audio:  &speech.RecognitionAudio{Content: base64.StdEncoding.EncodeToString(audio.Data)},
		Config: config,
	}).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return nil, &APIError{StatusCode: gerr.Code, Message: gerr.Message, Provider: providerGoogle}
		}
		return nil, WrapError(providerGoogle, err)
	}

	var parts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) > 0 && r.Alternatives[0].Transcript != "" {
			parts = append(parts, strings.TrimSpace(r.Alternatives[0].Transcript))
		}
	}
	text := strings.Join(parts, " ")

	latency := time.Since(start).Milliseconds()
	g.logger.Debug("transcribed audio",
		"bytes", len(audio.Data),
		"chars", len(text),
		"language", lang,
		"latency_ms", latency,
	)

	return &Result{Text: text, Language: lang, LatencyMs: latency}, nil
}

// Health is a no-op beyond construction; the Speech API has no cheap
// authenticated read endpoint.
func (g *Google) Health(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (g *Google) Close() error {
	return nil
}

// Name identifies the provider in logs and health reports.
func (g *Google) Name() string {
	return providerGoogle
}

// googleEncoding picks the RecognitionConfig encoding. WAV and FLAC carry
// their own headers, so only compressed containers need explicit settings.
func googleEncoding(audio Audio) (string, int64) {
	ext := strings.ToLower(filepath.Ext(audio.filename()))
	switch ext {
	case ".webm":
		return "WEBM_OPUS", 48000
	case ".ogg":
		return "OGG_OPUS", 48000
	case ".flac":
		return "FLAC", 0
	default:
		return "", 0
	}
}

var _ Provider = (*Google)(nil)
