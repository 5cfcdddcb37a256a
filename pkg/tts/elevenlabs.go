package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-swift/internal/httpc"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	providerElevenLabs = "elevenlabs"
)

// ElevenLabs model IDs
const (
	// ModelMultilingualV2 speaks both English and Greek.
	ModelMultilingualV2 = "eleven_multilingual_v2"

	// ModelMonolingualV1 is the legacy English model used for test speech.
	ModelMonolingualV1 = "eleven_monolingual_v1"
)

// ElevenLabs implements Provider for ElevenLabs TTS.
type ElevenLabs struct {
	config       *Config
	client       *http.Client
	streamClient *http.Client
	logger       *slog.Logger
	baseURL      string
}

// NewElevenLabs creates a new ElevenLabs TTS provider.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.ValidateWithVoice(); err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}

	client := httpc.OrDefault(cfg.HTTPClient, cfg.Timeout)
	streamClient := cfg.HTTPClient
	if streamClient == nil {
		// Streams last as long as the client keeps reading.
		streamClient = httpc.NewClient(0)
	}

	return &ElevenLabs{
		config:       cfg,
		client:       client,
		streamClient: streamClient,
		logger:       cfg.Logger.With("component", "tts.elevenlabs"),
		baseURL:      baseURL,
	}, nil
}

type elevenLabsPayload struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize converts text to audio, returning the complete audio buffer.
func (e *ElevenLabs) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	start := time.Now()

	post, err := e.buildPost(req, "")
	if err != nil {
		return nil, err
	}

	resp, err := doWithRetry(ctx, e.client, e.config, e.logger, providerElevenLabs, post, e.parseError)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := readAudio(providerElevenLabs, resp.Body)
	if err != nil {
		return nil, err
	}

	latency := elapsedMs(start)
	e.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(audio),
		"latency_ms", latency,
		"model", e.config.resolveModel(req),
	)

	return &AudioResult{
		Audio:     audio,
		Format:    MP3Format,
		CharCount: len(req.Text),
		LatencyMs: latency,
	}, nil
}

// Stream converts text to audio and returns the open response body.
func (e *ElevenLabs) Stream(ctx context.Context, req Request) (AudioStream, error) {
	post, err := e.buildPost(req, "/stream")
	if err != nil {
		return nil, err
	}

	resp, err := doWithRetry(ctx, e.streamClient, e.config, e.logger, providerElevenLabs, post, e.parseError)
	if err != nil {
		return nil, err
	}

	return newHTTPStream(providerElevenLabs, resp.Body, MP3Format)
}

// Health checks API connectivity and API key validity.
func (e *ElevenLabs) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/user", nil)
	if err != nil {
		return WrapError(providerElevenLabs, err)
	}
	req.Header.Set("xi-api-key", e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return WrapError(providerElevenLabs, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return e.parseError(resp)
	}
	return nil
}

// Close releases resources held by the provider.
func (e *ElevenLabs) Close() error {
	e.client.CloseIdleConnections()
	e.streamClient.CloseIdleConnections()
	return nil
}

// Name identifies the provider in logs and health reports.
func (e *ElevenLabs) Name() string {
	return providerElevenLabs
}

func (e *ElevenLabs) buildPost(req Request, suffix string) (jsonPost, error) {
	if strings.TrimSpace(req.Text) == "" {
		return jsonPost{}, WrapError(providerElevenLabs, ErrEmptyText)
	}

	voice := ResolveElevenLabsVoice(e.config.resolveVoice(req))
	if voice == "" {
		return jsonPost{}, WrapError(providerElevenLabs, ErrNoVoiceID)
	}

	body, err := json.Marshal(elevenLabsPayload{
		Text:    req.Text,
		ModelID: e.config.resolveModel(req),
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       e.config.VoiceSettings.Stability,
			SimilarityBoost: e.config.VoiceSettings.SimilarityBoost,
		},
	})
	if err != nil {
		return jsonPost{}, WrapError(providerElevenLabs, fmt.Errorf("marshal payload: %w", err))
	}

	return jsonPost{
		url:  fmt.Sprintf("%s/text-to-speech/%s%s", e.baseURL, voice, suffix),
		body: body,
		headers: map[string]string{
			"xi-api-key":   e.config.APIKey,
			"Content-Type": "application/json",
			"Accept":       MP3Format.MIMEType(),
		},
	}, nil
}

// parseError reads and parses an error response.
func (e *ElevenLabs) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp struct {
		Detail struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"detail"`
	}

	message := strings.TrimSpace(string(body))
	code := ""
	if json.Unmarshal(body, &errResp) == nil && errResp.Detail.Message != "" {
		message = errResp.Detail.Message
		code = errResp.Detail.Status
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Code:       code,
		Provider:   providerElevenLabs,
	}
}

// Verify ElevenLabs implements Provider at compile time.
var _ Provider = (*ElevenLabs)(nil)
