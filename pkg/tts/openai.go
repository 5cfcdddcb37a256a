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
	openAIBaseURL  = "https://api.openai.com/v1"
	providerOpenAI = "openai"
)

// OpenAI voice options
const (
	VoiceAlloy   = "alloy"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

// OpenAI model options
const (
	ModelTTS1   = "tts-1"
	ModelTTS1HD = "tts-1-hd"
)

// OpenAI implements Provider for the OpenAI speech endpoint.
// The same voice speaks every language.
type OpenAI struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewOpenAI creates a new OpenAI TTS provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelTTS1
	cfg.VoiceID = VoiceShimmer
	cfg.Voices = nil
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = VoiceShimmer
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = openAIBaseURL
	}

	return &OpenAI{
		config:  cfg,
		client:  httpc.OrDefault(cfg.HTTPClient, cfg.Timeout),
		logger:  cfg.Logger.With("component", "tts.openai"),
		baseURL: baseURL,
	}, nil
}

// Synthesize converts text to audio, returning the complete audio buffer.
func (o *OpenAI) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	start := time.Now()

	resp, err := o.post(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := readAudio(providerOpenAI, resp.Body)
	if err != nil {
		return nil, err
	}

	latency := elapsedMs(start)
	o.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", o.voice(req),
	)

	return &AudioResult{
		Audio:     audio,
		Format:    MP3Format,
		CharCount: len(req.Text),
		LatencyMs: latency,
	}, nil
}

// Stream returns the response body as it arrives.
func (o *OpenAI) Stream(ctx context.Context, req Request) (AudioStream, error) {
	resp, err := o.post(ctx, req)
	if err != nil {
		return nil, err
	}
	return newHTTPStream(providerOpenAI, resp.Body, MP3Format)
}

// Health checks API connectivity.
func (o *OpenAI) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/models", nil)
	if err != nil {
		return WrapError(providerOpenAI, err)
	}
	req.Header.Set("Authorization", "Bearer "+o.config.APIKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return WrapError(providerOpenAI, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return o.parseError(resp)
	}
	return nil
}

// Close releases resources.
func (o *OpenAI) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

// Name identifies the provider in logs and health reports.
func (o *OpenAI) Name() string {
	return providerOpenAI
}

// voice ignores language voices; those are ElevenLabs identifiers.
func (o *OpenAI) voice(req Request) string {
	if req.Voice != "" && !isElevenLabsID(req.Voice) {
		return req.Voice
	}
	return o.config.VoiceID
}

func (o *OpenAI) post(ctx context.Context, req Request) (*http.Response, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, WrapError(providerOpenAI, ErrEmptyText)
	}

	model := o.config.ModelID
	if req.Model != "" && strings.HasPrefix(req.Model, "tts-") {
		model = req.Model
	}

	body, err := json.Marshal(map[string]string{
		"model":           model,
		"voice":           o.voice(req),
		"input":           req.Text,
		"response_format": "mp3",
	})
	if err != nil {
		return nil, WrapError(providerOpenAI, fmt.Errorf("marshal payload: %w", err))
	}

	return doWithRetry(ctx, o.client, o.config, o.logger, providerOpenAI, jsonPost{
		url:  o.baseURL + "/audio/speech",
		body: body,
		headers: map[string]string{
			"Authorization": "Bearer " + o.config.APIKey,
			"Content-Type":  "application/json",
		},
	}, o.parseError)
}

// parseError reads and parses an error response.
func (o *OpenAI) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	message := strings.TrimSpace(string(body))
	code := ""
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
		code = errResp.Error.Code
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Code:       code,
		Provider:   providerOpenAI,
	}
}

// isElevenLabsID reports whether v looks like an ElevenLabs voice ID
// rather than an OpenAI voice name.
func isElevenLabsID(v string) bool {
	return len(v) == 20 && strings.ToLower(v) != v
}

// Verify OpenAI implements Provider at compile time.
var _ Provider = (*OpenAI)(nil)
