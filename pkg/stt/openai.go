package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/teslashibe/go-swift/internal/httpc"
)

const (
	openAIBaseURL  = "https://api.openai.com/v1"
	providerOpenAI = "openai"

	// ModelWhisper1 is the hosted Whisper model.
	ModelWhisper1 = "whisper-1"
)

// OpenAI transcribes audio with the Whisper transcription endpoint.
// Any OpenAI-compatible server works through WithBaseURL.
type OpenAI struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewOpenAI creates a Whisper transcriber.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, ErrNoAPIKey
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = openAIBaseURL
	}

	return &OpenAI{
		config:  cfg,
		client:  httpc.OrDefault(cfg.HTTPClient, cfg.Timeout),
		logger:  cfg.Logger.With("component", "stt.openai"),
		baseURL: baseURL,
	}, nil
}

// Transcribe uploads the recording and returns the trimmed text.
func (o *OpenAI) Transcribe(ctx context.Context, audio Audio) (*Result, error) {
	if len(audio.Data) == 0 {
		return nil, WrapError(providerOpenAI, ErrEmptyAudio)
	}
	start := time.Now()
	lang := NormalizeLanguage(audio.Language)

	body, contentType, err := o.buildForm(audio, lang)
	if err != nil {
		return nil, WrapError(providerOpenAI, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return nil, WrapError(providerOpenAI, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	if o.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.config.APIKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, WrapError(providerOpenAI, fmt.Errorf("transcription request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, o.parseError(resp)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, WrapError(providerOpenAI, fmt.Errorf("decode response: %w", err))
	}

	latency := time.Since(start).Milliseconds()
	o.logger.Debug("transcribed audio",
		"bytes", len(audio.Data),
		"chars", len(out.Text),
		"language", lang,
		"latency_ms", latency,
	)

	return &Result{
		Text:      strings.TrimSpace(out.Text),
		Language:  lang,
		LatencyMs: latency,
	}, nil
}

func (o *OpenAI) buildForm(audio Audio, lang string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, audio.filename()))
	ct := audio.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}

	fields := map[string]string{
		"model":           o.config.Model,
		"language":        lang,
		"response_format": "json",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// Health checks API connectivity.
func (o *OpenAI) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/models", nil)
	if err != nil {
		return WrapError(providerOpenAI, err)
	}
	if o.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.config.APIKey)
	}

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

func (o *OpenAI) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp struct {
		Error struct {
			Message string `json:"message"`
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

var _ Provider = (*OpenAI)(nil)
