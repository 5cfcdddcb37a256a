// Package client talks to a swift server and drives a voice conversation:
// capture, detect speech, submit, play the reply.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/teslashibe/go-swift/internal/header"
	"github.com/teslashibe/go-swift/internal/httpc"
	"github.com/teslashibe/go-swift/pkg/assistant"
)

// Notices shown for failed exchanges.
const (
	NoticeRateLimited = "Too many requests. Please try again later."
	NoticeGeneric     = "An error occurred."
)

// ErrIncomplete is returned when a 2xx response lacks transcript, reply or
// audio.
var ErrIncomplete = errors.New("client: incomplete response")

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body)
}

// Notice returns the user-facing message for err.
func Notice(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		if se.StatusCode == http.StatusTooManyRequests {
			return NoticeRateLimited
		}
		if body := strings.TrimSpace(se.Body); body != "" {
			return body
		}
	}
	return NoticeGeneric
}

// Latencies is the server's breakdown plus the client's round trip.
type Latencies struct {
	assistant.Latencies
	Total int64 `json:"total"`
}

// Entry is one conversation turn. Assistant entries carry latencies.
type Entry struct {
	Role      assistant.Role `json:"role"`
	Content   string         `json:"content"`
	Latencies *Latencies     `json:"latencies,omitempty"`
}

// Submission is one request. Exactly one of Text and WAV is used; WAV wins.
type Submission struct {
	Text     string
	WAV      []byte
	History  []Entry
	Language assistant.Language
}

// Exchange is a successful response.
type Exchange struct {
	RequestID   string
	Transcript  string
	Response    string
	Latencies   assistant.Latencies
	Audio       []byte
	ContentType string
	Elapsed     time.Duration
}

// API is a swift server client.
type API struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an API.
type Option func(*API)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *API) { a.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAPI returns a client for the server at baseURL.
func NewAPI(baseURL string, opts ...Option) *API {
	a := &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpc.NewClient(60 * time.Second),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "client.api")
	return a
}

// Submit posts one exchange and reads the whole reply.
func (a *API) Submit(ctx context.Context, s Submission) (*Exchange, error) {
	body, contentType, err := encodeForm(s)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	start := a.now()
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()

	ex := &Exchange{
		RequestID:   resp.Header.Get(header.RequestID),
		Transcript:  decodeHeader(resp.Header.Get(header.Transcript)),
		Response:    decodeHeader(resp.Header.Get(header.Response)),
		ContentType: resp.Header.Get("Content-Type"),
	}
	if raw := resp.Header.Get(header.Latencies); raw != "" {
		if err := json.Unmarshal([]byte(decodeHeader(raw)), &ex.Latencies); err != nil {
			a.logger.Debug("unreadable latencies header", "error", err)
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	ex.Elapsed = a.now().Sub(start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if ex.Transcript == "" || ex.Response == "" || len(data) == 0 {
		return nil, ErrIncomplete
	}
	ex.Audio = data

	a.logger.Debug("exchange complete",
		"request_id", ex.RequestID,
		"bytes", len(data),
		"elapsed_ms", ex.Elapsed.Milliseconds(),
	)
	return ex, nil
}

// TestSpeech fetches the server's test phrase audio.
func (a *API) TestSpeech(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/test-tts", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("test speech: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// EventsURL is the websocket URL of the server's event feed.
func (a *API) EventsURL() string {
	u := a.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/events"
}

func encodeForm(s Submission) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if len(s.WAV) > 0 {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="audio.wav"`, assistant.FieldInput))
		h.Set("Content-Type", "audio/wav")
		fw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("encode form: %w", err)
		}
		if _, err := fw.Write(s.WAV); err != nil {
			return nil, "", fmt.Errorf("encode form: %w", err)
		}
	} else if err := w.WriteField(assistant.FieldInput, s.Text); err != nil {
		return nil, "", fmt.Errorf("encode form: %w", err)
	}

	for _, e := range s.History {
		raw, err := json.Marshal(e)
		if err != nil {
			return nil, "", fmt.Errorf("encode message: %w", err)
		}
		if err := w.WriteField(assistant.FieldMessage, string(raw)); err != nil {
			return nil, "", fmt.Errorf("encode form: %w", err)
		}
	}

	lang := s.Language
	if lang == "" {
		lang = assistant.LanguageEnglish
	}
	if err := w.WriteField(assistant.FieldLanguage, string(lang)); err != nil {
		return nil, "", fmt.Errorf("encode form: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("encode form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// decodeHeader returns the raw value when it is not valid percent-encoding.
func decodeHeader(v string) string {
	s, err := header.Decode(v)
	if err != nil {
		return v
	}
	return s
}
