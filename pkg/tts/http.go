package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// streamChunkSize bounds how much audio a single Read returns.
const streamChunkSize = 4096

// jsonPost describes a JSON POST that may be retried.
type jsonPost struct {
	url     string
	body    []byte
	headers map[string]string
}

// doWithRetry performs the request, retrying 429 and 5xx responses up to
// cfg.MaxRetries times. The returned response always has a 2xx status.
func doWithRetry(ctx context.Context, client *http.Client, cfg *Config, logger *slog.Logger,
	provider string, p jsonPost, parseError func(*http.Response) error) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(p.body))
		if err != nil {
			return nil, WrapError(provider, fmt.Errorf("create request: %w", err))
		}
		for k, v := range p.headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, WrapError(provider, ctx.Err())
			}
			lastErr = WrapError(provider, err)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			lastErr = parseError(resp)
			resp.Body.Close()

			var apiErr *APIError
			if errors.As(lastErr, &apiErr) && apiErr.IsRetryable() && attempt < cfg.MaxRetries {
				logger.Warn("retrying request",
					"attempt", attempt+1,
					"status", resp.StatusCode,
				)
				continue
			}
			return nil, lastErr
		}

		return resp, nil
	}

	return nil, lastErr
}

// readAudio reads a complete body and rejects empty audio.
func readAudio(provider string, body io.Reader) ([]byte, error) {
	audio, err := io.ReadAll(body)
	if err != nil {
		return nil, WrapError(provider, fmt.Errorf("read response: %w", err))
	}
	if len(audio) == 0 {
		return nil, WrapError(provider, ErrEmptyAudio)
	}
	return audio, nil
}

// httpStream wraps an HTTP response body as AudioStream.
type httpStream struct {
	body   io.ReadCloser
	format AudioFormat
	first  []byte
	buf    [streamChunkSize]byte
}

// newHTTPStream reads the first chunk eagerly so an empty body is reported
// as an error before any bytes reach the caller.
func newHTTPStream(provider string, body io.ReadCloser, format AudioFormat) (*httpStream, error) {
	s := &httpStream{body: body, format: format}
	chunk, err := s.next()
	if err != nil {
		body.Close()
		return nil, WrapError(provider, fmt.Errorf("read stream: %w", err))
	}
	if chunk == nil {
		body.Close()
		return nil, WrapError(provider, ErrEmptyAudio)
	}
	s.first = chunk
	return s, nil
}

func (s *httpStream) next() ([]byte, error) {
	for {
		n, err := s.body.Read(s.buf[:])
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, s.buf[:n])
			return chunk, nil
		}
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Read returns the next audio chunk.
func (s *httpStream) Read() ([]byte, error) {
	if s.first != nil {
		chunk := s.first
		s.first = nil
		return chunk, nil
	}
	return s.next()
}

// Close stops the stream.
func (s *httpStream) Close() error {
	return s.body.Close()
}

// Format returns the audio format.
func (s *httpStream) Format() AudioFormat {
	return s.format
}

// bufferStream wraps a byte slice as AudioStream, handing it out in
// streamChunkSize pieces.
type bufferStream struct {
	data   []byte
	offset int
	format AudioFormat
}

// NewBufferStream exposes a complete buffer through the AudioStream interface.
func NewBufferStream(data []byte, format AudioFormat) AudioStream {
	return &bufferStream{data: data, format: format}
}

// Read returns the next audio chunk.
func (s *bufferStream) Read() ([]byte, error) {
	if s.offset >= len(s.data) {
		return nil, nil
	}
	end := s.offset + streamChunkSize
	if end > len(s.data) {
		end = len(s.data)
	}
	chunk := s.data[s.offset:end]
	s.offset = end
	return chunk, nil
}

// Close releases resources.
func (s *bufferStream) Close() error {
	return nil
}

// Format returns the audio format.
func (s *bufferStream) Format() AudioFormat {
	return s.format
}
