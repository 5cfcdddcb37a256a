package tts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-swift/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	t.Run("Synthesize returns audio", func(t *testing.T) {
		result, err := mock.Synthesize(ctx, tts.Request{Text: "Hello world"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Audio) == 0 {
			t.Error("expected audio data")
		}
		if result.CharCount != 11 {
			t.Errorf("expected 11 chars, got %d", result.CharCount)
		}
		if result.Format.MIMEType() != "audio/mpeg" {
			t.Errorf("expected audio/mpeg, got %s", result.Format.MIMEType())
		}
	})

	t.Run("Stream returns audio stream", func(t *testing.T) {
		stream, err := mock.Stream(ctx, tts.Request{Text: "Test stream"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer stream.Close()

		chunk, err := stream.Read()
		if err != nil {
			t.Fatalf("read error: %v", err)
		}
		if len(chunk) == 0 {
			t.Error("expected audio chunk")
		}
		end, err := stream.Read()
		if err != nil || end != nil {
			t.Errorf("expected end of stream, got %v, %v", end, err)
		}
	})

	t.Run("Health returns nil", func(t *testing.T) {
		if err := mock.Health(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Calls are tracked", func(t *testing.T) {
		if len(mock.Calls()) != 3 {
			t.Errorf("expected 3 calls, got %d", len(mock.Calls()))
		}
		if mock.CallCount("Synthesize") != 1 {
			t.Errorf("expected 1 Synthesize call, got %d", mock.CallCount("Synthesize"))
		}
	})

	t.Run("Reset clears calls", func(t *testing.T) {
		mock.Reset()
		if len(mock.Calls()) != 0 {
			t.Error("expected calls to be cleared")
		}
	})
}

func TestMockWithError(t *testing.T) {
	testErr := errors.New("test error")
	mock := tts.WithError(testErr)
	ctx := context.Background()

	if _, err := mock.Synthesize(ctx, tts.Request{Text: "Hello"}); !errors.Is(err, testErr) {
		t.Errorf("expected test error, got %v", err)
	}
	if _, err := mock.Stream(ctx, tts.Request{Text: "Hello"}); err == nil {
		t.Error("expected stream error")
	}
	if err := mock.Health(ctx); err == nil {
		t.Error("expected health error")
	}
}

func TestMockWithLatency(t *testing.T) {
	mock := tts.WithLatency(tts.NewMock(), 50*time.Millisecond)

	t.Run("Synthesize has latency", func(t *testing.T) {
		start := time.Now()
		if _, err := mock.Synthesize(context.Background(), tts.Request{Text: "Hello"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
			t.Errorf("expected at least 50ms latency, got %v", elapsed)
		}
	})

	t.Run("Context cancellation works", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if _, err := mock.Synthesize(ctx, tts.Request{Text: "Hello"}); err == nil {
			t.Error("expected context deadline error")
		}
	})
}

func TestDefaultVoiceSettings(t *testing.T) {
	settings := tts.DefaultVoiceSettings()

	if settings.Stability != 0.5 {
		t.Errorf("expected stability 0.5, got %f", settings.Stability)
	}
	if settings.SimilarityBoost != 0.75 {
		t.Errorf("expected similarity 0.75, got %f", settings.SimilarityBoost)
	}
}

func TestFunctionalOptions(t *testing.T) {
	cfg := tts.DefaultConfig()
	cfg.Apply(
		tts.WithVoice("test-voice"),
		tts.WithModel("test-model"),
		tts.WithTimeout(5*time.Second),
		tts.WithLanguageVoices(map[string]string{"en": "a", "el": "b"}),
	)

	if cfg.VoiceID != "test-voice" {
		t.Errorf("expected voice test-voice, got %s", cfg.VoiceID)
	}
	if cfg.ModelID != "test-model" {
		t.Errorf("expected model test-model, got %s", cfg.ModelID)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Timeout)
	}
	if cfg.Voices["el"] != "b" {
		t.Errorf("expected el voice b, got %s", cfg.Voices["el"])
	}
	if cfg.MaxRetries != 0 {
		t.Errorf("expected no retries by default, got %d", cfg.MaxRetries)
	}
}

func TestConfigValidation(t *testing.T) {
	t.Run("Validate requires API key", func(t *testing.T) {
		cfg := tts.DefaultConfig()
		if err := cfg.Validate(); err != tts.ErrNoAPIKey {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})

	t.Run("ValidateWithVoice requires a voice", func(t *testing.T) {
		cfg := tts.DefaultConfig()
		cfg.APIKey = "test-key"
		cfg.Voices = nil
		if err := cfg.ValidateWithVoice(); err != tts.ErrNoVoiceID {
			t.Errorf("expected ErrNoVoiceID, got %v", err)
		}
	})

	t.Run("language voices satisfy ValidateWithVoice", func(t *testing.T) {
		cfg := tts.DefaultConfig()
		cfg.APIKey = "test-key"
		if err := cfg.ValidateWithVoice(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestAPIError(t *testing.T) {
	t.Run("IsRateLimited", func(t *testing.T) {
		err := &tts.APIError{StatusCode: 429, Message: "rate limited"}
		if !err.IsRateLimited() {
			t.Error("expected IsRateLimited true")
		}
		if !tts.IsRateLimited(tts.WrapError("x", err)) {
			t.Error("expected IsRateLimited through wrapping")
		}
	})

	t.Run("IsServerError", func(t *testing.T) {
		for _, code := range []int{500, 502, 503, 504} {
			err := &tts.APIError{StatusCode: code}
			if !err.IsServerError() || !err.IsRetryable() {
				t.Errorf("expected retryable server error for %d", code)
			}
		}
	})

	t.Run("Error message format", func(t *testing.T) {
		err := &tts.APIError{
			StatusCode: 400,
			Message:    "bad request",
			Code:       "invalid_input",
			Provider:   "elevenlabs",
		}
		if msg := err.Error(); msg != "tts [elevenlabs]: API error 400 (invalid_input): bad request" {
			t.Errorf("unexpected error message: %s", msg)
		}
	})
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	req := tts.Request{Text: "Hello", Language: "en"}

	t.Run("NewChain requires providers", func(t *testing.T) {
		if _, err := tts.NewChain(nil); err != tts.ErrProviderUnavailable {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
	})

	t.Run("First provider succeeds", func(t *testing.T) {
		mock1 := tts.NewMock()
		mock2 := tts.NewMock()

		chain, err := tts.NewChain(nil, mock1, mock2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer chain.Close()

		if _, err := chain.Synthesize(ctx, req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mock1.CallCount("Synthesize") != 1 {
			t.Error("expected first provider to be called")
		}
		if mock2.CallCount("Synthesize") != 0 {
			t.Error("expected second provider not to be called")
		}
	})

	t.Run("Fallback on failure", func(t *testing.T) {
		chain, _ := tts.NewChain(nil, tts.WithError(errors.New("provider 1 failed")), tts.NewMock())

		result, err := chain.Synthesize(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result == nil {
			t.Error("expected result from fallback provider")
		}
	})

	t.Run("All providers fail", func(t *testing.T) {
		last := errors.New("fail 2")
		chain, _ := tts.NewChain(nil, tts.WithError(errors.New("fail 1")), tts.WithError(last))

		_, err := chain.Synthesize(ctx, req)
		var chainErr *tts.ChainError
		if !errors.As(err, &chainErr) || len(chainErr.Errors) != 2 {
			t.Fatalf("expected ChainError with 2 errors, got %v", err)
		}
		if !errors.Is(err, last) {
			t.Error("expected chain error to unwrap to the last failure")
		}
	})

	t.Run("Stream falls back", func(t *testing.T) {
		chain, _ := tts.NewChain(nil, tts.WithError(errors.New("down")), tts.NewMock())

		stream, err := chain.Stream(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer stream.Close()
	})

	t.Run("Name lists providers", func(t *testing.T) {
		chain, _ := tts.NewChain(nil, tts.NewMock(), tts.NewMock())
		if chain.Name() != "chain(mock,mock)" {
			t.Errorf("unexpected name %q", chain.Name())
		}
	})
}

func TestBufferStreamChunks(t *testing.T) {
	data := make([]byte, 10000)
	stream := tts.NewBufferStream(data, tts.MP3Format)

	var total, reads int
	for {
		chunk, err := stream.Read()
		if err != nil {
			t.Fatalf("read error: %v", err)
		}
		if chunk == nil {
			break
		}
		if len(chunk) > 4096 {
			t.Errorf("chunk of %d bytes exceeds bound", len(chunk))
		}
		total += len(chunk)
		reads++
	}
	if total != len(data) {
		t.Errorf("read %d bytes, want %d", total, len(data))
	}
	if reads != 3 {
		t.Errorf("expected 3 reads, got %d", reads)
	}
}

func TestProviderError(t *testing.T) {
	inner := errors.New("connection failed")
	err := tts.WrapError("elevenlabs", inner)

	if err.Error() != "tts [elevenlabs]: connection failed" {
		t.Errorf("unexpected error message: %s", err.Error())
	}

	var pe *tts.ProviderError
	if !errors.As(err, &pe) {
		t.Fatal("expected ProviderError")
	}
	if pe.Provider != "elevenlabs" {
		t.Errorf("expected provider elevenlabs, got %s", pe.Provider)
	}
	if !errors.Is(err, inner) {
		t.Error("expected wrapped error to match inner")
	}
}

func TestMP3Format(t *testing.T) {
	if tts.MP3Format.Encoding != tts.EncodingMP3 {
		t.Errorf("encoding = %q, want %q", tts.MP3Format.Encoding, tts.EncodingMP3)
	}
	if got := tts.MP3Format.MIMEType(); got != "audio/mpeg" {
		t.Errorf("MIMEType() = %q, want audio/mpeg", got)
	}
}
