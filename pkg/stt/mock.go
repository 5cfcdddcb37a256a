package stt

import (
	"context"
	"sync"
)

// Mock implements Provider for testing.
type Mock struct {
	// TranscribeFunc is called when Transcribe is invoked.
	// If nil, the audio bytes are returned as text.
	TranscribeFunc func(ctx context.Context, audio Audio) (*Result, error)
	HealthFunc     func(ctx context.Context) error

	mu    sync.Mutex
	calls []Audio
}

// NewMock creates a mock that "hears" the raw bytes it is given.
func NewMock() *Mock {
	return &Mock{}
}

// WithText returns a mock that always transcribes to text.
func WithText(text string) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, audio Audio) (*Result, error) {
			return &Result{Text: text, Language: NormalizeLanguage(audio.Language)}, nil
		},
	}
}

// WithError returns a mock that always fails.
func WithError(err error) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, audio Audio) (*Result, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error { return err },
	}
}

// Transcribe calls TranscribeFunc and records the call.
func (m *Mock) Transcribe(ctx context.Context, audio Audio) (*Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, audio)
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audio)
	}
	return &Result{Text: string(audio.Data), Language: NormalizeLanguage(audio.Language)}, nil
}

// Health calls HealthFunc.
func (m *Mock) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// Name identifies the mock in health reports.
func (m *Mock) Name() string { return "mock" }

// Calls returns the recordings passed to Transcribe.
func (m *Mock) Calls() []Audio {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Audio, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times Transcribe ran.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

var _ Provider = (*Mock)(nil)
