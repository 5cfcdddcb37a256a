package tts

import (
	"context"
	"sync"
	"time"
)

// Mock implements Provider for testing.
// All methods can be customized via function fields.
type Mock struct {
	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, returns a fake MP3 frame followed by the text.
	SynthesizeFunc func(ctx context.Context, req Request) (*AudioResult, error)

	// StreamFunc is called when Stream is invoked.
	// If nil, the Synthesize result is served as a stream.
	StreamFunc func(ctx context.Context, req Request) (AudioStream, error)

	HealthFunc func(ctx context.Context) error
	CloseFunc  func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method  string
	Request Request
	Time    time.Time
}

// FakeAudio returns bytes that start like an MP3 file.
func FakeAudio(text string) []byte {
	return append([]byte("ID3"), text...)
}

// NewMock creates a new mock provider with sensible defaults.
func NewMock() *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, req Request) (*AudioResult, error) {
			return &AudioResult{
				Audio:     FakeAudio(req.Text),
				Format:    MP3Format,
				CharCount: len(req.Text),
				LatencyMs: 1,
			}, nil
		},
	}
}

// Synthesize calls SynthesizeFunc and records the call.
func (m *Mock) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	m.recordCall("Synthesize", req)
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, req)
	}
	return nil, WrapError("mock", ErrProviderUnavailable)
}

// Stream calls StreamFunc and records the call.
func (m *Mock) Stream(ctx context.Context, req Request) (AudioStream, error) {
	m.recordCall("Stream", req)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}
	if m.SynthesizeFunc != nil {
		result, err := m.SynthesizeFunc(ctx, req)
		if err != nil {
			return nil, err
		}
		return NewBufferStream(result.Audio, result.Format), nil
	}
	return nil, WrapError("mock", ErrProviderUnavailable)
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.recordCall("Health", Request{})
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.recordCall("Close", Request{})
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Name identifies the mock in health reports.
func (m *Mock) Name() string {
	return "mock"
}

func (m *Mock) recordCall(method string, req Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method:  method,
		Request: req,
		Time:    time.Now(),
	})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// WithError returns a mock that always returns the given error.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, req Request) (*AudioResult, error) {
			return nil, err
		},
		StreamFunc: func(ctx context.Context, req Request) (AudioStream, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// WithLatency wraps a mock to add artificial latency.
func WithLatency(m *Mock, delay time.Duration) *Mock {
	originalSynthesize := m.SynthesizeFunc
	m.SynthesizeFunc = func(ctx context.Context, req Request) (*AudioResult, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if originalSynthesize != nil {
			return originalSynthesize(ctx, req)
		}
		return nil, WrapError("mock", ErrProviderUnavailable)
	}
	return m
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
