package audioio

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// MockSource is a mock audio source for testing.
// It replays scripted samples, or generates silence or a sine wave.
type MockSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	streamCh chan AudioChunk
	stopCh   chan struct{}

	chunksRead  atomic.Int64
	samplesRead atomic.Int64

	// Scripted samples are sliced into BufferSize chunks. When the script
	// runs out the source stops and Read returns io.EOF.
	script []int16
	paced  bool

	phase     float64
	frequency float64 // Hz, 0 = silence
	amplitude float64 // 0.0 to 1.0
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave configures the mock to generate a sine wave.
func WithSineWave(frequency, amplitude float64) MockSourceOption {
	return func(m *MockSource) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// WithScript makes the mock replay samples instead of generating audio.
func WithScript(samples []int16) MockSourceOption {
	return func(m *MockSource) {
		m.script = append([]int16(nil), samples...)
	}
}

// WithoutPacing delivers chunks as fast as the reader consumes them.
func WithoutPacing() MockSourceOption {
	return func(m *MockSource) {
		m.paced = false
	}
}

// NewMockSource creates a new mock audio source.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}

	m := &MockSource{
		cfg:       cfg,
		logger:    logger.With("component", "audioio.mock"),
		streamCh:  make(chan AudioChunk, 10),
		stopCh:    make(chan struct{}),
		paced:     true,
		amplitude: 0.5,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start begins generating audio.
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.running {
		return nil
	}

	m.running = true
	m.stopCh = make(chan struct{})
	m.streamCh = make(chan AudioChunk, 10)

	go m.generateLoop(ctx, m.stopCh, m.streamCh)

	m.logger.Debug("mock audio source started",
		"sample_rate", m.cfg.SampleRate,
		"frequency", m.frequency,
		"scripted", m.script != nil,
	)

	return nil
}

func (m *MockSource) generateLoop(ctx context.Context, stop <-chan struct{}, out chan<- AudioChunk) {
	defer close(out)

	var tick <-chan time.Time
	if m.paced {
		ticker := time.NewTicker(m.cfg.BufferDuration)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-tick:
			}
		}

		chunk, ok := m.nextChunk()
		if !ok {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case out <- chunk:
			m.chunksRead.Add(1)
			m.samplesRead.Add(int64(len(chunk.Samples)))
		}
	}
}

func (m *MockSource) nextChunk() (AudioChunk, bool) {
	n := m.cfg.BufferSize() * m.cfg.Channels

	if m.script != nil {
		if len(m.script) == 0 {
			return AudioChunk{}, false
		}
		if n > len(m.script) {
			n = len(m.script)
		}
		samples := m.script[:n:n]
		m.script = m.script[n:]
		return AudioChunk{Samples: samples, SampleRate: m.cfg.SampleRate, Channels: m.cfg.Channels}, true
	}

	samples := make([]int16, n)
	if m.frequency > 0 {
		for i := 0; i < n/m.cfg.Channels; i++ {
			v := int16(m.amplitude * 32767 * math.Sin(2*math.Pi*m.frequency*m.phase/float64(m.cfg.SampleRate)))
			for ch := 0; ch < m.cfg.Channels; ch++ {
				samples[i*m.cfg.Channels+ch] = v
			}
			m.phase++
			if m.phase >= float64(m.cfg.SampleRate) {
				m.phase = 0
			}
		}
	}

	return AudioChunk{Samples: samples, SampleRate: m.cfg.SampleRate, Channels: m.cfg.Channels}, true
}

// Stop halts audio generation.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	m.running = false
	close(m.stopCh)

	m.logger.Debug("mock audio source stopped")
	return nil
}

// Read reads the next audio chunk.
func (m *MockSource) Read(ctx context.Context) (AudioChunk, error) {
	m.mu.Lock()
	ch := m.streamCh
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case chunk, ok := <-ch:
		if !ok {
			return AudioChunk{}, io.EOF
		}
		return chunk, nil
	}
}

// Config returns the audio configuration.
func (m *MockSource) Config() Config {
	return m.cfg
}

// Name returns "mock".
func (m *MockSource) Name() string {
	return "mock"
}

// Close releases resources.
func (m *MockSource) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	return m.Stop()
}

// Stats returns source statistics.
func (m *MockSource) Stats() SourceStats {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	return SourceStats{
		ChunksRead:  m.chunksRead.Load(),
		SamplesRead: m.samplesRead.Load(),
		Running:     running,
		Backend:     "mock",
	}
}

var _ Source = (*MockSource)(nil)
