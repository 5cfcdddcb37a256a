package audioio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// ErrNoRecorder is returned when no capture program is available.
var ErrNoRecorder = errors.New("audioio: no recorder found (install alsa-utils or sox)")

// CommandSource captures audio by running a recorder that writes raw PCM16
// to stdout.
type CommandSource struct {
	cfg    Config
	logger *slog.Logger
	argv   []string

	mu       sync.Mutex
	running  bool
	closed   bool
	cmd      *exec.Cmd
	streamCh chan AudioChunk
	cancel   context.CancelFunc

	chunksRead  atomic.Int64
	samplesRead atomic.Int64
	overruns    atomic.Int64
}

// NewCommandSource resolves the recorder command without starting it.
func NewCommandSource(cfg Config, logger *slog.Logger) (*CommandSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	argv, err := recorderCommand(cfg)
	if err != nil {
		return nil, err
	}
	return &CommandSource{
		cfg:      cfg,
		logger:   logger.With("component", "audioio.command"),
		argv:     argv,
		streamCh: make(chan AudioChunk, 10),
	}, nil
}

// recorderCommand picks the configured command, arecord on Linux, or sox.
func recorderCommand(cfg Config) ([]string, error) {
	if len(cfg.Command) > 0 {
		if _, err := exec.LookPath(cfg.Command[0]); err != nil {
			return nil, fmt.Errorf("recorder %q: %w", cfg.Command[0], err)
		}
		return cfg.Command, nil
	}

	rate := strconv.Itoa(cfg.SampleRate)
	channels := strconv.Itoa(cfg.Channels)

	if runtime.GOOS == "linux" {
		if _, err := exec.LookPath("arecord"); err == nil {
			device := cfg.Device
			if device == "" {
				device = "default"
			}
			return []string{"arecord", "-q", "-D", device, "-f", "S16_LE", "-r", rate, "-c", channels, "-t", "raw"}, nil
		}
	}
	if _, err := exec.LookPath("sox"); err == nil {
		return []string{"sox", "-q", "-d", "-t", "raw", "-r", rate, "-e", "signed", "-b", "16", "-c", channels, "-"}, nil
	}
	return nil, ErrNoRecorder
}

// Start launches the recorder.
func (s *CommandSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, s.argv[0], s.argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("recorder stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start recorder: %w", err)
	}

	s.cmd = cmd
	s.cancel = cancel
	s.running = true
	s.streamCh = make(chan AudioChunk, 10)

	go s.captureLoop(stdout, s.streamCh)

	s.logger.Info("recorder started", "argv", s.argv)
	return nil
}

func (s *CommandSource) captureLoop(r io.Reader, out chan<- AudioChunk) {
	defer close(out)

	br := bufio.NewReaderSize(r, s.cfg.BufferBytes()*4)
	buf := make([]byte, s.cfg.BufferBytes())
	for {
		if _, err := io.ReadFull(br, buf); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Debug("recorder read ended", "error", err)
			}
			return
		}

		chunk := AudioChunk{
			Samples:    BytesToSamples(buf),
			SampleRate: s.cfg.SampleRate,
			Channels:   s.cfg.Channels,
		}
		select {
		case out <- chunk:
			s.chunksRead.Add(1)
			s.samplesRead.Add(int64(len(chunk.Samples)))
		default:
			s.overruns.Add(1)
		}
	}
}

// Stop terminates the recorder.
func (s *CommandSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	s.cancel()
	// The process was killed; its exit status is not interesting.
	_ = s.cmd.Wait()

	s.logger.Info("recorder stopped")
	return nil
}

// Read reads the next audio chunk.
func (s *CommandSource) Read(ctx context.Context) (AudioChunk, error) {
	s.mu.Lock()
	ch := s.streamCh
	s.mu.Unlock()

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
func (s *CommandSource) Config() Config {
	return s.cfg
}

// Name returns "command".
func (s *CommandSource) Name() string {
	return "command"
}

// Close stops the recorder for good.
func (s *CommandSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Stop()
}

// Stats returns source statistics.
func (s *CommandSource) Stats() SourceStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SourceStats{
		ChunksRead:  s.chunksRead.Load(),
		SamplesRead: s.samplesRead.Load(),
		Overruns:    s.overruns.Load(),
		Running:     running,
		Backend:     "command",
	}
}

var _ Source = (*CommandSource)(nil)
