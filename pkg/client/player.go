package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

// ErrNoPlayer is returned when no audio player program is installed.
var ErrNoPlayer = errors.New("client: no audio player found (install mpg123 or ffmpeg)")

// Player plays MP3 audio.
type Player interface {
	// Play blocks until the audio finishes, Stop is called or ctx ends.
	Play(ctx context.Context, audio []byte) error
	// Stop interrupts the current playback, if any.
	Stop()
}

// CommandPlayer pipes audio into an external player process.
type CommandPlayer struct {
	argv   []string
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewCommandPlayer uses argv, or the first of mpg123, ffplay and afplay
// found on PATH when argv is empty.
func NewCommandPlayer(argv []string, logger *slog.Logger) (*CommandPlayer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(argv) == 0 {
		var err error
		if argv, err = detectPlayer(); err != nil {
			return nil, err
		}
	} else if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, fmt.Errorf("player %q: %w", argv[0], err)
	}
	return &CommandPlayer{argv: argv, logger: logger.With("component", "client.player")}, nil
}

func detectPlayer() ([]string, error) {
	candidates := [][]string{
		{"mpg123", "-q", "-"},
		{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", "-i", "-"},
	}
	for _, c := range candidates {
		if _, err := exec.LookPath(c[0]); err == nil {
			return c, nil
		}
	}
	return nil, ErrNoPlayer
}

// Play implements Player.
func (p *CommandPlayer) Play(ctx context.Context, audio []byte) error {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.mu.Unlock()
	defer cancel()

	cmd := exec.CommandContext(ctx, p.argv[0], p.argv[1:]...)
	cmd.Stdin = bytes.NewReader(audio)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("play: %w", err)
	}
	return nil
}

// Stop implements Player.
func (p *CommandPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// FilePlayer writes each reply to a file instead of playing it.
type FilePlayer struct {
	Path string
}

// Play implements Player.
func (p FilePlayer) Play(_ context.Context, audio []byte) error {
	if p.Path == "" {
		return nil
	}
	return os.WriteFile(p.Path, audio, 0o644)
}

// Stop implements Player.
func (FilePlayer) Stop() {}
