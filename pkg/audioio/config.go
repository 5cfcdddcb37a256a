// Package audioio captures microphone audio for the swift client and
// converts between PCM and WAV.
//
// Capture backends:
//   - Command: pipes raw PCM from a recorder process (arecord, sox)
//   - Mock: scripted or synthetic audio for tests
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the capture backend type.
type Backend string

const (
	// BackendAuto selects the command backend when a recorder is installed,
	// otherwise the mock.
	BackendAuto Backend = "auto"
	// BackendCommand reads PCM16 from a recorder process's stdout.
	BackendCommand Backend = "command"
	// BackendMock uses a mock implementation for testing.
	BackendMock Backend = "mock"
)

// Config holds audio configuration.
type Config struct {
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate is the capture rate in Hz.
	// Default: 16000, the rate the VAD models expect.
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of audio channels.
	// Default: 1 (mono)
	Channels int `yaml:"channels" json:"channels"`

	// BufferDuration is the size of each captured chunk.
	// Default: 32ms (512 samples at 16kHz)
	BufferDuration time.Duration `yaml:"buffer_duration" json:"buffer_duration"`

	// Device is passed to the recorder ("default", "hw:1,0").
	Device string `yaml:"device" json:"device"`

	// Command overrides the recorder invocation. It must write signed
	// 16-bit little-endian PCM at SampleRate to stdout.
	Command []string `yaml:"command" json:"command"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendAuto,
		SampleRate:     16000,
		Channels:       1,
		BufferDuration: 32 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("buffer_duration must be positive, got %v", c.BufferDuration)
	}
	switch c.Backend {
	case BackendAuto, BackendCommand, BackendMock, "":
	default:
		return fmt.Errorf("unsupported backend: %s", c.Backend)
	}
	return nil
}

// BufferSize returns the number of samples per channel in one chunk.
func (c *Config) BufferSize() int {
	return int(int64(c.SampleRate) * int64(c.BufferDuration/time.Microsecond) / 1e6)
}

// BufferBytes returns the size of a chunk in bytes (int16 samples).
func (c *Config) BufferBytes() int {
	return c.BufferSize() * c.Channels * 2
}
