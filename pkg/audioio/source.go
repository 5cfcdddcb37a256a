package audioio

import (
	"context"
	"io"
)

// AudioChunk represents a chunk of audio data.
type AudioChunk struct {
	// Samples contains interleaved PCM16 samples.
	Samples []int16

	SampleRate int
	Channels   int
}

// Bytes returns the chunk as little-endian PCM16.
func (c *AudioChunk) Bytes() []byte {
	return SamplesToBytes(c.Samples)
}

// Duration returns the duration of this audio chunk in seconds.
func (c *AudioChunk) Duration() float64 {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate*c.Channels)
}

// Mono returns the chunk's samples downmixed to one channel.
func (c *AudioChunk) Mono() []int16 {
	if c.Channels == 2 {
		return StereoToMono(c.Samples)
	}
	return c.Samples
}

// Source captures audio from a microphone or other input device.
type Source interface {
	// Start begins audio capture.
	Start(ctx context.Context) error

	// Stop halts audio capture. It is safe to call Stop multiple times.
	Stop() error

	// Read returns the next chunk, blocking if necessary.
	// Returns io.EOF once the source is stopped.
	Read(ctx context.Context) (AudioChunk, error)

	// Config returns the current audio configuration.
	Config() Config

	// Name returns the backend name ("command", "mock").
	Name() string

	// Close releases all resources. After Close, the source cannot be
	// restarted.
	io.Closer
}

// SourceStats contains statistics about the audio source.
type SourceStats struct {
	ChunksRead  int64  `json:"chunks_read"`
	SamplesRead int64  `json:"samples_read"`
	Overruns    int64  `json:"overruns"`
	Running     bool   `json:"running"`
	Backend     string `json:"backend"`
}
