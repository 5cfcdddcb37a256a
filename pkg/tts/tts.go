// Package tts provides a unified interface for text-to-speech providers.
//
// Three backends are available: ElevenLabs (the default, with per-language
// voices), OpenAI speech, and Google Cloud Text-to-Speech. All of them return
// MP3 audio and implement Provider, so the assistant pipeline can switch
// between them, or chain them for fallback, without changing caller code.
//
// Example usage:
//
//	provider, _ := tts.NewElevenLabs(
//	    tts.WithAPIKey(os.Getenv("ELEVEN_LABS_API_KEY")),
//	    tts.WithLanguageVoices(map[string]string{"en": "21m00Tcm4TlvDq8ikWAM"}),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, tts.Request{Text: "Hello", Language: "en"})
//	// result.Audio contains MP3 bytes
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, req Request) (*AudioResult, error)

	// Stream converts text to audio and returns the open response body.
	// Callers read until Read returns nil, then call Close.
	Stream(ctx context.Context, req Request) (AudioStream, error)

	// Health checks provider connectivity and credentials.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Request describes a single synthesis call.
type Request struct {
	// Text to speak. Required.
	Text string

	// Language selects the voice when Voice is empty ("en", "el").
	Language string

	// Voice overrides the provider's voice for this call.
	Voice string

	// Model overrides the provider's model for this call.
	Model string
}

// AudioStream represents a streaming audio response.
type AudioStream interface {
	// Read returns the next audio chunk.
	// Returns nil when the stream is complete (not an error).
	Read() ([]byte, error)

	// Close stops the stream and releases resources.
	Close() error

	// Format returns the audio format metadata.
	Format() AudioFormat
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	Audio     []byte
	Format    AudioFormat
	CharCount int

	// LatencyMs is the time until the full body was read.
	LatencyMs int64
}

// AudioFormat describes the audio encoding.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
}

// MIMEType returns the content type for the encoding.
func (f AudioFormat) MIMEType() string {
	return f.Encoding.MIMEType()
}

// Encoding names an audio encoding in ElevenLabs' output_format terms.
type Encoding string

// EncodingMP3 is 44.1 kHz MP3 at 128 kbps.
const EncodingMP3 Encoding = "mp3_44100_128"

// MIMEType returns the HTTP content type for the encoding. Every encoding
// this package produces is MP3.
func (e Encoding) MIMEType() string {
	return "audio/mpeg"
}

// MP3Format is what every provider in this package returns.
var MP3Format = AudioFormat{Encoding: EncodingMP3, SampleRate: 44100, Channels: 1}

// VoiceSettings controls ElevenLabs voice characteristics.
type VoiceSettings struct {
	// Stability controls voice consistency (0.0-1.0).
	Stability float64

	// SimilarityBoost controls how closely the voice matches the original (0.0-1.0).
	SimilarityBoost float64
}

// DefaultVoiceSettings returns the settings the assistant speaks with.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
	}
}

func elapsedMs(start time.Time) int64 {
	ms := time.Since(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
