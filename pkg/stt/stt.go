// Package stt provides speech-to-text providers.
//
// Two backends implement Provider: OpenAI Whisper (multipart upload) and
// Google Cloud Speech-to-Text. Audio is treated as opaque bytes; the
// provider infers the container from the file name or content type.
package stt

import (
	"context"
	"path/filepath"
	"strings"
)

// Provider converts recorded speech into text.
type Provider interface {
	// Transcribe returns the recognized text for a complete recording.
	Transcribe(ctx context.Context, audio Audio) (*Result, error)

	// Health checks provider connectivity and credentials.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Audio is a complete recording uploaded by a client.
type Audio struct {
	Data        []byte
	Filename    string
	ContentType string

	// Language is the expected spoken language ("en", "el").
	Language string
}

// Result is a transcription outcome.
type Result struct {
	Text      string
	Language  string
	LatencyMs int64
}

// Language codes accepted as hints.
const (
	LanguageEnglish = "en"
	LanguageGreek   = "el"
)

// NormalizeLanguage maps a hint to a supported language. Greek stays Greek;
// everything else is English.
func NormalizeLanguage(lang string) string {
	if lang == LanguageGreek {
		return LanguageGreek
	}
	return LanguageEnglish
}

// filename returns a name with an extension the provider can recognize.
func (a Audio) filename() string {
	if a.Filename != "" && filepath.Ext(a.Filename) != "" {
		return a.Filename
	}
	return "audio" + extensionFor(a.ContentType)
}

func extensionFor(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "wav"):
		return ".wav"
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "ogg"):
		return ".ogg"
	case strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return ".mp3"
	case strings.Contains(ct, "flac"):
		return ".flac"
	case strings.Contains(ct, "mp4"), strings.Contains(ct, "m4a"):
		return ".m4a"
	default:
		return ".wav"
	}
}
