//go:build silero

package vad

import (
	"fmt"

	"github.com/streamer45/silero-vad-go/speech"

	"github.com/teslashibe/go-swift/pkg/audioio"
)

// Silero wraps the Silero VAD model. The model tracks speech state itself,
// so Probability reports 1 while the model considers speech in progress and
// 0 otherwise.
type Silero struct {
	detector *speech.Detector
	speaking bool
}

// NewSilero loads the ONNX model at cfg.ModelPath.
func NewSilero(cfg Config) (Classifier, error) {
	sd, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            cfg.ModelPath,
		SampleRate:           cfg.SampleRate,
		Threshold:            cfg.PositiveThreshold,
		MinSilenceDurationMs: 0,
		SpeechPadMs:          0,
	})
	if err != nil {
		return nil, fmt.Errorf("load silero model: %w", err)
	}
	return &Silero{detector: sd}, nil
}

// Probability implements Classifier.
func (s *Silero) Probability(frame []int16) (float32, error) {
	segments, err := s.detector.Detect(audioio.ToFloat32(frame))
	if err != nil {
		return 0, fmt.Errorf("silero detect: %w", err)
	}
	if n := len(segments); n > 0 {
		s.speaking = segments[n-1].SpeechEndAt == 0
	}
	if s.speaking {
		return 1, nil
	}
	return 0, nil
}

// Reset clears the model state.
func (s *Silero) Reset() error {
	s.speaking = false
	return s.detector.Reset()
}

// Close releases the ONNX session.
func (s *Silero) Close() error {
	return s.detector.Destroy()
}
