package vad

import (
	"fmt"

	"github.com/teslashibe/go-swift/pkg/audioio"
)

// Classifier scores one frame of PCM16 audio with a speech probability in
// [0, 1]. Implementations may keep state between frames.
type Classifier interface {
	Probability(frame []int16) (float32, error)
	Reset() error
	Close() error
}

// NewClassifier builds the classifier named by cfg.Engine.
func NewClassifier(cfg Config) (Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vad config: %w", err)
	}
	switch cfg.Engine {
	case EngineSilero:
		return NewSilero(cfg)
	default:
		return NewEnergy(cfg.EnergyFloor), nil
	}
}

// Energy scores frames by loudness: rms / (rms + floor). A frame at the
// floor scores 0.5, silence scores 0.
type Energy struct {
	floor float64
}

// NewEnergy returns an energy classifier.
func NewEnergy(floor float64) *Energy {
	return &Energy{floor: floor}
}

// Probability implements Classifier.
func (e *Energy) Probability(frame []int16) (float32, error) {
	rms := audioio.RMS(frame)
	if rms == 0 {
		return 0, nil
	}
	return float32(rms / (rms + e.floor)), nil
}

// Reset implements Classifier.
func (e *Energy) Reset() error { return nil }

// Close implements Classifier.
func (e *Energy) Close() error { return nil }

var _ Classifier = (*Energy)(nil)
