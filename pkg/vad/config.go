// Package vad detects speech segments in a stream of 16 kHz mono frames.
//
// A Classifier scores each frame with a speech probability; the Segmenter
// turns those scores into speech-start, speech-end and misfire events using
// hysteresis, a minimum speech length and a redemption window.
package vad

import (
	"errors"
	"fmt"
)

// Engine names a frame classifier.
type Engine string

const (
	// EngineEnergy scores frames by RMS level. Always available.
	EngineEnergy Engine = "energy"
	// EngineSilero runs the Silero ONNX model. Requires the silero build tag.
	EngineSilero Engine = "silero"
)

// ErrSileroUnavailable is returned when the binary was built without the
// silero tag.
var ErrSileroUnavailable = errors.New("vad: silero support not compiled in (build with -tags silero)")

// Config controls detection.
type Config struct {
	Engine    Engine `yaml:"engine" json:"engine"`
	ModelPath string `yaml:"model_path" json:"model_path"`

	SampleRate   int `yaml:"sample_rate" json:"sample_rate"`
	FrameSamples int `yaml:"frame_samples" json:"frame_samples"`

	// A frame at or above PositiveThreshold counts as speech. Speech ends
	// after RedemptionFrames consecutive frames below NegativeThreshold.
	PositiveThreshold float32 `yaml:"positive_threshold" json:"positive_threshold"`
	NegativeThreshold float32 `yaml:"negative_threshold" json:"negative_threshold"`

	// Segments with fewer speech frames are reported as misfires.
	MinSpeechFrames    int `yaml:"min_speech_frames" json:"min_speech_frames"`
	RedemptionFrames   int `yaml:"redemption_frames" json:"redemption_frames"`
	PreSpeechPadFrames int `yaml:"pre_speech_pad_frames" json:"pre_speech_pad_frames"`

	// EnergyFloor is the RMS level the energy classifier scores as 0.5.
	EnergyFloor float64 `yaml:"energy_floor" json:"energy_floor"`
}

// DefaultConfig returns the settings the client ships with.
func DefaultConfig() Config {
	return Config{
		Engine:             EngineEnergy,
		ModelPath:          "silero_vad.onnx",
		SampleRate:         16000,
		FrameSamples:       512,
		PositiveThreshold:  0.6,
		NegativeThreshold:  0.45,
		MinSpeechFrames:    4,
		RedemptionFrames:   8,
		PreSpeechPadFrames: 1,
		EnergyFloor:        0.02,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SampleRate != 8000 && c.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 8000 or 16000, got %d", c.SampleRate)
	}
	if c.FrameSamples <= 0 {
		return fmt.Errorf("frame_samples must be positive, got %d", c.FrameSamples)
	}
	if c.PositiveThreshold <= 0 || c.PositiveThreshold > 1 {
		return fmt.Errorf("positive_threshold must be in (0, 1], got %v", c.PositiveThreshold)
	}
	if c.NegativeThreshold < 0 || c.NegativeThreshold > c.PositiveThreshold {
		return fmt.Errorf("negative_threshold must be in [0, positive_threshold], got %v", c.NegativeThreshold)
	}
	if c.MinSpeechFrames < 1 {
		return fmt.Errorf("min_speech_frames must be at least 1, got %d", c.MinSpeechFrames)
	}
	if c.RedemptionFrames < 1 {
		return fmt.Errorf("redemption_frames must be at least 1, got %d", c.RedemptionFrames)
	}
	if c.PreSpeechPadFrames < 0 {
		return fmt.Errorf("pre_speech_pad_frames must not be negative, got %d", c.PreSpeechPadFrames)
	}
	switch c.Engine {
	case EngineEnergy:
		if c.EnergyFloor <= 0 {
			return fmt.Errorf("energy_floor must be positive, got %v", c.EnergyFloor)
		}
	case EngineSilero:
		if c.ModelPath == "" {
			return errors.New("model_path is required for the silero engine")
		}
	default:
		return fmt.Errorf("unknown engine %q", c.Engine)
	}
	return nil
}
