package vad

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/teslashibe/go-swift/pkg/audioio"
)

// Detector reads an audio source, segments it and reports events. It can be
// paused; paused frames are discarded and any partial utterance is dropped.
type Detector struct {
	seg    *Segmenter
	cfg    Config
	logger *slog.Logger

	paused atomic.Bool
	reset  atomic.Bool

	speaking atomic.Bool
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDetector wraps a classifier in a detector.
func NewDetector(cfg Config, c Classifier, opts ...Option) (*Detector, error) {
	seg, err := NewSegmenter(cfg, c)
	if err != nil {
		return nil, err
	}
	d := &Detector{seg: seg, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "vad")
	return d, nil
}

// Pause stops event delivery until Resume.
func (d *Detector) Pause() {
	if !d.paused.Swap(true) {
		d.reset.Store(true)
	}
}

// Resume restarts event delivery.
func (d *Detector) Resume() {
	d.paused.Store(false)
}

// Paused reports whether the detector is paused.
func (d *Detector) Paused() bool {
	return d.paused.Load()
}

// UserSpeaking reports whether an utterance is in progress.
func (d *Detector) UserSpeaking() bool {
	return d.speaking.Load()
}

// Run consumes src until ctx is done or the source ends, calling handle
// for every event. A speech end still pending when the source ends is
// flushed. Run returns nil on io.EOF.
func (d *Detector) Run(ctx context.Context, src audioio.Source, handle func(Event)) error {
	framer := NewFramer(d.cfg.FrameSamples)

	for {
		chunk, err := src.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				if !d.paused.Load() {
					d.emit(d.seg.Flush(), handle)
				}
				return nil
			}
			return err
		}

		samples := chunk.Mono()
		if chunk.SampleRate != d.cfg.SampleRate {
			samples = audioio.Resample(samples, chunk.SampleRate, d.cfg.SampleRate)
		}

		if d.paused.Load() {
			continue
		}
		if d.reset.Swap(false) {
			framer.Reset()
			if err := d.seg.Reset(); err != nil {
				return fmt.Errorf("reset vad: %w", err)
			}
			d.speaking.Store(false)
		}

		for _, f := range framer.Push(samples) {
			ev, err := d.seg.Process(f)
			if err != nil {
				return fmt.Errorf("classify frame: %w", err)
			}
			d.emit(ev, handle)
		}
	}
}

func (d *Detector) emit(ev Event, handle func(Event)) {
	if ev.Type == None {
		return
	}
	d.speaking.Store(ev.Type == SpeechStart)
	d.logger.Debug("vad event", "type", ev.Type.String(), "samples", len(ev.Samples))
	handle(ev)
}

// Framer regroups arbitrary-length sample slices into fixed-size frames.
type Framer struct {
	size int
	buf  []int16
}

// NewFramer returns a framer emitting frames of size samples.
func NewFramer(size int) *Framer {
	return &Framer{size: size}
}

// Push appends samples and returns every complete frame.
func (f *Framer) Push(samples []int16) [][]int16 {
	f.buf = append(f.buf, samples...)

	var frames [][]int16
	for len(f.buf) >= f.size {
		frames = append(frames, append([]int16(nil), f.buf[:f.size]...))
		f.buf = f.buf[f.size:]
	}
	return frames
}

// Reset discards buffered samples.
func (f *Framer) Reset() {
	f.buf = nil
}

// Close releases the classifier.
func (d *Detector) Close() error {
	return d.seg.classifier.Close()
}
