package assistant

import (
	"log/slog"
	"time"
)

// Stage names one timed step. The values double as JSON keys.
type Stage string

const (
	StageTranscription   Stage = "transcription"
	StageTextCompletion  Stage = "textCompletion"
	StageSpeechSynthesis Stage = "speechSynthesis"
)

// Latencies holds per-stage durations in milliseconds.
type Latencies struct {
	Transcription   int64 `json:"transcription"`
	TextCompletion  int64 `json:"textCompletion"`
	SpeechSynthesis int64 `json:"speechSynthesis"`
}

// Total sums the server-side stages.
func (l Latencies) Total() int64 {
	return l.Transcription + l.TextCompletion + l.SpeechSynthesis
}

func (l *Latencies) set(stage Stage, ms int64) {
	switch stage {
	case StageTranscription:
		l.Transcription = ms
	case StageTextCompletion:
		l.TextCompletion = ms
	case StageSpeechSynthesis:
		l.SpeechSynthesis = ms
	}
}

// Timings measures the stages of one request.
type Timings struct {
	requestID string
	logger    *slog.Logger
	now       func() time.Time
	onStage   func(Stage, time.Duration, error)
	latencies Latencies
}

// NewTimings returns a tracker for requestID. onStage may be nil.
func NewTimings(requestID string, logger *slog.Logger, onStage func(Stage, time.Duration, error)) *Timings {
	if logger == nil {
		logger = slog.Default()
	}
	return &Timings{
		requestID: requestID,
		logger:    logger,
		now:       time.Now,
		onStage:   onStage,
	}
}

// Track runs fn and records its duration under stage, whether or not it
// fails. Durations are clamped at zero.
func (t *Timings) Track(stage Stage, fn func() error) error {
	start := t.now()
	err := fn()
	d := t.now().Sub(start)
	if d < 0 {
		d = 0
	}

	t.latencies.set(stage, d.Milliseconds())
	t.logger.Debug("stage complete",
		"request_id", t.requestID,
		"stage", string(stage),
		"duration_ms", d.Milliseconds(),
		"error", err != nil,
	)
	if t.onStage != nil {
		t.onStage(stage, d, err)
	}
	return err
}

// Latencies returns a copy of what has been recorded so far.
func (t *Timings) Latencies() Latencies {
	return t.latencies
}
