package vad

import "fmt"

// EventType identifies a segmenter transition.
type EventType int

const (
	// None means the frame caused no transition.
	None EventType = iota
	// SpeechStart fires on the first frame above the positive threshold.
	SpeechStart
	// SpeechEnd carries the audio of a completed utterance.
	SpeechEnd
	// Misfire fires when speech ended before MinSpeechFrames were seen.
	Misfire
)

func (t EventType) String() string {
	switch t {
	case SpeechStart:
		return "speech_start"
	case SpeechEnd:
		return "speech_end"
	case Misfire:
		return "misfire"
	default:
		return "none"
	}
}

// Event is emitted by the Segmenter.
type Event struct {
	Type EventType

	// Samples holds the utterance (with pre-speech padding) on SpeechEnd.
	Samples    []int16
	SampleRate int
}

type frame struct {
	samples []int16
	speech  bool
}

// Segmenter turns per-frame probabilities into speech events. It is not
// safe for concurrent use.
type Segmenter struct {
	cfg        Config
	classifier Classifier

	speaking   bool
	redemption int
	frames     []frame
}

// NewSegmenter returns a segmenter using c to score frames.
func NewSegmenter(cfg Config, c Classifier) (*Segmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vad config: %w", err)
	}
	return &Segmenter{cfg: cfg, classifier: c}, nil
}

// Speaking reports whether an utterance is in progress.
func (s *Segmenter) Speaking() bool {
	return s.speaking
}

// Process scores one frame and returns the resulting transition.
func (s *Segmenter) Process(samples []int16) (Event, error) {
	p, err := s.classifier.Probability(samples)
	if err != nil {
		return Event{}, err
	}

	isSpeech := p >= s.cfg.PositiveThreshold
	s.frames = append(s.frames, frame{samples: append([]int16(nil), samples...), speech: isSpeech})

	if isSpeech {
		s.redemption = 0
		if !s.speaking {
			s.speaking = true
			return Event{Type: SpeechStart}, nil
		}
		return Event{}, nil
	}

	if !s.speaking {
		// Keep only the padding that precedes the next utterance.
		if keep := s.cfg.PreSpeechPadFrames; len(s.frames) > keep {
			s.frames = append(s.frames[:0], s.frames[len(s.frames)-keep:]...)
		}
		return Event{}, nil
	}

	if p < s.cfg.NegativeThreshold {
		s.redemption++
		if s.redemption >= s.cfg.RedemptionFrames {
			return s.finish(), nil
		}
	}
	return Event{}, nil
}

// Flush ends any utterance in progress, as if silence followed.
func (s *Segmenter) Flush() Event {
	if !s.speaking {
		s.frames = s.frames[:0]
		return Event{}
	}
	return s.finish()
}

// Reset drops all state, including the classifier's.
func (s *Segmenter) Reset() error {
	s.speaking = false
	s.redemption = 0
	s.frames = nil
	return s.classifier.Reset()
}

func (s *Segmenter) finish() Event {
	speechFrames := 0
	n := 0
	for _, f := range s.frames {
		if f.speech {
			speechFrames++
		}
		n += len(f.samples)
	}

	ev := Event{Type: Misfire}
	if speechFrames >= s.cfg.MinSpeechFrames {
		audio := make([]int16, 0, n)
		for _, f := range s.frames {
			audio = append(audio, f.samples...)
		}
		ev = Event{Type: SpeechEnd, Samples: audio, SampleRate: s.cfg.SampleRate}
	}

	s.speaking = false
	s.redemption = 0
	s.frames = nil
	return ev
}
