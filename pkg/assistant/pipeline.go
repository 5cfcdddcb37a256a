package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-swift/pkg/inference"
	"github.com/teslashibe/go-swift/pkg/stt"
	"github.com/teslashibe/go-swift/pkg/tts"
)

// AudioMode selects how synthesized audio is handed to the caller.
type AudioMode string

const (
	AudioBuffered AudioMode = "buffered"
	AudioStreamed AudioMode = "streamed"
)

// StageDone marks the final event of a successful exchange.
const StageDone Stage = "done"

// Event describes pipeline progress for dashboard subscribers.
type Event struct {
	RequestID  string     `json:"request_id"`
	Stage      Stage      `json:"stage"`
	Transcript string     `json:"transcript,omitempty"`
	Response   string     `json:"response,omitempty"`
	Latencies  *Latencies `json:"latencies,omitempty"`
	Error      string     `json:"error,omitempty"`
	Time       time.Time  `json:"time"`
}

// Hooks observe the pipeline. Either field may be nil.
type Hooks struct {
	OnStage func(stage Stage, d time.Duration, err error)
	OnEvent func(Event)
}

// TestSpeech configures the canned synthesis used to check the voice path.
type TestSpeech struct {
	Phrase string
	Voice  string
	Model  string
}

// Result is a completed exchange. Exactly one of Audio and Stream is set.
type Result struct {
	Transcript string
	Response   string
	Latencies  Latencies

	Audio  []byte
	Stream tts.AudioStream
	Format tts.AudioFormat
}

// Close releases the audio stream, if any.
func (r *Result) Close() error {
	if r.Stream == nil {
		return nil
	}
	return r.Stream.Close()
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPersona replaces the persona text of the system prompt.
func WithPersona(persona Persona) Option {
	return func(p *Pipeline) {
		p.persona = persona
	}
}

// WithAudioMode selects buffered or streamed synthesis.
func WithAudioMode(mode AudioMode) Option {
	return func(p *Pipeline) {
		p.mode = mode
	}
}

// WithHooks installs observers.
func WithHooks(h Hooks) Option {
	return func(p *Pipeline) {
		p.hooks = h
	}
}

// WithClock overrides time.Now for the prompt's current time.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithTestSpeech sets the phrase, voice and model used by TestSpeech.
func WithTestSpeech(ts TestSpeech) Option {
	return func(p *Pipeline) {
		p.test = ts
	}
}

// Pipeline runs one exchange: transcribe, complete, synthesize.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	stt stt.Provider
	llm inference.Provider
	tts tts.Provider

	persona Persona
	mode    AudioMode
	hooks   Hooks
	now     func() time.Time
	test    TestSpeech
	logger  *slog.Logger
}

// New creates a pipeline over the three providers.
func New(transcriber stt.Provider, llm inference.Provider, synth tts.Provider, opts ...Option) (*Pipeline, error) {
	if transcriber == nil || llm == nil || synth == nil {
		return nil, errors.New("assistant: all three providers are required")
	}

	p := &Pipeline{
		stt:     transcriber,
		llm:     llm,
		tts:     synth,
		persona: DefaultPersonaText(),
		mode:    AudioBuffered,
		now:     time.Now,
		test:    TestSpeech{Phrase: "Test me now"},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	switch p.mode {
	case AudioBuffered, AudioStreamed:
	default:
		return nil, fmt.Errorf("assistant: unknown audio mode %q", p.mode)
	}

	p.logger = p.logger.With("component", "assistant.pipeline")
	return p, nil
}

// Mode returns the configured audio mode.
func (p *Pipeline) Mode() AudioMode {
	return p.mode
}

// Run executes the full exchange. On success the caller owns the result and
// must Close it.
func (p *Pipeline) Run(ctx context.Context, req *Request) (*Result, error) {
	timings := NewTimings(req.Meta.RequestID, p.logger, p.hooks.OnStage)
	res := &Result{}

	err := timings.Track(StageTranscription, func() error {
		var err error
		res.Transcript, err = p.Transcribe(ctx, req)
		return err
	})
	if err != nil {
		return nil, p.fail(req, StageTranscription, err)
	}
	p.emit(Event{RequestID: req.Meta.RequestID, Stage: StageTranscription, Transcript: res.Transcript})

	err = timings.Track(StageTextCompletion, func() error {
		var err error
		res.Response, err = p.Complete(ctx, req, res.Transcript)
		return err
	})
	if err != nil {
		return nil, p.fail(req, StageTextCompletion, err)
	}
	p.emit(Event{RequestID: req.Meta.RequestID, Stage: StageTextCompletion, Response: res.Response})

	err = timings.Track(StageSpeechSynthesis, func() error {
		return p.synthesize(ctx, req.Language, res)
	})
	if err != nil {
		return nil, p.fail(req, StageSpeechSynthesis, err)
	}

	res.Latencies = timings.Latencies()
	latencies := res.Latencies
	p.emit(Event{
		RequestID:  req.Meta.RequestID,
		Stage:      StageDone,
		Transcript: res.Transcript,
		Response:   res.Response,
		Latencies:  &latencies,
	})

	p.logger.Info("exchange complete",
		"request_id", req.Meta.RequestID,
		"language", string(req.Language),
		"audio_input", req.Input.IsAudio(),
		"history", len(req.Messages),
		"total_ms", latencies.Total(),
	)
	return res, nil
}

// Transcribe returns text input unchanged and sends audio to the
// transcriber. Any transcriber failure or empty text is ErrInvalidAudio.
func (p *Pipeline) Transcribe(ctx context.Context, req *Request) (string, error) {
	if !req.Input.IsAudio() {
		return req.Input.Text, nil
	}

	audio := req.Input.Audio
	if len(audio.Data) == 0 {
		return "", fmt.Errorf("%w: empty upload", ErrInvalidAudio)
	}

	result, err := p.stt.Transcribe(ctx, stt.Audio{
		Data:        audio.Data,
		Filename:    audio.Filename,
		ContentType: audio.ContentType,
		Language:    stt.NormalizeLanguage(string(req.Language)),
	})
	if err != nil {
		p.logger.Warn("transcription failed", "request_id", req.Meta.RequestID, "error", err)
		return "", fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty transcription", ErrInvalidAudio)
	}
	return text, nil
}

// Messages builds the completion input: system prompt, history, transcript.
func (p *Pipeline) Messages(req *Request, transcript string) []inference.Message {
	messages := make([]inference.Message, 0, len(req.Messages)+2)
	messages = append(messages, inference.NewSystemMessage(SystemPrompt(p.persona, req, p.now())))
	for _, m := range req.Messages {
		messages = append(messages, inference.Message{Role: inference.Role(m.Role), Content: m.Content})
	}
	return append(messages, inference.NewUserMessage(transcript))
}

// Complete asks the completion provider for a reply. Provider errors are
// returned as is; an empty reply is ErrMissingCompletion.
func (p *Pipeline) Complete(ctx context.Context, req *Request, transcript string) (string, error) {
	resp, err := p.llm.Chat(ctx, &inference.ChatRequest{Messages: p.Messages(req, transcript)})
	if errors.Is(err, inference.ErrNoChoices) {
		return "", ErrMissingCompletion
	}
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	if resp == nil || resp.Message.Content == "" {
		return "", ErrMissingCompletion
	}
	return resp.Message.Content, nil
}

func (p *Pipeline) synthesize(ctx context.Context, lang Language, res *Result) error {
	req := tts.Request{Text: res.Response, Language: string(lang)}

	if p.mode == AudioStreamed {
		stream, err := p.tts.Stream(ctx, req)
		if err != nil {
			return p.synthesisError(err)
		}
		res.Stream = stream
		res.Format = stream.Format()
		return nil
	}

	audio, err := p.tts.Synthesize(ctx, req)
	if err != nil {
		return p.synthesisError(err)
	}
	if len(audio.Audio) == 0 {
		return p.synthesisError(tts.ErrEmptyAudio)
	}
	res.Audio = audio.Audio
	res.Format = audio.Format
	return nil
}

func (p *Pipeline) synthesisError(err error) error {
	p.logger.Error("speech synthesis failed", "error", err)
	return fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
}

// TestSpeech synthesizes the configured test phrase, always buffered.
func (p *Pipeline) TestSpeech(ctx context.Context) (*tts.AudioResult, error) {
	audio, err := p.tts.Synthesize(ctx, tts.Request{
		Text:     p.test.Phrase,
		Language: string(LanguageEnglish),
		Voice:    p.test.Voice,
		Model:    p.test.Model,
	})
	if err != nil {
		return nil, p.synthesisError(err)
	}
	if len(audio.Audio) == 0 {
		return nil, p.synthesisError(tts.ErrEmptyAudio)
	}
	return audio, nil
}

// ProviderStatus is one provider health check outcome.
type ProviderStatus struct {
	Stage    string `json:"stage"`
	Provider string `json:"provider"`
	Healthy  bool   `json:"healthy"`
	Error    string `json:"error,omitempty"`
}

// Health checks every provider in order.
func (p *Pipeline) Health(ctx context.Context) []ProviderStatus {
	checks := []struct {
		stage    string
		provider any
		check    func(context.Context) error
	}{
		{"stt", p.stt, p.stt.Health},
		{"llm", p.llm, p.llm.Health},
		{"tts", p.tts, p.tts.Health},
	}

	out := make([]ProviderStatus, 0, len(checks))
	for _, c := range checks {
		st := ProviderStatus{Stage: c.stage, Provider: providerName(c.provider), Healthy: true}
		if err := c.check(ctx); err != nil {
			st.Healthy = false
			st.Error = err.Error()
		}
		out = append(out, st)
	}
	return out
}

// Close releases all providers.
func (p *Pipeline) Close() error {
	return errors.Join(p.stt.Close(), p.llm.Close(), p.tts.Close())
}

func (p *Pipeline) fail(req *Request, stage Stage, err error) error {
	p.emit(Event{RequestID: req.Meta.RequestID, Stage: stage, Error: err.Error()})
	return err
}

func (p *Pipeline) emit(e Event) {
	if p.hooks.OnEvent == nil {
		return
	}
	e.Time = p.now()
	p.hooks.OnEvent(e)
}

func providerName(p any) string {
	if n, ok := p.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", p)
}
