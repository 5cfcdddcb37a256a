package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-swift/pkg/assistant"
	"github.com/teslashibe/go-swift/pkg/audioio"
	"github.com/teslashibe/go-swift/pkg/vad"
)

// State is the controller's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateListening
	StateSubmitting
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateSubmitting:
		return "submitting"
	case StatePlaying:
		return "playing"
	default:
		return "idle"
	}
}

// Theme is the display theme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Toggle flips between dark and light.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// Submitter sends one exchange to the server.
type Submitter interface {
	Submit(ctx context.Context, s Submission) (*Exchange, error)
}

// Listener is the part of the speech detector the controller drives.
type Listener interface {
	Pause()
	Resume()
}

// Snapshot is a copy of the controller's observable state.
type Snapshot struct {
	State    State
	Muted    bool
	Language assistant.Language
	Theme    Theme
	History  []Entry
	Input    string
	Revealed string
}

// Controller runs the conversation: it submits speech or text, keeps the
// history, plays replies and tracks the lifecycle state.
//
// Submissions are not deduplicated or queued; each one runs to completion.
type Controller struct {
	api      Submitter
	player   Player
	listener Listener
	logger   *slog.Logger
	interval time.Duration

	onChange func(Snapshot)
	onNotice func(string)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	state      State
	muted      bool
	language   assistant.Language
	theme      Theme
	history    []Entry
	input      string
	revealed   string
	lifecycle  uint64
	stopReveal context.CancelFunc
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithListener lets mute pause and resume speech detection.
func WithListener(l Listener) ControllerOption {
	return func(c *Controller) { c.listener = l }
}

// WithRevealInterval sets the per-character reveal delay.
func WithRevealInterval(d time.Duration) ControllerOption {
	return func(c *Controller) { c.interval = d }
}

// OnChange registers a callback invoked after every state change. It is
// called without the controller lock held.
func OnChange(fn func(Snapshot)) ControllerOption {
	return func(c *Controller) { c.onChange = fn }
}

// OnNotice registers a callback for user-facing error notices.
func OnNotice(fn func(string)) ControllerOption {
	return func(c *Controller) { c.onNotice = fn }
}

// WithControllerLogger sets the logger.
func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController builds an idle controller. Language defaults to English
// and theme to dark.
func NewController(api Submitter, player Player, opts ...ControllerOption) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		api:      api,
		player:   player,
		logger:   slog.Default(),
		interval: DefaultRevealInterval,
		ctx:      ctx,
		cancel:   cancel,
		language: assistant.LanguageEnglish,
		theme:    ThemeDark,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.player == nil {
		c.player = FilePlayer{}
	}
	c.logger = c.logger.With("component", "client.controller")
	return c
}

// Start arms speech detection.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.state = c.resting()
	}
	muted := c.muted
	c.mu.Unlock()

	if c.listener != nil && !muted {
		c.listener.Resume()
	}
	c.changed()
}

// Close stops playback and waits for in-flight work.
func (c *Controller) Close() {
	c.cancel()
	c.player.Stop()
	c.wg.Wait()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:    c.state,
		Muted:    c.muted,
		Language: c.language,
		Theme:    c.theme,
		History:  append([]Entry(nil), c.history...),
		Input:    c.input,
		Revealed: c.revealed,
	}
}

// ToggleMute pauses or resumes speech detection.
func (c *Controller) ToggleMute() bool {
	c.mu.Lock()
	c.muted = !c.muted
	muted := c.muted
	if c.state == StateIdle || c.state == StateListening {
		c.state = c.resting()
	}
	c.mu.Unlock()

	if c.listener != nil {
		if muted {
			c.listener.Pause()
		} else {
			c.listener.Resume()
		}
	}
	c.changed()
	return muted
}

// ToggleLanguage flips the response language.
func (c *Controller) ToggleLanguage() assistant.Language {
	c.mu.Lock()
	c.language = c.language.Toggle()
	lang := c.language
	c.mu.Unlock()
	c.changed()
	return lang
}

// ToggleTheme flips the display theme.
func (c *Controller) ToggleTheme() Theme {
	c.mu.Lock()
	c.theme = c.theme.Toggle()
	theme := c.theme
	c.mu.Unlock()
	c.changed()
	return theme
}

// SetInput replaces the text input.
func (c *Controller) SetInput(s string) {
	c.mu.Lock()
	c.input = s
	c.mu.Unlock()
	c.changed()
}

// HandleSpeech submits a finished utterance in the background unless muted.
func (c *Controller) HandleSpeech(ev vad.Event) {
	if ev.Type != vad.SpeechEnd {
		return
	}
	c.mu.Lock()
	muted := c.muted
	c.mu.Unlock()
	if muted {
		return
	}

	wav, err := audioio.EncodeWAV(ev.Samples, ev.SampleRate, 1)
	if err != nil {
		c.logger.Error("encode utterance", "error", err)
		c.notice(NoticeGeneric)
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		// Failures are already reported through the notice callback.
		_, _ = c.Submit(c.ctx, Submission{WAV: wav})
	}()
}

// SubmitText submits typed text in the background.
func (c *Controller) SubmitText(text string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_, _ = c.Submit(c.ctx, Submission{Text: text})
	}()
}

// Submit runs one exchange synchronously: it stops playback, posts the
// input with the current history and language, records the result and
// starts playing the reply. History and Language in s are ignored.
func (c *Controller) Submit(ctx context.Context, s Submission) (*Exchange, error) {
	c.player.Stop()

	c.mu.Lock()
	c.lifecycle++
	id := c.lifecycle
	c.state = StateSubmitting
	s.History = append([]Entry(nil), c.history...)
	s.Language = c.language
	c.mu.Unlock()
	c.changed()

	ex, err := c.api.Submit(ctx, s)
	if err != nil {
		c.mu.Lock()
		if c.lifecycle == id {
			c.state = c.resting()
		}
		c.mu.Unlock()
		c.changed()

		c.logger.Warn("exchange failed", "error", err)
		c.notice(Notice(err))
		return nil, err
	}

	revealCtx, stopReveal := context.WithCancel(c.ctx)
	c.mu.Lock()
	c.history = append(c.history,
		Entry{Role: assistant.RoleUser, Content: ex.Transcript},
		Entry{
			Role:    assistant.RoleAssistant,
			Content: ex.Response,
			Latencies: &Latencies{
				Latencies: ex.Latencies,
				Total:     ex.Elapsed.Milliseconds(),
			},
		},
	)
	c.input = ex.Transcript
	c.revealed = ""
	if c.stopReveal != nil {
		c.stopReveal()
	}
	c.stopReveal = stopReveal
	if c.lifecycle == id {
		c.state = StatePlaying
	}
	c.mu.Unlock()
	c.changed()

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		Reveal(revealCtx, ex.Response, c.interval, c.setRevealed)
	}()
	go func() {
		defer c.wg.Done()
		c.play(id, ex.Audio)
	}()

	return ex, nil
}

func (c *Controller) play(id uint64, audio []byte) {
	if err := c.player.Play(c.ctx, audio); err != nil {
		c.logger.Warn("playback failed", "error", err)
	}

	c.mu.Lock()
	if c.lifecycle == id && c.state == StatePlaying {
		c.state = c.resting()
	}
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) setRevealed(s string) {
	c.mu.Lock()
	c.revealed = s
	c.mu.Unlock()
	c.changed()
}

// resting is the state between exchanges. Caller holds mu.
func (c *Controller) resting() State {
	if c.muted {
		return StateIdle
	}
	return StateListening
}

func (c *Controller) changed() {
	if c.onChange == nil {
		return
	}
	c.onChange(c.Snapshot())
}

func (c *Controller) notice(msg string) {
	if c.onNotice != nil {
		c.onNotice(msg)
	}
}

// FormatLatencies renders an assistant entry's timings for display.
func FormatLatencies(l *Latencies) string {
	if l == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "transcription %dms, completion %dms, synthesis %dms",
		l.Transcription, l.TextCompletion, l.SpeechSynthesis)
	if l.Total > 0 {
		fmt.Fprintf(&b, " (total %dms)", l.Total)
	}
	return b.String()
}
