package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-swift/internal/log"
	"github.com/teslashibe/go-swift/pkg/inference"
	"github.com/teslashibe/go-swift/pkg/stt"
	"github.com/teslashibe/go-swift/pkg/tts"
)

type fixture struct {
	stt *stt.Mock
	llm *inference.Mock
	tts *tts.Mock
}

func newFixture() *fixture {
	return &fixture{
		stt: stt.NewMock(),
		llm: inference.WithReply("Hi! How can I help?"),
		tts: tts.NewMock(),
	}
}

func (f *fixture) pipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	p, err := New(f.stt, f.llm, f.tts, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func textRequest(text string) *Request {
	return &Request{
		Input:    Input{Text: text},
		Language: LanguageEnglish,
		Meta:     Meta{RequestID: "req-1"},
	}
}

func TestRunTextInput(t *testing.T) {
	f := newFixture()
	p := f.pipeline(t)

	res, err := p.Run(context.Background(), textRequest("Hello"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer res.Close()

	if res.Transcript != "Hello" {
		t.Errorf("transcript = %q, want Hello", res.Transcript)
	}
	if res.Response != "Hi! How can I help?" {
		t.Errorf("response = %q", res.Response)
	}
	if string(res.Audio) != string(tts.FakeAudio("Hi! How can I help?")) {
		t.Errorf("audio = %q", res.Audio)
	}
	if res.Stream != nil {
		t.Error("buffered mode should not return a stream")
	}
	if f.stt.CallCount() != 0 {
		t.Error("text input must not reach the transcriber")
	}

	l := res.Latencies
	if l.Transcription < 0 || l.TextCompletion < 0 || l.SpeechSynthesis < 0 {
		t.Errorf("negative latency: %+v", l)
	}
}

func TestRunTextInputIsNotTrimmed(t *testing.T) {
	f := newFixture()
	res, err := f.pipeline(t).Run(context.Background(), textRequest("  spaced  "))
	if err != nil {
		t.Fatal(err)
	}
	if res.Transcript != "  spaced  " {
		t.Errorf("transcript = %q", res.Transcript)
	}
}

func TestRunMessagesOrder(t *testing.T) {
	f := newFixture()
	p := f.pipeline(t)

	req := textRequest("And now?")
	req.Messages = []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "second"},
	}
	if _, err := p.Run(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	call := f.llm.LastCall()
	if call == nil {
		t.Fatal("completion provider not called")
	}
	msgs := call.Request.Messages
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	if msgs[0].Role != inference.RoleSystem || !strings.Contains(msgs[0].Content, "Respond in English.") {
		t.Errorf("system message = %+v", msgs[0])
	}
	if msgs[1].Content != "first" || msgs[2].Role != inference.RoleAssistant {
		t.Errorf("history out of order: %+v", msgs[1:3])
	}
	if msgs[3].Role != inference.RoleUser || msgs[3].Content != "And now?" {
		t.Errorf("last message = %+v", msgs[3])
	}
}

func TestRunAudioInput(t *testing.T) {
	f := newFixture()
	f.stt = stt.WithText("  what time is it  ")
	p := f.pipeline(t)

	req := &Request{
		Input:    Input{Audio: &Audio{Data: []byte("RIFF"), Filename: "a.wav"}},
		Language: LanguageGreek,
	}
	res, err := p.Run(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Transcript != "what time is it" {
		t.Errorf("transcript = %q, want trimmed text", res.Transcript)
	}

	calls := f.stt.Calls()
	if len(calls) != 1 || calls[0].Language != "el" {
		t.Errorf("stt calls = %+v", calls)
	}
	if last := f.tts.LastCall(); last == nil || last.Request.Language != "el" {
		t.Errorf("tts should receive the request language, got %+v", last)
	}
}

func TestRunInvalidAudio(t *testing.T) {
	tests := []struct {
		name  string
		stt   *stt.Mock
		audio []byte
	}{
		{"empty transcription", stt.WithText("   "), []byte("RIFF")},
		{"transcriber error", stt.WithError(errors.New("decode failed")), []byte("RIFF")},
		{"empty upload", stt.NewMock(), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.stt = tt.stt
			p := f.pipeline(t)

			req := &Request{Input: Input{Audio: &Audio{Data: tt.audio}}, Language: LanguageEnglish}
			_, err := p.Run(context.Background(), req)
			if !errors.Is(err, ErrInvalidAudio) {
				t.Fatalf("err = %v, want ErrInvalidAudio", err)
			}
			if f.llm.CallCount("Chat") != 0 {
				t.Error("completion must not run after invalid audio")
			}
			if f.tts.CallCount("Synthesize") != 0 {
				t.Error("synthesis must not run after invalid audio")
			}
		})
	}
}

func TestRunMissingCompletion(t *testing.T) {
	for name, llm := range map[string]*inference.Mock{
		"empty reply": inference.WithReply(""),
		"no choices":  inference.WithError(inference.ErrNoChoices),
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			f.llm = llm
			_, err := f.pipeline(t).Run(context.Background(), textRequest("Hello"))
			if !errors.Is(err, ErrMissingCompletion) {
				t.Fatalf("err = %v, want ErrMissingCompletion", err)
			}
			if f.tts.CallCount("Synthesize") != 0 {
				t.Error("synthesis must not run without a reply")
			}
		})
	}
}

func TestRunCompletionError(t *testing.T) {
	f := newFixture()
	f.llm = inference.WithError(&inference.APIError{StatusCode: 500, Message: "boom"})

	_, err := f.pipeline(t).Run(context.Background(), textRequest("Hello"))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, sentinel := range []error{ErrInvalidRequest, ErrInvalidAudio, ErrSynthesisFailed, ErrMissingCompletion} {
		if errors.Is(err, sentinel) {
			t.Errorf("provider failure should not map to %v", sentinel)
		}
	}
	var apiErr *inference.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("APIError should stay reachable, got %v", err)
	}
}

func TestRunSynthesisFailure(t *testing.T) {
	f := newFixture()
	f.tts = tts.WithError(&tts.APIError{StatusCode: 401, Message: "bad key", Provider: "elevenlabs"})

	_, err := f.pipeline(t).Run(context.Background(), textRequest("Hello"))
	if !errors.Is(err, ErrSynthesisFailed) {
		t.Fatalf("err = %v, want ErrSynthesisFailed", err)
	}
}

func TestRunSynthesisEmptyAudio(t *testing.T) {
	f := newFixture()
	f.tts.SynthesizeFunc = func(ctx context.Context, req tts.Request) (*tts.AudioResult, error) {
		return &tts.AudioResult{Format: tts.MP3Format}, nil
	}

	_, err := f.pipeline(t).Run(context.Background(), textRequest("Hello"))
	if !errors.Is(err, ErrSynthesisFailed) {
		t.Fatalf("err = %v, want ErrSynthesisFailed", err)
	}
}

func TestRunStreamed(t *testing.T) {
	f := newFixture()
	p := f.pipeline(t, WithAudioMode(AudioStreamed))

	res, err := p.Run(context.Background(), textRequest("Hello"))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if res.Stream == nil || res.Audio != nil {
		t.Fatal("streamed mode should return an open stream")
	}
	if res.Format.MIMEType() != "audio/mpeg" {
		t.Errorf("format = %+v", res.Format)
	}

	var got []byte
	for {
		chunk, err := res.Stream.Read()
		if err != nil {
			t.Fatal(err)
		}
		if chunk == nil {
			break
		}
		got = append(got, chunk...)
	}
	if string(got) != string(tts.FakeAudio("Hi! How can I help?")) {
		t.Errorf("streamed audio = %q", got)
	}
	if f.tts.CallCount("Stream") != 1 || f.tts.CallCount("Synthesize") != 0 {
		t.Errorf("unexpected tts calls: %+v", f.tts.Calls())
	}
}

func TestRunHooks(t *testing.T) {
	f := newFixture()

	var mu sync.Mutex
	var stages []Stage
	var events []Event
	hooks := Hooks{
		OnStage: func(s Stage, d time.Duration, err error) {
			mu.Lock()
			defer mu.Unlock()
			stages = append(stages, s)
		},
		OnEvent: func(e Event) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e)
		},
	}

	if _, err := f.pipeline(t, WithHooks(hooks)).Run(context.Background(), textRequest("Hello")); err != nil {
		t.Fatal(err)
	}

	want := []Stage{StageTranscription, StageTextCompletion, StageSpeechSynthesis}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v", stages)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stage %d = %s, want %s", i, stages[i], want[i])
		}
	}

	last := events[len(events)-1]
	if last.Stage != StageDone || last.Latencies == nil || last.RequestID != "req-1" {
		t.Errorf("final event = %+v", last)
	}
}

func TestRunFailureEvent(t *testing.T) {
	f := newFixture()
	f.tts = tts.WithError(errors.New("down"))

	var got []Event
	p := f.pipeline(t, WithHooks(Hooks{OnEvent: func(e Event) { got = append(got, e) }}))
	p.Run(context.Background(), textRequest("Hello"))

	last := got[len(got)-1]
	if last.Stage != StageSpeechSynthesis || last.Error == "" {
		t.Errorf("failure event = %+v", last)
	}
}

func TestTestSpeech(t *testing.T) {
	f := newFixture()
	p := f.pipeline(t, WithTestSpeech(TestSpeech{Phrase: "Test me now", Voice: "v1", Model: "m1"}))

	audio, err := p.TestSpeech(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(audio.Audio) == 0 {
		t.Error("expected audio")
	}

	call := f.tts.LastCall()
	if call.Request.Text != "Test me now" || call.Request.Voice != "v1" || call.Request.Model != "m1" {
		t.Errorf("request = %+v", call.Request)
	}

	f.tts = tts.WithError(errors.New("nope"))
	if _, err := f.pipeline(t).TestSpeech(context.Background()); !errors.Is(err, ErrSynthesisFailed) {
		t.Errorf("err = %v, want ErrSynthesisFailed", err)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture()
	f.llm = inference.WithError(errors.New("unreachable"))

	statuses := f.pipeline(t).Health(context.Background())
	if len(statuses) != 3 {
		t.Fatalf("got %d statuses", len(statuses))
	}
	if !statuses[0].Healthy || statuses[1].Healthy || !statuses[2].Healthy {
		t.Errorf("statuses = %+v", statuses)
	}
	if statuses[2].Provider != "mock" {
		t.Errorf("provider name = %q", statuses[2].Provider)
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(nil, inference.NewMock(), tts.NewMock()); err == nil {
		t.Error("expected error for missing transcriber")
	}
	if _, err := New(stt.NewMock(), inference.NewMock(), tts.NewMock(), WithAudioMode("chunked")); err == nil {
		t.Error("expected error for unknown audio mode")
	}
}

func TestTimingsClampNegative(t *testing.T) {
	tm := NewTimings("r", log.Discard(), nil)
	calls := 0
	base := time.Now()
	tm.now = func() time.Time {
		calls++
		if calls == 1 {
			return base
		}
		return base.Add(-time.Second)
	}

	if err := tm.Track(StageTranscription, func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if got := tm.Latencies().Transcription; got != 0 {
		t.Errorf("transcription = %d, want 0", got)
	}
}

func TestTimingsRecordsFailedStage(t *testing.T) {
	var hookErr error
	tm := NewTimings("r", nil, func(s Stage, d time.Duration, err error) { hookErr = err })

	boom := errors.New("boom")
	if err := tm.Track(StageTextCompletion, func() error { return boom }); err != boom {
		t.Errorf("Track returned %v", err)
	}
	if hookErr != boom {
		t.Errorf("hook saw %v", hookErr)
	}
}
