package app

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-swift/internal/config"
	"github.com/teslashibe/go-swift/internal/header"
	"github.com/teslashibe/go-swift/internal/log"
	"github.com/teslashibe/go-swift/pkg/assistant"
	"github.com/teslashibe/go-swift/pkg/inference"
	"github.com/teslashibe/go-swift/pkg/stt"
	"github.com/teslashibe/go-swift/pkg/tts"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Credentials.OpenAIAPIKey = "sk-test"
	cfg.Credentials.ElevenLabsAPIKey = "xi-test"
	return cfg
}

func TestBuildProvidersDefault(t *testing.T) {
	p, err := BuildProviders(context.Background(), testConfig(), log.Discard())
	require.NoError(t, err)
	defer p.Close()

	assert.IsType(t, &stt.OpenAI{}, p.STT)
	assert.IsType(t, &inference.Client{}, p.LLM)
	assert.IsType(t, &tts.ElevenLabs{}, p.TTS)
}

func TestBuildProvidersAlternates(t *testing.T) {
	cfg := testConfig()
	cfg.STT.Provider = config.ProviderGoogle
	cfg.Credentials.GoogleAPIKey = "g-test"
	cfg.LLM.Provider = config.ProviderLangChain
	cfg.TTS.Fallback = []string{config.ProviderOpenAI}

	p, err := BuildProviders(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	defer p.Close()

	assert.IsType(t, &stt.Google{}, p.STT)
	assert.IsType(t, &inference.LangChain{}, p.LLM)
	assert.IsType(t, &tts.Chain{}, p.TTS)
}

func TestPipelineOptionsTestVoice(t *testing.T) {
	cfg := testConfig()
	cfg.TTS.Provider = config.ProviderOpenAI

	synth := tts.NewMock()
	pipeline, err := assistant.New(stt.NewMock(), inference.NewMock(), synth,
		PipelineOptions(cfg, log.Discard(), assistant.Hooks{})...)
	require.NoError(t, err)

	_, err = pipeline.TestSpeech(context.Background())
	require.NoError(t, err)
	calls := synth.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Test me now", calls[0].Request.Text)
	assert.Empty(t, calls[0].Request.Voice, "elevenlabs voice must not reach other providers")
}

func TestAssembleServesExchange(t *testing.T) {
	cfg := testConfig()
	srv, err := Assemble(cfg, "test", log.Discard(), &Providers{
		STT: stt.NewMock(),
		LLM: inference.WithReply("Hi! How can I help?"),
		TTS: tts.NewMock(),
	})
	require.NoError(t, err)
	defer srv.Pipeline.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	w.WriteField("input", "Hello")
	w.WriteField("language", "en")
	w.Close()

	req := httptest.NewRequest("POST", "/api", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, header.Encode("Hi! How can I help?"), resp.Header.Get(header.Response))
	audio, _ := io.ReadAll(resp.Body)
	assert.NotEmpty(t, audio)

	assert.Equal(t, float64(1), counterValue(t, srv))
}

func counterValue(t *testing.T, srv *Server) float64 {
	t.Helper()
	families, err := srv.Metrics.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "swift_exchanges_total" {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatal("swift_exchanges_total not registered")
	return 0
}
