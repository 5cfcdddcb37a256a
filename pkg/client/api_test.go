package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-swift/internal/header"
	"github.com/teslashibe/go-swift/pkg/assistant"
)

func TestSubmitText(t *testing.T) {
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		form = r.MultipartForm.Value

		w.Header().Set(header.Transcript, header.Encode("Hello"))
		w.Header().Set(header.Response, header.Encode("Hi! How can I help?"))
		w.Header().Set(header.Latencies, header.Encode(`{"transcription":0,"textCompletion":412,"speechSynthesis":230}`))
		w.Header().Set(header.RequestID, "req-1")
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	api := NewAPI(srv.URL + "/")
	history := []Entry{
		{Role: assistant.RoleUser, Content: "Hey"},
		{Role: assistant.RoleAssistant, Content: "Hello!", Latencies: &Latencies{Total: 900}},
	}
	ex, err := api.Submit(context.Background(), Submission{Text: "Hello", History: history})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello"}, form[assistant.FieldInput])
	assert.Equal(t, []string{"en"}, form[assistant.FieldLanguage])
	require.Len(t, form[assistant.FieldMessage], 2)

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(form[assistant.FieldMessage][1]), &second))
	assert.Equal(t, "assistant", second["role"])
	assert.Equal(t, "Hello!", second["content"])

	assert.Equal(t, "req-1", ex.RequestID)
	assert.Equal(t, "Hello", ex.Transcript)
	assert.Equal(t, "Hi! How can I help?", ex.Response)
	assert.Equal(t, int64(412), ex.Latencies.TextCompletion)
	assert.Equal(t, int64(230), ex.Latencies.SpeechSynthesis)
	assert.Equal(t, []byte("mp3"), ex.Audio)
	assert.Equal(t, "audio/mpeg", ex.ContentType)
}

func TestSubmitAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Empty(t, r.MultipartForm.Value[assistant.FieldInput])
		assert.Equal(t, []string{"el"}, r.MultipartForm.Value[assistant.FieldLanguage])

		files := r.MultipartForm.File[assistant.FieldInput]
		require.Len(t, files, 1)
		assert.Equal(t, "audio.wav", files[0].Filename)
		assert.Equal(t, "audio/wav", files[0].Header.Get("Content-Type"))
		f, err := files[0].Open()
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, []byte("RIFF"), data)

		w.Header().Set(header.Transcript, header.Encode("Καλημέρα"))
		w.Header().Set(header.Response, header.Encode("Γεια σου!"))
		w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	ex, err := NewAPI(srv.URL).Submit(context.Background(), Submission{
		WAV:      []byte("RIFF"),
		Language: assistant.LanguageGreek,
	})
	require.NoError(t, err)
	assert.Equal(t, "Καλημέρα", ex.Transcript)
	assert.Equal(t, "Γεια σου!", ex.Response)
}

func TestSubmitFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		notice  string
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte("slow down"))
			},
			notice: NoticeRateLimited,
		},
		{
			name: "error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"Invalid request"}`))
			},
			notice: `{"error":"Invalid request"}`,
		},
		{
			name: "empty error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			notice: NoticeGeneric,
		},
		{
			name: "missing headers",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("mp3"))
			},
			notice: NoticeGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewAPI(srv.URL).Submit(context.Background(), Submission{Text: "Hello"})
			require.Error(t, err)
			assert.Equal(t, tt.notice, Notice(err))
		})
	}
}

func TestSubmitIncomplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(header.Transcript, "Hello")
		w.Header().Set(header.Response, "Hi")
	}))
	defer srv.Close()

	_, err := NewAPI(srv.URL).Submit(context.Background(), Submission{Text: "Hello"})
	assert.True(t, errors.Is(err, ErrIncomplete))
}

func TestTestSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/test-tts", r.URL.Path)
		w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	data, err := NewAPI(srv.URL).TestSpeech(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), data)
}

func TestEventsURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:3000/ws/events", NewAPI("http://localhost:3000/").EventsURL())
	assert.Equal(t, "wss://swift.example.com/ws/events", NewAPI("https://swift.example.com").EventsURL())
}
