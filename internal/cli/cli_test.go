package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-swift/pkg/assistant"
	"github.com/teslashibe/go-swift/pkg/audioio"
)

func TestLoadWAVResamples(t *testing.T) {
	data, err := audioio.EncodeWAV(make([]int16, 4800), 48000, 1)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "q.wav")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	out, err := loadWAV(path)
	require.NoError(t, err)

	samples, rate, err := audioio.DecodeWAV(out)
	require.NoError(t, err)
	assert.Equal(t, 16000, rate)
	assert.Len(t, samples, 1600)
}

func TestLoadWAVKeepsNativeRate(t *testing.T) {
	data, err := audioio.EncodeWAV([]int16{1, 2, 3}, 16000, 1)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "q.wav")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	out, err := loadWAV(path)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestLoadWAVRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, err := loadWAV(path)
	assert.ErrorIs(t, err, audioio.ErrInvalidWAV)
}

func TestTailEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte(`{"request_id":"r1","stage":"transcription","transcript":"Hello"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"request_id":"r1","stage":"done","latencies":{"transcription":1,"textCompletion":2,"speechSynthesis":3}}`))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var events []assistant.Event
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	require.NoError(t, tailEvents(ctx, url, func(ev assistant.Event) { events = append(events, ev) }))

	require.Len(t, events, 2)
	assert.Equal(t, assistant.StageTranscription, events[0].Stage)
	assert.Equal(t, "Hello", events[0].Transcript)
	require.NotNil(t, events[1].Latencies)
	assert.Equal(t, int64(6), events[1].Latencies.Total())
}
