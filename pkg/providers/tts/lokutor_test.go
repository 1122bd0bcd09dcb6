package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

func TestLokutorTTS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "closing")

		var req map[string]interface{}
		if err := wsjson.Read(r.Context(), conn, &req); err != nil {
			return
		}

		conn.Write(r.Context(), websocket.MessageBinary, []byte{1, 0, 2, 0, 3, 0})
		conn.Write(r.Context(), websocket.MessageText, []byte("EOS"))
	}))
	defer server.Close()

	tts := &LokutorTTS{
		apiKey: "test-key",
		host:   strings.TrimPrefix(server.URL, "http://"),
		scheme: "ws",
		voice:  "default",
	}

	out, err := tts.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.AudioBuffer{1, 2, 3}, out)
	assert.Equal(t, "lokutor", tts.Name())

	require.NoError(t, tts.Close())
}
