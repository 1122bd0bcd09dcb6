package stt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

func TestOpenAISTT(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		resp := struct {
			Text string `json:"text"`
		}{
			Text: "transcribed text",
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	s := &OpenAISTT{
		apiKey:     "test-key",
		url:        server.URL,
		model:      "whisper-1",
		sampleRate: 16000,
	}

	result, err := s.Transcribe(context.Background(), orchestrator.AudioBuffer{0, 0, 0, 0}, "en")
	require.NoError(t, err)
	assert.Equal(t, "transcribed text", result.Text)
	assert.Equal(t, "openai-stt", s.Name())
}
