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

func TestGroqSTT(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		resp := struct {
			Text string `json:"text"`
		}{
			Text: "groq transcription",
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	s := &GroqSTT{
		apiKey:     "test-key",
		url:        server.URL,
		model:      "whisper-large-v3",
		sampleRate: 16000,
	}

	result, err := s.Transcribe(context.Background(), orchestrator.AudioBuffer{0, 1, 2}, "en")
	require.NoError(t, err)
	assert.Equal(t, "groq transcription", result.Text)
	assert.Zero(t, result.Confidence)

	s.SetSampleRate(16000)
	assert.Equal(t, 16000, s.sampleRate)
	assert.Equal(t, "groq-stt", s.Name())
}

func TestGroqSTTErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	s := &GroqSTT{apiKey: "bad-key", url: server.URL, model: "whisper", sampleRate: 16000}
	_, err := s.Transcribe(context.Background(), orchestrator.AudioBuffer{0}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, orchestrator.ErrTranscriptionFailed)
}
