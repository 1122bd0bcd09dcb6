package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/radioagent/radioagent/pkg/audio"
	"github.com/radioagent/radioagent/pkg/orchestrator"
)

// GroqSTT transcribes via Groq's OpenAI-compatible Whisper endpoint.
type GroqSTT struct {
	apiKey     string
	url        string
	model      string
	sampleRate int
}

func NewGroqSTT(apiKey string, model string) *GroqSTT {
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	return &GroqSTT{
		apiKey:     apiKey,
		url:        "https://api.groq.com/openai/v1/audio/transcriptions",
		model:      model,
		sampleRate: 16000,
	}
}

func (s *GroqSTT) SetSampleRate(rate int) {
	s.sampleRate = rate
}

func (s *GroqSTT) Transcribe(ctx context.Context, samples orchestrator.AudioBuffer, lang string) (orchestrator.Transcript, error) {
	start := time.Now()
	wavData := audio.NewWavBuffer(samples, s.sampleRate)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", s.model); err != nil {
		return orchestrator.Transcript{}, err
	}
	if lang != "" {
		if err := writer.WriteField("language", lang); err != nil {
			return orchestrator.Transcript{}, err
		}
	}

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return orchestrator.Transcript{}, err
	}
	if _, err := io.Copy(part, bytes.NewReader(wavData)); err != nil {
		return orchestrator.Transcript{}, err
	}
	if err := writer.Close(); err != nil {
		return orchestrator.Transcript{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.url, body)
	if err != nil {
		return orchestrator.Transcript{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return orchestrator.Transcript{}, fmt.Errorf("%w: %v", orchestrator.ErrTranscriptionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return orchestrator.Transcript{}, fmt.Errorf("%w: groq stt status %d: %v", orchestrator.ErrTranscriptionFailed, resp.StatusCode, errResp)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return orchestrator.Transcript{}, err
	}

	return orchestrator.Transcript{
		Text:         result.Text,
		ProcessingMS: time.Since(start).Milliseconds(),
	}, nil
}

func (s *GroqSTT) Name() string {
	return "groq-stt"
}
