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

type OpenAISTT struct {
	apiKey     string
	url        string
	model      string
	sampleRate int
}

func NewOpenAISTT(apiKey string, model string) *OpenAISTT {
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAISTT{
		apiKey:     apiKey,
		url:        "https://api.openai.com/v1/audio/transcriptions",
		model:      model,
		sampleRate: 16000,
	}
}

func (s *OpenAISTT) SetSampleRate(rate int) {
	s.sampleRate = rate
}

func (s *OpenAISTT) Name() string {
	return "openai-stt"
}

func (s *OpenAISTT) Transcribe(ctx context.Context, samples orchestrator.AudioBuffer, lang string) (orchestrator.Transcript, error) {
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
	if _, err := part.Write(wavData); err != nil {
		return orchestrator.Transcript{}, err
	}
	writer.Close()

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
		respBody, _ := io.ReadAll(resp.Body)
		return orchestrator.Transcript{}, fmt.Errorf("%w: openai stt status %d: %s", orchestrator.ErrTranscriptionFailed, resp.StatusCode, string(respBody))
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
