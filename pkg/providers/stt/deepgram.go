package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/radioagent/radioagent/pkg/audio"
	"github.com/radioagent/radioagent/pkg/orchestrator"
)

type DeepgramSTT struct {
	apiKey     string
	url        string
	sampleRate int
}

func NewDeepgramSTT(apiKey string) *DeepgramSTT {
	return &DeepgramSTT{
		apiKey:     apiKey,
		url:        "https://api.deepgram.com/v1/listen",
		sampleRate: 16000,
	}
}

func (s *DeepgramSTT) SetSampleRate(rate int) {
	s.sampleRate = rate
}

func (s *DeepgramSTT) Name() string {
	return "deepgram-stt"
}

func (s *DeepgramSTT) Transcribe(ctx context.Context, samples orchestrator.AudioBuffer, lang string) (orchestrator.Transcript, error) {
	start := time.Now()

	u, err := url.Parse(s.url)
	if err != nil {
		return orchestrator.Transcript{}, err
	}

	params := u.Query()
	params.Set("model", "nova-2")
	params.Set("smart_format", "true")
	if lang != "" {
		params.Set("language", lang)
	}
	u.RawQuery = params.Encode()

	pcm := audio.SamplesToBytes(samples)
	req, err := http.NewRequestWithContext(ctx, "POST", u.String(), bytes.NewReader(pcm))
	if err != nil {
		return orchestrator.Transcript{}, err
	}

	req.Header.Set("Authorization", "Token "+s.apiKey)
	req.Header.Set("Content-Type", fmt.Sprintf("audio/l16; rate=%d; channels=1", s.sampleRate))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return orchestrator.Transcript{}, fmt.Errorf("%w: %v", orchestrator.ErrTranscriptionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return orchestrator.Transcript{}, fmt.Errorf("%w: deepgram status %d: %s", orchestrator.ErrTranscriptionFailed, resp.StatusCode, string(respBody))
	}

	var result struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string  `json:"transcript"`
					Confidence float64 `json:"confidence"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return orchestrator.Transcript{}, err
	}

	if len(result.Results.Channels) == 0 || len(result.Results.Channels[0].Alternatives) == 0 {
		return orchestrator.Transcript{ProcessingMS: time.Since(start).Milliseconds()}, nil
	}

	alt := result.Results.Channels[0].Alternatives[0]
	return orchestrator.Transcript{
		Text:         alt.Transcript,
		Confidence:   alt.Confidence,
		ProcessingMS: time.Since(start).Milliseconds(),
	}, nil
}
