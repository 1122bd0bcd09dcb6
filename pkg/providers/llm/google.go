package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

type GoogleLLM struct {
	apiKey string
	url    string
	model  string
}

func NewGoogleLLM(apiKey string, model string) *GoogleLLM {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GoogleLLM{
		apiKey: apiKey,
		url:    "https://generativelanguage.googleapis.com/v1beta/models/" + model + ":generateContent",
		model:  model,
	}
}

type googleMessage struct {
	Role  string `json:"role"`
	Parts []struct {
		Text string `json:"text"`
	} `json:"parts"`
}

func (l *GoogleLLM) Generate(ctx context.Context, prompt, systemPrompt string, history []orchestrator.Message, opts orchestrator.GenerateOptions) (orchestrator.LLMResponse, error) {
	if opts.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	all := buildMessages(systemPrompt, prompt, history)

	var googleMessages []googleMessage
	for _, m := range all {
		role := m.Role
		// Gemini does not accept a "system" role message in contents; fold
		// it into the first user turn instead.
		if role == "system" {
			continue
		}
		if role == "assistant" {
			role = "model"
		}
		msg := googleMessage{Role: role}
		msg.Parts = append(msg.Parts, struct {
			Text string `json:"text"`
		}{Text: m.Content})
		googleMessages = append(googleMessages, msg)
	}
	if systemPrompt != "" && len(googleMessages) > 0 {
		googleMessages[0].Parts[0].Text = systemPrompt + "\n\n" + googleMessages[0].Parts[0].Text
	}

	payload := map[string]interface{}{
		"contents": googleMessages,
		"generationConfig": map[string]interface{}{
			"maxOutputTokens": maxTokensOrDefault(opts, 512),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return orchestrator.LLMResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.url+"?key="+l.apiKey, bytes.NewReader(body))
	if err != nil {
		return orchestrator.LLMResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return timeoutResponse(ctx, err)
		}
		return orchestrator.LLMResponse{}, fmt.Errorf("%w: %v", orchestrator.ErrLLMFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return orchestrator.LLMResponse{}, fmt.Errorf("%w: google status %d: %v", orchestrator.ErrLLMFailed, resp.StatusCode, errResp)
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return orchestrator.LLMResponse{}, err
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return orchestrator.LLMResponse{}, fmt.Errorf("%w: no response from google llm", orchestrator.ErrLLMFailed)
	}

	return orchestrator.LLMResponse{
		Content:    result.Candidates[0].Content.Parts[0].Text,
		StopReason: stopReasonFromFinish(result.Candidates[0].FinishReason),
	}, nil
}

func (l *GoogleLLM) Name() string {
	return "google-llm"
}
