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

// GroqLLM talks to Groq's OpenAI-compatible chat completions endpoint.
type GroqLLM struct {
	apiKey string
	url    string
	model  string
}

func NewGroqLLM(apiKey string, model string) *GroqLLM {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &GroqLLM{
		apiKey: apiKey,
		url:    "https://api.groq.com/openai/v1/chat/completions",
		model:  model,
	}
}

func (l *GroqLLM) Generate(ctx context.Context, prompt, systemPrompt string, history []orchestrator.Message, opts orchestrator.GenerateOptions) (orchestrator.LLMResponse, error) {
	if opts.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	payload := map[string]interface{}{
		"model":      l.model,
		"messages":   buildMessages(systemPrompt, prompt, history),
		"max_tokens": maxTokensOrDefault(opts, 512),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return orchestrator.LLMResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.url, bytes.NewReader(body))
	if err != nil {
		return orchestrator.LLMResponse{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

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
		return orchestrator.LLMResponse{}, fmt.Errorf("%w: groq status %d: %v", orchestrator.ErrLLMFailed, resp.StatusCode, errResp)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return orchestrator.LLMResponse{}, err
	}

	if len(result.Choices) == 0 {
		return orchestrator.LLMResponse{}, fmt.Errorf("%w: no choices returned from groq", orchestrator.ErrLLMFailed)
	}

	return orchestrator.LLMResponse{
		Content:    result.Choices[0].Message.Content,
		StopReason: stopReasonFromFinish(result.Choices[0].FinishReason),
	}, nil
}

func (l *GroqLLM) Name() string {
	return "groq-llm"
}
