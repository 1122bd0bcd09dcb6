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

type AnthropicLLM struct {
	apiKey string
	url    string
	model  string
}

func NewAnthropicLLM(apiKey string, model string) *AnthropicLLM {
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
	}
	return &AnthropicLLM{
		apiKey: apiKey,
		url:    "https://api.anthropic.com/v1/messages",
		model:  model,
	}
}

func (l *AnthropicLLM) Generate(ctx context.Context, prompt, systemPrompt string, history []orchestrator.Message, opts orchestrator.GenerateOptions) (orchestrator.LLMResponse, error) {
	if opts.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	var anthropicMessages []map[string]string
	for _, msg := range history {
		anthropicMessages = append(anthropicMessages, map[string]string{
			"role":    msg.Role,
			"content": msg.Content,
		})
	}
	anthropicMessages = append(anthropicMessages, map[string]string{"role": "user", "content": prompt})

	payload := map[string]interface{}{
		"model":      l.model,
		"messages":   anthropicMessages,
		"max_tokens": maxTokensOrDefault(opts, 1024),
	}
	if systemPrompt != "" {
		payload["system"] = systemPrompt
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
	req.Header.Set("x-api-key", l.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

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
		return orchestrator.LLMResponse{}, fmt.Errorf("%w: anthropic status %d: %v", orchestrator.ErrLLMFailed, resp.StatusCode, errResp)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return orchestrator.LLMResponse{}, err
	}

	if len(result.Content) == 0 {
		return orchestrator.LLMResponse{}, fmt.Errorf("%w: no content returned from anthropic", orchestrator.ErrLLMFailed)
	}

	stopReason := orchestrator.StopReasonStop
	if result.StopReason == "max_tokens" {
		stopReason = orchestrator.StopReasonLength
	}

	return orchestrator.LLMResponse{
		Content:    result.Content[0].Text,
		StopReason: stopReason,
	}, nil
}

func (l *AnthropicLLM) Name() string {
	return "anthropic-llm"
}
