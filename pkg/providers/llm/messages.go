package llm

import (
	"context"
	"fmt"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

// buildMessages assembles the wire message list: an optional system
// message, the (always-empty per Non-goals) history, then the prompt as
// the final user turn.
func buildMessages(systemPrompt, prompt string, history []orchestrator.Message) []orchestrator.Message {
	var out []orchestrator.Message
	if systemPrompt != "" {
		out = append(out, orchestrator.Message{Role: "system", Content: systemPrompt})
	}
	out = append(out, history...)
	out = append(out, orchestrator.Message{Role: "user", Content: prompt})
	return out
}

func maxTokensOrDefault(opts orchestrator.GenerateOptions, def int) int {
	if opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	return def
}

// timeoutResponse reports a request-level failure after the HTTP client
// gave up. When the cause is ctx's own deadline (llm.timeout_ms), it
// synthesizes StopReasonTimeout on the response alongside the sentinel
// error, so callers that only look at err still see the right StopReason
// if they choose to look.
func timeoutResponse(ctx context.Context, cause error) (orchestrator.LLMResponse, error) {
	resp := orchestrator.LLMResponse{}
	if ctx.Err() == context.DeadlineExceeded {
		resp.StopReason = orchestrator.StopReasonTimeout
	}
	return resp, fmt.Errorf("%w: %v", orchestrator.ErrContextCancelled, cause)
}

func stopReasonFromFinish(finish string) orchestrator.StopReason {
	switch finish {
	case "length", "max_tokens", "MAX_TOKENS":
		return orchestrator.StopReasonLength
	default:
		return orchestrator.StopReasonStop
	}
}
