// Package gate implements the Transcript Gate (C3): a pure predicate over
// a Transcript that rejects blank or low-signal results before they reach
// the router/LLM, plus the configured behavior to take when one is
// rejected.
//
// Grounded on team-hashing-lokutor-orchestrator's blank-transcript check
// in orchestrator.go (`strings.TrimSpace(transcript) == ""` ->
// ErrEmptyTranscription), generalized into the full six-condition
// predicate spec.md §4.3 describes.
package gate

import (
	"strings"
	"unicode"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

// Config configures the low-signal predicate (spec.md §6 transcript_gate.*).
type Config struct {
	MinChars      int
	MinTokens     int
	MinConfidence float64
	BlankSentinel string
	NoisePatterns []string
}

// BlankBehaviorConfig configures what the pipeline does with a rejected
// transcript (spec.md §4.3, §6 transcript_blank_behavior.*).
type BlankBehaviorConfig struct {
	Behavior       orchestrator.BlankBehavior
	SayAgainPhrase string
}

// normalize trims whitespace and strips trailing/leading Unicode
// punctuation, matching the "post-trim, post-punctuation-strip" wording
// of spec.md §4.3 condition 5.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// IsLowSignal reports whether t is low-signal per spec.md §4.3, and a
// short reason string for logging/recording.
func IsLowSignal(t orchestrator.Transcript, cfg Config) (bool, string) {
	trimmed := strings.TrimSpace(t.Text)

	if trimmed == "" {
		return true, "empty"
	}
	if cfg.BlankSentinel != "" && trimmed == cfg.BlankSentinel {
		return true, "blank_sentinel"
	}
	if cfg.MinTokens > 0 && t.TokenCount != 0 && t.TokenCount < cfg.MinTokens {
		return true, "min_tokens"
	}
	if cfg.MinConfidence > 0 && t.Confidence != 0 && t.Confidence < cfg.MinConfidence {
		return true, "min_confidence"
	}

	normalized := normalize(trimmed)
	if cfg.MinChars > 0 && len(normalized) < cfg.MinChars {
		return true, "min_chars"
	}

	lower := strings.ToLower(normalized)
	for _, pattern := range cfg.NoisePatterns {
		if pattern == "" {
			continue
		}
		if lower == strings.ToLower(pattern) {
			return true, "noise_pattern"
		}
	}

	return false, ""
}
