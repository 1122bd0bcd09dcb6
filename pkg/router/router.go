// Package router implements the Router (C4): repair-confidence
// short-circuit, an ordered whole-word fast-path table, and the default
// "ask the LLM" plan.
//
// Grounded on team-hashing-lokutor-orchestrator's split between
// Conversation.Chat (LLM path) and the fast literal-response shape the
// teacher's Conversation helpers imply at the call site; generalized here
// into a single data-driven dispatch table per spec.md §4.4.
package router

import (
	"regexp"
	"strings"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

// Plan is the tagged variant of spec.md §3: NoOp, Speak, SpeakAckThenAnswer,
// or Fallback.
type Plan interface {
	isPlan()
}

// NoOpPlan does nothing.
type NoOpPlan struct{}

func (NoOpPlan) isPlan() {}

// SpeakPlan synthesizes and transmits Text with no LLM call.
type SpeakPlan struct {
	Text string
}

func (SpeakPlan) isPlan() {}

// SpeakAckThenAnswerPlan optionally speaks AckText, then calls the LLM
// for the answer when NeedsLLM is true.
type SpeakAckThenAnswerPlan struct {
	AckText  string
	NeedsLLM bool
}

func (SpeakAckThenAnswerPlan) isPlan() {}

// FallbackPlan synthesizes a fixed fallback string.
type FallbackPlan struct {
	Text string
}

func (FallbackPlan) isPlan() {}

// FastPathEntry is one entry of the ordered keyword table. Matching is
// case-insensitive with ASCII word boundaries; the first whole-word hit
// wins (no fuzzy matching).
type FastPathEntry struct {
	Keyword string
	Reply   string
}

// Config configures the Router (spec.md §6 router.*).
type Config struct {
	RepairConfidenceThreshold float64
	RepairPhrase              string
	FastPath                  []FastPathEntry
}

// DefaultFastPath mirrors the worked example in spec.md §4.4.
func DefaultFastPath() []FastPathEntry {
	return []FastPathEntry{
		{Keyword: "roger", Reply: "roger."},
		{Keyword: "affirmative", Reply: "affirmative."},
		{Keyword: "stand by", Reply: "stand by."},
	}
}

func wordBoundaryPattern(keyword string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(strings.ToLower(keyword))
	// keyword may itself contain a literal space ("stand by"); \b still
	// anchors correctly around the whole phrase since \b only needs a
	// word/non-word transition at each end.
	return regexp.MustCompile(`\b` + escaped + `\b`)
}

// Route computes the Plan for transcript t per spec.md §4.4.
func Route(t orchestrator.Transcript, cfg Config) Plan {
	if cfg.RepairConfidenceThreshold > 0 && t.Confidence != 0 && t.Confidence < cfg.RepairConfidenceThreshold {
		return SpeakPlan{Text: cfg.RepairPhrase}
	}

	lower := strings.ToLower(t.Text)
	for _, entry := range cfg.FastPath {
		if entry.Keyword == "" {
			continue
		}
		if wordBoundaryPattern(entry.Keyword).MatchString(lower) {
			return SpeakPlan{Text: entry.Reply}
		}
	}

	return SpeakAckThenAnswerPlan{AckText: "", NeedsLLM: true}
}
