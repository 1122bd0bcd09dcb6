package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

func testConfig() Config {
	return Config{
		RepairConfidenceThreshold: 0.4,
		RepairPhrase:              "say again.",
		FastPath:                  DefaultFastPath(),
	}
}

func TestRouteRepairOnLowConfidence(t *testing.T) {
	plan := Route(orchestrator.Transcript{Text: "whatever", Confidence: 0.1}, testConfig())
	speak, ok := plan.(SpeakPlan)
	assert.True(t, ok)
	assert.Equal(t, "say again.", speak.Text)
}

func TestRouteFastPathWholeWord(t *testing.T) {
	plan := Route(orchestrator.Transcript{Text: "roger that", Confidence: 1}, testConfig())
	speak, ok := plan.(SpeakPlan)
	assert.True(t, ok)
	assert.Equal(t, "roger.", speak.Text)
}

func TestRouteFastPathDoesNotMatchSubstring(t *testing.T) {
	plan := Route(orchestrator.Transcript{Text: "rogerwilco", Confidence: 1}, testConfig())
	_, isSpeak := plan.(SpeakPlan)
	assert.False(t, isSpeak)
}

func TestRouteFastPathMultiWordPhrase(t *testing.T) {
	plan := Route(orchestrator.Transcript{Text: "okay, stand by please", Confidence: 1}, testConfig())
	speak, ok := plan.(SpeakPlan)
	assert.True(t, ok)
	assert.Equal(t, "stand by.", speak.Text)
}

func TestRouteDefaultsToLLM(t *testing.T) {
	plan := Route(orchestrator.Transcript{Text: "what's the weather like", Confidence: 1}, testConfig())
	answer, ok := plan.(SpeakAckThenAnswerPlan)
	assert.True(t, ok)
	assert.True(t, answer.NeedsLLM)
	assert.Empty(t, answer.AckText)
}

func TestRouteFastPathTieBreakInsertionOrder(t *testing.T) {
	cfg := Config{FastPath: []FastPathEntry{
		{Keyword: "roger", Reply: "first."},
		{Keyword: "roger", Reply: "second."},
	}}
	plan := Route(orchestrator.Transcript{Text: "roger"}, cfg)
	speak := plan.(SpeakPlan)
	assert.Equal(t, "first.", speak.Text)
}
