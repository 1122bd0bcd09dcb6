// Package pipeline implements the Response Pipeline (C5): STT, the
// Transcript Gate, persona-change interception, the wake-word gate, the
// Router, an optional LLM call, and TTS synthesis, producing a
// transmit-ready AudioBuffer.
//
// Grounded on team-hashing-lokutor-orchestrator's Orchestrator.Chat
// (STT -> LLM -> TTS, one step per backend) in the deleted orchestrator
// package; generalized here into the gate/persona/wake-word/router
// interception chain spec.md §4.5 adds in front of the LLM call.
package pipeline

import (
	"context"
	"strings"

	"github.com/radioagent/radioagent/pkg/gate"
	"github.com/radioagent/radioagent/pkg/orchestrator"
	"github.com/radioagent/radioagent/pkg/persona"
	"github.com/radioagent/radioagent/pkg/router"
	"github.com/radioagent/radioagent/pkg/tx"
)

const wakeWord = "hey memo"

// Config bundles the pipeline's own tunables (spec.md §6 stt.*, llm.*,
// wake_word.*); gate.Config/router.Config are taken separately since
// they're already the natural unit for C3/C4.
type Config struct {
	Language        string
	WakeWordEnabled bool

	LLMTimeoutMS   int
	LLMMaxTokens   int
	FallbackPhrase string

	Gate          gate.Config
	BlankBehavior gate.BlankBehaviorConfig
	Router        router.Config
}

// Result is what the pipeline hands back to the agent loop.
type Result struct {
	// Responded is false when the pipeline produced no audio (NoOp,
	// blank after wake-word strip with "none" behavior, no wake word,
	// or a low-signal transcript with "none" behavior).
	Responded bool
	Audio     orchestrator.AudioBuffer
}

// Pipeline wires the external collaborators (STT/LLM/TTS, persona
// catalog, recorder) the Response Pipeline needs.
type Pipeline struct {
	cfg Config

	stt orchestrator.Transcriber
	llm orchestrator.LanguageModel
	tts orchestrator.Speaker
	tx  *tx.Controller

	personas *persona.Catalog
	current  *persona.Current

	recorder orchestrator.SessionRecorder
	logger   orchestrator.Logger
}

// New builds a Pipeline. personas may be nil (persona-change commands
// then always report "not found").
func New(cfg Config, stt orchestrator.Transcriber, llm orchestrator.LanguageModel, tts orchestrator.Speaker, txc *tx.Controller, personas *persona.Catalog, current *persona.Current, recorder orchestrator.SessionRecorder, logger orchestrator.Logger) *Pipeline {
	if recorder == nil {
		recorder = orchestrator.NoOpRecorder{}
	}
	if logger == nil {
		logger = orchestrator.NoOpLogger{}
	}
	return &Pipeline{cfg: cfg, stt: stt, llm: llm, tts: tts, tx: txc, personas: personas, current: current, recorder: recorder, logger: logger}
}

// Run executes the full C5 pipeline for one finalized utterance. id is an
// opaque identifier used only to correlate Session Recorder entries.
func (p *Pipeline) Run(ctx context.Context, utterance orchestrator.AudioBuffer, id string) Result {
	p.recorder.RecordUtterance(utterance, id)

	transcript, err := p.stt.Transcribe(ctx, utterance, p.cfg.Language)
	if err != nil {
		p.logger.Error("pipeline: transcription failed", "err", err)
		return Result{Responded: false}
	}
	p.recorder.RecordTranscript(transcript, id)

	if lowSignal, reason := gate.IsLowSignal(transcript, p.cfg.Gate); lowSignal {
		p.logger.Debug("pipeline: transcript gated", "reason", reason)
		return p.runBlankBehavior(ctx, id)
	}

	lower := strings.ToLower(strings.TrimSpace(transcript.Text))

	if personaID, ok := persona.ParseChangePersonaCommand(lower); ok {
		return p.handlePersonaChange(ctx, personaID, id)
	}

	command := transcript.Text
	if p.cfg.WakeWordEnabled {
		idx := strings.Index(lower, wakeWord)
		if idx < 0 {
			return Result{Responded: false}
		}
		command = strings.TrimSpace(transcript.Text[idx+len(wakeWord):])
		if command == "" {
			return p.runBlankBehavior(ctx, id)
		}
	}

	routed := orchestrator.Transcript{Text: command, Confidence: transcript.Confidence, TokenCount: transcript.TokenCount}
	plan := router.Route(routed, p.cfg.Router)

	switch pl := plan.(type) {
	case router.NoOpPlan:
		return Result{Responded: false}

	case router.SpeakPlan:
		return p.speak(ctx, pl.Text, id)

	case router.SpeakAckThenAnswerPlan:
		if !pl.NeedsLLM {
			return p.speak(ctx, pl.AckText, id)
		}
		return p.speakLLMAnswer(ctx, command, id)

	case router.FallbackPlan:
		return p.speak(ctx, pl.Text, id)
	}

	return Result{Responded: false}
}

func (p *Pipeline) runBlankBehavior(ctx context.Context, id string) Result {
	switch p.cfg.BlankBehavior.Behavior {
	case orchestrator.BlankBehaviorSayAgain:
		return p.speak(ctx, p.cfg.BlankBehavior.SayAgainPhrase, id)
	case orchestrator.BlankBehaviorBeep:
		return Result{Responded: true, Audio: p.tx.Prepare(nil)}
	default:
		return Result{Responded: false}
	}
}

func (p *Pipeline) handlePersonaChange(ctx context.Context, personaID, id string) Result {
	if p.personas == nil {
		return p.speak(ctx, "Persona not found: "+personaID+".", id)
	}
	found, ok := p.personas.Lookup(personaID)
	if !ok {
		return p.speak(ctx, "Persona not found: "+personaID+".", id)
	}
	p.current.Apply(found)
	p.recorder.RecordEvent("persona_change", map[string]string{"persona_id": found.ID, "persona_name": found.DisplayName})
	return p.speak(ctx, "Persona changed to "+found.DisplayName+".", id)
}

func (p *Pipeline) speak(ctx context.Context, text string, id string) Result {
	text = orchestrator.EnsureEndsWithOver(text)
	audio, err := p.tts.Synthesize(ctx, text)
	if err != nil {
		p.logger.Error("pipeline: tts synthesis failed", "err", err)
		return Result{Responded: false}
	}
	p.recorder.RecordTTSOutput(audio, id)
	return Result{Responded: true, Audio: p.tx.Prepare(audio)}
}

func (p *Pipeline) speakLLMAnswer(ctx context.Context, prompt string, id string) Result {
	p.recorder.RecordLLMPrompt(prompt, id)

	systemPrompt := p.current.EffectiveSystemPrompt()
	resp, err := p.llm.Generate(ctx, prompt, systemPrompt, nil, orchestrator.GenerateOptions{
		TimeoutMS: p.cfg.LLMTimeoutMS,
		MaxTokens: p.cfg.LLMMaxTokens,
	})

	content := ""
	if err != nil {
		if resp.StopReason == orchestrator.StopReasonTimeout {
			p.logger.Warn("pipeline: llm call timed out, using fallback", "err", err)
		} else {
			p.logger.Warn("pipeline: llm call failed, using fallback", "err", err)
		}
	} else {
		content = resp.Content
		if resp.StopReason == orchestrator.StopReasonLength || strings.TrimSpace(content) == "" {
			content = ""
		}
	}

	if content == "" {
		content = p.cfg.FallbackPhrase
	}
	p.recorder.RecordLLMResponse(content, id)
	return p.speak(ctx, content, id)
}
