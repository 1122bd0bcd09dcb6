// Package agent implements the Agent State Machine (C7): the single
// per-frame tick that drives C2 (VAD), C5 (Response Pipeline), and C6
// (TX Controller) through the five half-duplex states, plus the
// channel-clear timer and the post-playback VAD guard period.
//
// Grounded on team-hashing-lokutor-orchestrator's ManagedStream read
// loop (one goroutine pulling frames, feeding a VAD, reacting to its
// events) in the deleted orchestrator package, generalized from a single
// Speaking/not-Speaking flag into the full five-state machine spec.md
// §4.7 describes.
package agent

import (
	"context"
	"strconv"
	"time"

	"github.com/radioagent/radioagent/pkg/orchestrator"
	"github.com/radioagent/radioagent/pkg/pipeline"
)

// Device is the subset of the Audio Device (C1) contract the state
// machine drives directly.
type Device interface {
	ReadFrame(done <-chan struct{}) (orchestrator.AudioFrame, bool)
	Play(buf orchestrator.AudioBuffer)
	IsPlaybackComplete() bool
	StopPlayback()
	FlushInputQueue()
}

// Detector is satisfied by vad.Detector (and orchestrator.Detector).
type Detector = orchestrator.Detector

// Pipeline is the subset of pipeline.Pipeline the state machine calls.
type Pipeline interface {
	Run(ctx context.Context, utterance orchestrator.AudioBuffer, id string) pipeline.Result
}

// Config configures the state machine (spec.md §6 tx.*, wake_word.*, and
// the §4.7 named constants not otherwise grouped under a config block).
type Config struct {
	WakeWordEnabled       bool
	ChannelClearSilenceMS int
	PostPlaybackDelayMS   int
	VADGuardPeriodMS      int
	EnableBargeIn         bool
	MinSpeechMS           int
}

func (c Config) postPlaybackDelay() time.Duration {
	if c.PostPlaybackDelayMS <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(c.PostPlaybackDelayMS) * time.Millisecond
}

func (c Config) guardPeriod() time.Duration {
	if c.VADGuardPeriodMS <= 0 {
		return 1500 * time.Millisecond
	}
	return time.Duration(c.VADGuardPeriodMS) * time.Millisecond
}

func (c Config) channelClearSilence() time.Duration {
	if c.ChannelClearSilenceMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.ChannelClearSilenceMS) * time.Millisecond
}

// Agent owns the AgentState and drives one tick per audio frame.
type Agent struct {
	cfg Config

	dev        Device
	detector   Detector
	pipe       Pipeline
	logger     orchestrator.Logger
	sampleRate int

	onStateChange func(orchestrator.AgentStateKind)

	state orchestrator.AgentState

	lastSpeechEndAt time.Time
	guardUntil      time.Time

	echo *echoGuard

	turnCounter uint64
}

// New builds an Agent in IdleListening.
func New(cfg Config, dev Device, detector Detector, pipe Pipeline, sampleRate int, logger orchestrator.Logger) *Agent {
	if logger == nil {
		logger = orchestrator.NoOpLogger{}
	}
	a := &Agent{
		cfg:        cfg,
		dev:        dev,
		detector:   detector,
		pipe:       pipe,
		logger:     logger,
		sampleRate: sampleRate,
		state:      orchestrator.AgentState{Kind: orchestrator.StateIdleListening},
	}
	if cfg.EnableBargeIn {
		a.echo = newEchoGuard(sampleRate)
	}
	return a
}

// OnStateChange registers a callback invoked whenever the state's Kind
// changes, e.g. to drive metrics.Registry.SetAgentState.
func (a *Agent) OnStateChange(fn func(orchestrator.AgentStateKind)) {
	a.onStateChange = fn
}

// State returns the agent's current state (read-only snapshot).
func (a *Agent) State() orchestrator.AgentState { return a.state }

func (a *Agent) setState(kind orchestrator.AgentStateKind, pending *orchestrator.PendingResponse) {
	if a.state.Kind != kind {
		a.logger.Debug("agent: state transition", "from", string(a.state.Kind), "to", string(kind))
		if a.onStateChange != nil {
			a.onStateChange(kind)
		}
	}
	a.state = orchestrator.AgentState{Kind: kind, Pending: pending}
}

func (a *Agent) inGuardPeriod() bool {
	return !a.guardUntil.IsZero() && time.Now().Before(a.guardUntil)
}

// Run drives the agent loop until done is closed. It blocks on frame
// reads; one tick per frame, per spec.md §4.7's "event-driven tick" rule.
func (a *Agent) Run(ctx context.Context, done <-chan struct{}) {
	for {
		frame, ok := a.dev.ReadFrame(done)
		if !ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		a.tick(ctx, frame)
	}
}

func (a *Agent) tick(ctx context.Context, frame orchestrator.AudioFrame) {
	if a.inGuardPeriod() {
		// Still consume the frame so the VAD's internal buffers don't
		// desync, but ignore whatever event it reports.
		_, _ = a.detector.Process(frame)
		return
	}

	if a.state.Kind == orchestrator.StateTransmitting {
		a.tickTransmitting(frame)
		return
	}

	event, err := a.detector.Process(frame)
	if err != nil {
		a.logger.Warn("agent: vad error", "err", err)
		return
	}

	if a.state.Kind == orchestrator.StateWaitingForChannelClear {
		a.tickWaitingForChannelClear(event)
		return
	}

	switch event.Type {
	case orchestrator.VADEventSpeechStart:
		a.handleSpeechStart()
	case orchestrator.VADEventSpeechEnd:
		a.handleSpeechEnd(ctx)
	}
}

func (a *Agent) handleSpeechStart() {
	switch a.state.Kind {
	case orchestrator.StateIdleListening:
		a.setState(orchestrator.StateReceivingSpeech, nil)
	case orchestrator.StateReceivingSpeech:
		// already receiving; nothing to do.
	}
}

func (a *Agent) handleSpeechEnd(ctx context.Context) {
	if a.state.Kind != orchestrator.StateReceivingSpeech {
		return
	}

	utterance := a.detector.FinalizeSegment()

	if pending := a.state.Pending; pending != nil {
		// Speech interrupted a held response: the new utterance is
		// discarded and the held response waits for the channel again.
		a.lastSpeechEndAt = time.Now()
		a.setState(orchestrator.StateWaitingForChannelClear, pending)
		return
	}

	if a.tooShort(utterance) {
		a.logger.Debug("agent: discarding short utterance", "samples", len(utterance))
		a.setState(orchestrator.StateIdleListening, nil)
		a.dev.FlushInputQueue()
		return
	}

	if !a.cfg.WakeWordEnabled {
		a.runLegacyPipeline(ctx, utterance)
		return
	}

	a.turnCounter++
	id := turnID(a.turnCounter)
	result := a.pipe.Run(ctx, utterance, id)

	if !result.Responded {
		a.setState(orchestrator.StateIdleListening, nil)
		a.dev.FlushInputQueue()
		return
	}

	a.lastSpeechEndAt = time.Now()
	a.setState(orchestrator.StateWaitingForChannelClear, &orchestrator.PendingResponse{
		Audio:     result.Audio,
		CreatedAt: time.Now(),
	})
}

func (a *Agent) runLegacyPipeline(ctx context.Context, utterance orchestrator.AudioBuffer) {
	a.setState(orchestrator.StateThinking, nil)

	a.turnCounter++
	id := turnID(a.turnCounter)
	result := a.pipe.Run(ctx, utterance, id)

	if !result.Responded {
		a.setState(orchestrator.StateIdleListening, nil)
		a.dev.FlushInputQueue()
		return
	}

	a.beginTransmit(result.Audio)
}

func (a *Agent) tickWaitingForChannelClear(event orchestrator.VADEvent) {
	pending := a.state.Pending

	if event.Type == orchestrator.VADEventSpeechStart {
		a.setState(orchestrator.StateReceivingSpeech, pending)
		return
	}
	if event.Type == orchestrator.VADEventSpeechEnd {
		a.lastSpeechEndAt = time.Now()
		a.setState(orchestrator.StateWaitingForChannelClear, pending)
		return
	}

	if time.Since(a.lastSpeechEndAt) >= a.cfg.channelClearSilence() && a.detector.State() == orchestrator.VADStateSilence {
		a.beginTransmit(pending.Audio)
	}
}

func (a *Agent) beginTransmit(buf orchestrator.AudioBuffer) {
	a.dev.Play(buf)
	if a.echo != nil {
		a.echo.recordPlayed(buf)
	}
	a.setState(orchestrator.StateTransmitting, nil)
}

func (a *Agent) tickTransmitting(frame orchestrator.AudioFrame) {
	if a.cfg.EnableBargeIn && a.echo != nil {
		event, err := a.detector.Process(frame)
		if err == nil && event.Type == orchestrator.VADEventSpeechStart && !a.echo.isLikelyEcho(frame) {
			a.dev.StopPlayback()
			a.setState(orchestrator.StateReceivingSpeech, nil)
			return
		}
	}

	if a.dev.IsPlaybackComplete() {
		a.completeTransmission()
	}
}

func (a *Agent) completeTransmission() {
	a.guardUntil = time.Now().Add(a.cfg.postPlaybackDelay() + a.cfg.guardPeriod())
	a.detector.Reset()
	if a.echo != nil {
		a.echo.reset()
	}
	a.dev.FlushInputQueue()
	a.setState(orchestrator.StateIdleListening, nil)
}

// tooShort reports whether buf is shorter than MinSpeechMS, per spec.md's
// invariant that the caller (not the VAD) discards sub-minimum utterances.
func (a *Agent) tooShort(buf orchestrator.AudioBuffer) bool {
	if a.cfg.MinSpeechMS <= 0 || a.sampleRate <= 0 {
		return false
	}
	ms := len(buf) * 1000 / a.sampleRate
	return ms < a.cfg.MinSpeechMS
}

func turnID(n uint64) string {
	return "turn-" + strconv.FormatUint(n, 10)
}
