package metrics

import (
	"context"
	"time"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

// IncInputOverflow records one captured frame dropped by pkg/audio's
// bounded drop-oldest FIFO.
func (r *Registry) IncInputOverflow() {
	r.InputOverflows.Inc()
}

// IncVADSpeechStart and IncVADSpeechEnd record endpointer events.
func (r *Registry) IncVADSpeechStart() { r.VADSpeechStarts.Inc() }
func (r *Registry) IncVADSpeechEnd()   { r.VADSpeechEnds.Inc() }

// instrumentedDetector wraps an orchestrator.Detector to count the
// SpeechStart/SpeechEnd events it emits, without the VAD package itself
// knowing anything about Prometheus.
type instrumentedDetector struct {
	orchestrator.Detector
	reg *Registry
}

// InstrumentDetector wraps det so its SpeechStart/SpeechEnd events feed
// VADSpeechStarts/VADSpeechEnds.
func (r *Registry) InstrumentDetector(det orchestrator.Detector) orchestrator.Detector {
	return &instrumentedDetector{Detector: det, reg: r}
}

func (d *instrumentedDetector) Process(frame orchestrator.AudioFrame) (orchestrator.VADEvent, error) {
	event, err := d.Detector.Process(frame)
	if err == nil {
		switch event.Type {
		case orchestrator.VADEventSpeechStart:
			d.reg.IncVADSpeechStart()
		case orchestrator.VADEventSpeechEnd:
			d.reg.IncVADSpeechEnd()
		}
	}
	return event, err
}

// instrumentedTranscriber, instrumentedLanguageModel and instrumentedSpeaker
// time their single backend call and feed BackendLatencyMS, labeled by the
// wrapped provider's Name().

type instrumentedTranscriber struct {
	orchestrator.Transcriber
	reg *Registry
}

// InstrumentTranscriber wraps t so each Transcribe call observes its
// latency under t.Name().
func (r *Registry) InstrumentTranscriber(t orchestrator.Transcriber) orchestrator.Transcriber {
	return &instrumentedTranscriber{Transcriber: t, reg: r}
}

func (t *instrumentedTranscriber) Transcribe(ctx context.Context, audio orchestrator.AudioBuffer, lang string) (orchestrator.Transcript, error) {
	start := time.Now()
	result, err := t.Transcriber.Transcribe(ctx, audio, lang)
	t.reg.ObserveBackendLatency(t.Transcriber.Name(), float64(time.Since(start).Milliseconds()))
	return result, err
}

type instrumentedLanguageModel struct {
	orchestrator.LanguageModel
	reg *Registry
}

// InstrumentLanguageModel wraps llm so each Generate call observes its
// latency under llm.Name().
func (r *Registry) InstrumentLanguageModel(llm orchestrator.LanguageModel) orchestrator.LanguageModel {
	return &instrumentedLanguageModel{LanguageModel: llm, reg: r}
}

func (l *instrumentedLanguageModel) Generate(ctx context.Context, prompt, systemPrompt string, history []orchestrator.Message, opts orchestrator.GenerateOptions) (orchestrator.LLMResponse, error) {
	start := time.Now()
	resp, err := l.LanguageModel.Generate(ctx, prompt, systemPrompt, history, opts)
	l.reg.ObserveBackendLatency(l.LanguageModel.Name(), float64(time.Since(start).Milliseconds()))
	return resp, err
}

type instrumentedSpeaker struct {
	orchestrator.Speaker
	reg *Registry
}

// InstrumentSpeaker wraps s so each Synthesize/StreamSynthesize call
// observes its latency under s.Name().
func (r *Registry) InstrumentSpeaker(s orchestrator.Speaker) orchestrator.Speaker {
	return &instrumentedSpeaker{Speaker: s, reg: r}
}

func (s *instrumentedSpeaker) Synthesize(ctx context.Context, text string) (orchestrator.AudioBuffer, error) {
	start := time.Now()
	audio, err := s.Speaker.Synthesize(ctx, text)
	s.reg.ObserveBackendLatency(s.Speaker.Name(), float64(time.Since(start).Milliseconds()))
	return audio, err
}

func (s *instrumentedSpeaker) StreamSynthesize(ctx context.Context, text string, onChunk func(orchestrator.AudioBuffer) error) error {
	start := time.Now()
	err := s.Speaker.StreamSynthesize(ctx, text, onChunk)
	s.reg.ObserveBackendLatency(s.Speaker.Name(), float64(time.Since(start).Milliseconds()))
	return err
}
