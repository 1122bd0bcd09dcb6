// Package metrics provides ambient Prometheus instrumentation for the
// agent loop: FIFO overflow counts, VAD event counts, backend call
// latency, and the current AgentState as a gauge. No HTTP listener is
// started here; cmd/radioagent does not expose a `/metrics` endpoint by
// default since a feed/dashboard surface is explicitly out of scope.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

// Registry bundles the agent's Prometheus collectors and registers them
// against its own registry, so embedding code decides whether and how to
// expose Gather()'s output.
type Registry struct {
	reg *prometheus.Registry

	InputOverflows   prometheus.Counter
	VADSpeechStarts  prometheus.Counter
	VADSpeechEnds    prometheus.Counter
	BackendLatencyMS *prometheus.HistogramVec
	AgentStateGauge  *prometheus.GaugeVec
}

// NewRegistry builds and registers all collectors.
func NewRegistry() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.InputOverflows = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "radioagent_input_fifo_overflows_total",
		Help: "Captured audio frames dropped because the input FIFO was full.",
	})
	r.VADSpeechStarts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "radioagent_vad_speech_starts_total",
		Help: "Number of SpeechStart events emitted by the VAD.",
	})
	r.VADSpeechEnds = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "radioagent_vad_speech_ends_total",
		Help: "Number of SpeechEnd events emitted by the VAD.",
	})
	r.BackendLatencyMS = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radioagent_backend_latency_ms",
		Help:    "Latency of STT/LLM/TTS backend calls in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000},
	}, []string{"backend"})
	r.AgentStateGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "radioagent_agent_state",
		Help: "1 for the currently active AgentState, 0 for all others.",
	}, []string{"state"})

	r.reg.MustRegister(r.InputOverflows, r.VADSpeechStarts, r.VADSpeechEnds, r.BackendLatencyMS, r.AgentStateGauge)
	return r
}

// SetAgentState zeroes every known state gauge and sets only kind to 1.
func (r *Registry) SetAgentState(kind orchestrator.AgentStateKind) {
	for _, s := range []orchestrator.AgentStateKind{
		orchestrator.StateIdleListening,
		orchestrator.StateReceivingSpeech,
		orchestrator.StateThinking,
		orchestrator.StateWaitingForChannelClear,
		orchestrator.StateTransmitting,
	} {
		v := 0.0
		if s == kind {
			v = 1.0
		}
		r.AgentStateGauge.WithLabelValues(string(s)).Set(v)
	}
}

// ObserveBackendLatency records a backend call's duration.
func (r *Registry) ObserveBackendLatency(backend string, ms float64) {
	r.BackendLatencyMS.WithLabelValues(backend).Observe(ms)
}

// Gatherer exposes the underlying registry so a host binary could choose
// to serve it over HTTP (e.g. via promhttp.HandlerFor); cmd/radioagent
// does not wire a listener to it by default.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
