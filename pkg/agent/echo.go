package agent

import (
	"math"
	"sync"
	"time"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

// echoGuard corroborates the VAD guard period (spec.md §4.7) by checking
// whether a captured frame correlates with audio the agent itself recently
// played. It is consulted only when barge-in is enabled and a SpeechStart
// arrives during Transmitting, as a second opinion
// on top of the fixed-duration guard window — a loud acoustic coupling
// path can outlast VADGuardPeriodMS, and a quiet side channel may clear
// well before it.
type echoGuard struct {
	mu            sync.Mutex
	played        []orchestrator.Sample
	maxSamples    int
	lastPlayedAt  time.Time
	threshold     float64
	silenceWindow time.Duration
}

func newEchoGuard(sampleRate int) *echoGuard {
	return &echoGuard{
		maxSamples:    sampleRate * 2, // ~2s of reference audio
		threshold:     0.55,
		silenceWindow: 1200 * time.Millisecond,
	}
}

// recordPlayed is called with every chunk sent to the device so the guard
// has a reference of what the agent itself is producing.
func (g *echoGuard) recordPlayed(chunk orchestrator.AudioBuffer) {
	if len(chunk) == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.played = append(g.played, chunk...)
	g.lastPlayedAt = time.Now()
	if len(g.played) > g.maxSamples {
		g.played = g.played[len(g.played)-g.maxSamples:]
	}
}

// isLikelyEcho reports whether frame correlates strongly with recently
// played audio, suggesting the mic is picking up the agent's own output
// rather than a genuine operator.
func (g *echoGuard) isLikelyEcho(frame orchestrator.AudioFrame) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if time.Since(g.lastPlayedAt) > g.silenceWindow {
		return false
	}
	if len(g.played) == 0 || len(frame) == 0 {
		return false
	}

	in := toFloat(frame)
	ref := toFloat(g.played)

	compareLen := len(in)
	if compareLen > len(ref) {
		compareLen = len(ref)
	}
	if compareLen == 0 {
		return false
	}

	inEnergy := energy(in)
	if inEnergy == 0 {
		return false
	}

	maxCorr := 0.0
	stride := compareLen / 4
	if stride < 8 {
		stride = 8
	}
	searchRange := len(ref) - compareLen + 1
	for pos := 0; pos < searchRange; pos += stride {
		seg := ref[pos : pos+compareLen]
		segEnergy := energy(seg)
		if segEnergy == 0 {
			continue
		}
		dot := 0.0
		for i := 0; i < compareLen; i++ {
			dot += in[i] * seg[i]
		}
		corr := dot / math.Sqrt(inEnergy*segEnergy)
		if corr > maxCorr {
			maxCorr = corr
		}
	}

	return maxCorr > g.threshold
}

func (g *echoGuard) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.played = g.played[:0]
}

func toFloat(samples []orchestrator.Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / 32768.0
	}
	return out
}

func energy(samples []float64) float64 {
	sum := 0.0
	for _, s := range samples {
		sum += s * s
	}
	return sum
}
