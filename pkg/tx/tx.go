// Package tx implements the TX Controller (C6): VOX pre-roll tone
// generation, the optional end tone, max-transmit-duration truncation,
// and the non-blocking handoff to the Audio Device.
//
// Grounded on team-hashing-lokutor-orchestrator's playback bookkeeping in
// ManagedStream (lastAudioSentAt/RecordPlayedOutput), generalized from
// "play whatever TTS returned" into explicit pre-roll/end-tone framing
// the teacher never needed (it talks to a speaker, not a VOX radio).
package tx

import (
	"math"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

// PrerollConfig configures the VOX pre-roll tone (spec.md §6 tts.*, since
// the spec groups preroll_ms/amplitude/freq under the tts config block
// even though the TX Controller is what generates the tone).
type PrerollConfig struct {
	PrerollMS        int
	PrerollAmplitude float64
	PrerollFreq      float64
	OutputGain       float64
}

// Config configures transmission behavior (spec.md §6 tx.*).
type Config struct {
	MaxTransmitMS         int
	ChannelClearSilenceMS int
	EnableStartChirp      bool
	EnableEndChirp        bool
}

// Device is the subset of the Audio Device contract (C1) the TX
// Controller needs.
type Device interface {
	Play(buf orchestrator.AudioBuffer)
	IsPlaybackComplete() bool
	StopPlayback()
}

// Controller generates and caches the pre-roll tone and plays prepared
// buffers through a Device.
type Controller struct {
	preroll    PrerollConfig
	cfg        Config
	sampleRate int

	cachedPreroll orchestrator.AudioBuffer
	cachedEndTone orchestrator.AudioBuffer
}

// New builds a Controller and pre-generates (and caches) the pre-roll and
// end tones once, per spec.md §4.6 ("Generated once and cached").
func New(sampleRate int, preroll PrerollConfig, cfg Config) *Controller {
	c := &Controller{preroll: applyDefaults(preroll), cfg: cfg, sampleRate: sampleRate}
	c.cachedPreroll = generateTone(sampleRate, c.preroll.PrerollFreq, c.preroll.PrerollAmplitude, c.preroll.PrerollMS)
	c.cachedEndTone = generateTone(sampleRate, c.preroll.PrerollFreq, c.preroll.PrerollAmplitude, 100)
	return c
}

func applyDefaults(p PrerollConfig) PrerollConfig {
	if p.PrerollMS <= 0 {
		p.PrerollMS = 350
	}
	if p.PrerollAmplitude <= 0 {
		p.PrerollAmplitude = 0.55
	}
	if p.PrerollFreq <= 0 {
		p.PrerollFreq = 440
	}
	if p.OutputGain <= 0 {
		p.OutputGain = 1.0
	}
	return p
}

func generateTone(sampleRate int, freq, amplitude float64, durationMS int) orchestrator.AudioBuffer {
	n := sampleRate * durationMS / 1000
	buf := make(orchestrator.AudioBuffer, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		v := amplitude * math.Sin(2*math.Pi*freq*t)
		buf[i] = orchestrator.Sample(v * 32767)
	}
	return buf
}

// Preroll returns the cached pre-roll tone buffer.
func (c *Controller) Preroll() orchestrator.AudioBuffer { return c.cachedPreroll }

// PrerollMS returns the configured pre-roll duration.
func (c *Controller) PrerollMS() int { return c.preroll.PrerollMS }

// Prepare builds the final buffer to transmit: pre-roll + speech (capped
// at MaxTransmitMS, 0 disables the cap) + optional end tone. It does not
// play anything; callers hold the result as a PendingResponse until the
// channel is clear (C7's job).
func (c *Controller) Prepare(speech orchestrator.AudioBuffer) orchestrator.AudioBuffer {
	capped := speech
	if c.cfg.MaxTransmitMS > 0 {
		maxSamples := c.sampleRate * c.cfg.MaxTransmitMS / 1000
		if len(capped) > maxSamples {
			capped = capped[:maxSamples]
		}
	}

	out := make(orchestrator.AudioBuffer, 0, len(c.cachedPreroll)+len(capped)+len(c.cachedEndTone))
	out = append(out, c.cachedPreroll...)
	out = append(out, applyGain(capped, c.preroll.OutputGain)...)
	if c.cfg.EnableEndChirp {
		out = append(out, c.cachedEndTone...)
	}
	return out
}

func applyGain(buf orchestrator.AudioBuffer, gain float64) orchestrator.AudioBuffer {
	if gain == 1.0 {
		return buf
	}
	out := make(orchestrator.AudioBuffer, len(buf))
	for i, s := range buf {
		v := float64(s) * gain
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = orchestrator.Sample(v)
	}
	return out
}

// Transmit plays a prepared buffer through dev. Non-blocking; completion
// is detected by the caller polling dev.IsPlaybackComplete().
func (c *Controller) Transmit(dev Device, buf orchestrator.AudioBuffer) {
	dev.Play(buf)
}

// Stop aborts transmission immediately.
func (c *Controller) Stop(dev Device) {
	dev.StopPlayback()
}

// IsComplete reports whether dev has finished draining its queue.
func (c *Controller) IsComplete(dev Device) bool {
	return dev.IsPlaybackComplete()
}
