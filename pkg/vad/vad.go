// Package vad implements the energy-based voice activity detector and
// endpointer (C2): a three-state (Silence/Speech/Hangover) machine with
// hysteresis, pause tolerance, an adaptive noise floor, and a pre-roll
// ring buffer so word onsets aren't clipped by the threshold crossing.
//
// Grounded on team-hashing-lokutor-orchestrator's pkg/orchestrator/vad.go
// (RMSVAD): the RMS computation and consecutive-frame debounce are kept,
// generalized from a single silence timer into the full Silence -> Speech
// -> Hangover machine spec.md §4.2 describes.
package vad

import (
	"math"
	"time"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

// Config holds the tunable endpointer parameters (spec.md §4.2, §6 vad.*).
type Config struct {
	// SampleRate and FrameMS determine how many samples one AudioFrame
	// holds; both must match the Audio Device's configured rate.
	SampleRate int
	FrameMS    int

	// Threshold is the RMS, normalized to [0,1], above which a frame is
	// considered "loud enough to start speech".
	Threshold float64
	// HysteresisRatio derives EndThreshold = Threshold * HysteresisRatio.
	// Defaults to 0.5 when zero.
	HysteresisRatio float64

	MinSpeechMS       int
	EndSilenceMS      int
	HangoverMS        int
	PauseToleranceMS  int
	PreSpeechBufferMS int

	// MinConfirmedFrames requires N consecutive above-threshold frames
	// before emitting SpeechStart (debounce). 1 means "any single frame".
	MinConfirmedFrames int

	// AdaptiveThreshold enables an EWMA noise-floor estimate; when set,
	// the effective start threshold is
	// clamp(noiseFloor*AdaptiveK, MinAdaptiveThreshold, MaxAdaptiveThreshold).
	AdaptiveThreshold    bool
	AdaptiveK            float64
	MinAdaptiveThreshold float64
	MaxAdaptiveThreshold float64
	NoiseFloorAlpha      float64 // EWMA smoothing factor, default 0.05

	// TrueSilenceThreshold, when > 0, is a second, lower RMS threshold
	// used to count EndSilenceMS — addresses the Open Question in
	// spec.md §9 about Threshold/EndSilenceMS interaction on loud
	// channels with high intra-utterance troughs. Zero disables it and
	// EndThreshold is used instead (default behavior).
	TrueSilenceThreshold float64
}

func (c Config) hysteresisRatio() float64 {
	if c.HysteresisRatio <= 0 {
		return 0.5
	}
	return c.HysteresisRatio
}

func (c Config) endThreshold() float64 {
	return c.Threshold * c.hysteresisRatio()
}

func (c Config) minConfirmed() int {
	if c.MinConfirmedFrames <= 0 {
		return 1
	}
	return c.MinConfirmedFrames
}

func (c Config) noiseFloorAlpha() float64 {
	if c.NoiseFloorAlpha <= 0 {
		return 0.05
	}
	return c.NoiseFloorAlpha
}

// pauseToleranceMS is the grace period of continuous low-energy frames
// that does not yet count toward EndSilenceMS — it absorbs mid-word
// silences. Negative values are treated as "no grace period".
func (c Config) pauseToleranceMS() int {
	if c.PauseToleranceMS < 0 {
		return 0
	}
	return c.PauseToleranceMS
}

// Detector is the concrete C2 endpointer. It satisfies
// orchestrator.Detector.
type Detector struct {
	cfg Config

	state VADState

	// ring buffer of raw captured frames for pre-roll
	preRoll       []orchestrator.AudioFrame
	preRollFrames int

	utterance orchestrator.AudioBuffer

	consecutiveAbove int
	silenceMS        int
	pauseRunMS       int
	hangoverMS       int

	noiseFloor     float64
	noiseFloorInit bool
}

// VADState mirrors orchestrator.VADState for local readability.
type VADState = orchestrator.VADState

const (
	Silence  = orchestrator.VADStateSilence
	Speech   = orchestrator.VADStateSpeech
	Hangover = orchestrator.VADStateHangover
)

// New builds a Detector from cfg. Panics are avoided; zero-value fields
// fall back to sane defaults via the Config helper methods.
func New(cfg Config) *Detector {
	frameMS := cfg.FrameMS
	if frameMS <= 0 {
		frameMS = 20
	}
	preRollFrames := cfg.PreSpeechBufferMS / frameMS
	if preRollFrames < 1 {
		preRollFrames = 1
	}
	return &Detector{
		cfg:           cfg,
		state:         Silence,
		preRoll:       make([]orchestrator.AudioFrame, 0, preRollFrames),
		preRollFrames: preRollFrames,
	}
}

// State returns the detector's current VADState.
func (d *Detector) State() orchestrator.VADState { return d.state }

// Reset forces Silence and clears all counters/buffers.
func (d *Detector) Reset() {
	d.state = Silence
	d.preRoll = d.preRoll[:0]
	d.utterance = nil
	d.consecutiveAbove = 0
	d.silenceMS = 0
	d.pauseRunMS = 0
	d.hangoverMS = 0
}

// FinalizeSegment returns the finalized utterance and clears the internal
// buffer. The caller (C5/C7), not the VAD, is responsible for discarding
// utterances shorter than min_speech_ms.
func (d *Detector) FinalizeSegment() orchestrator.AudioBuffer {
	seg := d.utterance
	d.utterance = nil
	return seg
}

func rms(frame orchestrator.AudioFrame) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(frame)))
}

func (d *Detector) frameMS() int {
	if d.cfg.FrameMS <= 0 {
		return 20
	}
	return d.cfg.FrameMS
}

func (d *Detector) startThreshold() float64 {
	if !d.cfg.AdaptiveThreshold || !d.noiseFloorInit {
		return d.cfg.Threshold
	}
	t := d.noiseFloor * d.cfg.AdaptiveK
	if d.cfg.MinAdaptiveThreshold > 0 && t < d.cfg.MinAdaptiveThreshold {
		t = d.cfg.MinAdaptiveThreshold
	}
	if d.cfg.MaxAdaptiveThreshold > 0 && t > d.cfg.MaxAdaptiveThreshold {
		t = d.cfg.MaxAdaptiveThreshold
	}
	return t
}

func (d *Detector) updateNoiseFloor(level float64) {
	if !d.cfg.AdaptiveThreshold {
		return
	}
	if !d.noiseFloorInit {
		d.noiseFloor = level
		d.noiseFloorInit = true
		return
	}
	a := d.cfg.noiseFloorAlpha()
	d.noiseFloor = d.noiseFloor*(1-a) + level*a
}

func (d *Detector) pushPreRoll(frame orchestrator.AudioFrame) {
	cp := make(orchestrator.AudioFrame, len(frame))
	copy(cp, frame)
	d.preRoll = append(d.preRoll, cp)
	if len(d.preRoll) > d.preRollFrames {
		d.preRoll = d.preRoll[len(d.preRoll)-d.preRollFrames:]
	}
}

func (d *Detector) drainPreRollInto() {
	for _, f := range d.preRoll {
		d.utterance = append(d.utterance, f...)
	}
	d.preRoll = d.preRoll[:0]
}

// Process runs one frame through the endpointer and returns the resulting
// event: VADEventNone, VADEventSpeechStart, or VADEventSpeechEnd.
func (d *Detector) Process(frame orchestrator.AudioFrame) (orchestrator.VADEvent, error) {
	level := rms(frame)
	now := time.Now()
	frameMS := d.frameMS()
	startThresh := d.startThreshold()
	endThresh := startThresh * d.cfg.hysteresisRatio()

	switch d.state {
	case Silence:
		d.updateNoiseFloor(level)
		if level > startThresh {
			d.consecutiveAbove++
			if d.consecutiveAbove >= d.cfg.minConfirmed() {
				d.state = Speech
				d.consecutiveAbove = 0
				d.silenceMS = 0
				d.pauseRunMS = 0
				d.drainPreRollInto()
				d.utterance = append(d.utterance, frame...)
				return orchestrator.VADEvent{Type: orchestrator.VADEventSpeechStart, Timestamp: now}, nil
			}
			// still confirming; keep buffering pre-roll
			d.pushPreRoll(frame)
			return orchestrator.VADEvent{Type: orchestrator.VADEventNone, Timestamp: now}, nil
		}
		d.consecutiveAbove = 0
		d.pushPreRoll(frame)
		return orchestrator.VADEvent{Type: orchestrator.VADEventNone, Timestamp: now}, nil

	case Speech:
		d.utterance = append(d.utterance, frame...)

		trueSilenceLevel := endThresh
		if d.cfg.TrueSilenceThreshold > 0 {
			trueSilenceLevel = d.cfg.TrueSilenceThreshold
		}

		if level > endThresh {
			d.silenceMS = 0
			d.pauseRunMS = 0
			return orchestrator.VADEvent{Type: orchestrator.VADEventNone, Timestamp: now}, nil
		}

		// low-RMS frame: only accumulate toward end-silence once below
		// the (possibly lower) true-silence threshold, and only once the
		// continuous low-energy run has outlasted PauseToleranceMS — a
		// mid-word dip shorter than that grace period never reaches
		// EndSilenceMS at all.
		if level <= trueSilenceLevel {
			d.pauseRunMS += frameMS
			if d.pauseRunMS > d.cfg.pauseToleranceMS() {
				d.silenceMS += frameMS
			}
		}

		if d.silenceMS >= d.cfg.EndSilenceMS {
			d.state = Hangover
			d.hangoverMS = 0
			return orchestrator.VADEvent{Type: orchestrator.VADEventNone, Timestamp: now}, nil
		}
		// below end threshold but within pause tolerance: stay in Speech
		return orchestrator.VADEvent{Type: orchestrator.VADEventNone, Timestamp: now}, nil

	case Hangover:
		d.utterance = append(d.utterance, frame...)
		d.hangoverMS += frameMS
		if d.hangoverMS >= d.cfg.HangoverMS {
			d.state = Silence
			d.silenceMS = 0
			d.pauseRunMS = 0
			d.hangoverMS = 0
			d.consecutiveAbove = 0
			return orchestrator.VADEvent{Type: orchestrator.VADEventSpeechEnd, Timestamp: now}, nil
		}
		return orchestrator.VADEvent{Type: orchestrator.VADEventNone, Timestamp: now}, nil
	}

	return orchestrator.VADEvent{Type: orchestrator.VADEventNone, Timestamp: now}, nil
}
