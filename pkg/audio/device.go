// Package audio implements the Audio Device (C1): a duplex malgo stream
// that feeds captured frames into a bounded, drop-oldest FIFO and plays
// queued buffers back through the same device.
//
// Grounded on team-hashing-lokutor-orchestrator's cmd/agent/main.go malgo
// wiring (malgo.InitContext, malgo.DefaultDeviceConfig(malgo.Duplex),
// malgo.InitDevice with a single Data callback, the mutex-guarded
// playbackBytes buffer) generalized from the teacher's single global
// buffer into the bounded-queue-with-overflow-counter contract spec.md §5
// requires.
package audio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

// Config configures the duplex device (spec.md §6 audio.*).
type Config struct {
	SampleRate      int
	FrameSizeMS     int
	InputQueueCap   int // frames, not samples; 0 uses DefaultInputQueueCap
	PlaybackOutGain float64
}

// DefaultInputQueueCap bounds the capture FIFO absent an explicit Config
// value. At 20ms frames this is roughly 4 seconds of backlog.
const DefaultInputQueueCap = 200

// Device wraps a malgo duplex stream. Capture frames are pushed onto a
// bounded channel; once full, the oldest queued frame is dropped and
// Overflows is incremented (spec.md §5 backpressure rule). Playback reads
// from a sample queue drained by the device callback; Play replaces the
// queue and AppendPlayback extends it.
type Device struct {
	cfg Config

	mctx   *malgo.AllocatedContext
	device *malgo.Device

	frames     chan orchestrator.AudioFrame
	overflows  uint64
	overflowMu sync.Mutex
	onOverflow func()

	playbackMu  sync.Mutex
	playbackBuf []int16

	logger orchestrator.Logger
}

// New allocates the malgo context and device but does not start capture;
// call Start for that.
func New(cfg Config, logger orchestrator.Logger) (*Device, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.FrameSizeMS <= 0 {
		cfg.FrameSizeMS = 20
	}
	if cfg.InputQueueCap <= 0 {
		cfg.InputQueueCap = DefaultInputQueueCap
	}
	if cfg.PlaybackOutGain <= 0 {
		cfg.PlaybackOutGain = 1.0
	}
	if logger == nil {
		logger = orchestrator.NoOpLogger{}
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: malgo init context: %v", orchestrator.ErrDeviceFailure, err)
	}

	d := &Device{
		cfg:    cfg,
		mctx:   mctx,
		frames: make(chan orchestrator.AudioFrame, cfg.InputQueueCap),
		logger: logger,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = uint32(cfg.FrameSizeMS)
	deviceConfig.Alsa.NoMMap = 1

	dev, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: d.onSamples,
	})
	if err != nil {
		mctx.Uninit()
		return nil, fmt.Errorf("%w: malgo init device: %v", orchestrator.ErrDeviceFailure, err)
	}
	d.device = dev

	return d, nil
}

func (d *Device) onSamples(pOutput, pInput []byte, frameCount uint32) {
	if pInput != nil {
		frame := orchestrator.AudioFrame(BytesToSamples(pInput))
		select {
		case d.frames <- frame:
		default:
			select {
			case <-d.frames:
			default:
			}
			select {
			case d.frames <- frame:
			default:
			}
			d.overflowMu.Lock()
			d.overflows++
			d.overflowMu.Unlock()
			if d.onOverflow != nil {
				d.onOverflow()
			}
		}
	}

	if pOutput != nil {
		d.playbackMu.Lock()
		n := copy(pOutput, SamplesToBytes(d.playbackBuf))
		consumed := n / 2
		d.playbackBuf = d.playbackBuf[consumed:]
		d.playbackMu.Unlock()

		for i := n; i < len(pOutput); i++ {
			pOutput[i] = 0
		}
	}
}

// Start begins capture/playback.
func (d *Device) Start() error {
	if err := d.device.Start(); err != nil {
		return fmt.Errorf("%w: %v", orchestrator.ErrDeviceFailure, err)
	}
	return nil
}

// ReadFrame blocks until a captured frame is available or done is closed.
func (d *Device) ReadFrame(done <-chan struct{}) (orchestrator.AudioFrame, bool) {
	select {
	case f := <-d.frames:
		return f, true
	case <-done:
		return orchestrator.AudioFrame{}, false
	}
}

// Play replaces the playback queue with buf, discarding anything queued
// and not yet consumed (used for interrupt/barge-in handling, C7).
func (d *Device) Play(buf orchestrator.AudioBuffer) {
	d.playbackMu.Lock()
	d.playbackBuf = append([]int16(nil), buf...)
	d.playbackMu.Unlock()
}

// AppendPlayback appends buf to whatever is currently queued for
// playback, for streaming TTS that delivers audio in chunks.
func (d *Device) AppendPlayback(buf orchestrator.AudioBuffer) {
	d.playbackMu.Lock()
	d.playbackBuf = append(d.playbackBuf, buf...)
	d.playbackMu.Unlock()
}

// IsPlaybackComplete reports whether the playback queue has drained.
func (d *Device) IsPlaybackComplete() bool {
	d.playbackMu.Lock()
	defer d.playbackMu.Unlock()
	return len(d.playbackBuf) == 0
}

// StopPlayback discards anything queued for playback immediately.
func (d *Device) StopPlayback() {
	d.playbackMu.Lock()
	d.playbackBuf = nil
	d.playbackMu.Unlock()
}

// FlushInputQueue drains any frames buffered ahead of a fresh listening
// window, so stale pre-transmit audio never leaks into the next segment.
func (d *Device) FlushInputQueue() {
	for {
		select {
		case <-d.frames:
		default:
			return
		}
	}
}

// OnOverflow registers fn to be called (from the malgo callback goroutine)
// each time a captured frame is dropped, e.g. to drive
// metrics.Registry.IncInputOverflow.
func (d *Device) OnOverflow(fn func()) {
	d.onOverflow = fn
}

// Overflows returns the number of times a captured frame was dropped
// because the input queue was full.
func (d *Device) Overflows() uint64 {
	d.overflowMu.Lock()
	defer d.overflowMu.Unlock()
	return d.overflows
}

// Close stops the device and releases the malgo context.
func (d *Device) Close() {
	if d.device != nil {
		d.device.Uninit()
	}
	if d.mctx != nil {
		d.mctx.Uninit()
	}
}
