package audio

import (
	"sync"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

// FakeDevice is an in-memory Device double for tests: FeedFrame stands in
// for a mic callback, Play/AppendPlayback/IsPlaybackComplete/StopPlayback
// behave like the real malgo-backed Device but without any audio I/O.
type FakeDevice struct {
	mu          sync.Mutex
	frames      []orchestrator.AudioFrame
	playbackBuf []int16
	stopped     int
	overflows   uint64
	queueCap    int
}

// NewFakeDevice builds a FakeDevice with the given capture queue capacity
// (0 means unbounded).
func NewFakeDevice(queueCap int) *FakeDevice {
	return &FakeDevice{queueCap: queueCap}
}

// FeedFrame queues a frame as if captured from the microphone, applying
// the same drop-oldest overflow behavior as Device.
func (f *FakeDevice) FeedFrame(frame orchestrator.AudioFrame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queueCap > 0 && len(f.frames) >= f.queueCap {
		f.frames = f.frames[1:]
		f.overflows++
	}
	f.frames = append(f.frames, frame)
}

// ReadFrame pops the oldest queued frame, or returns false if none queued.
func (f *FakeDevice) ReadFrame(done <-chan struct{}) (orchestrator.AudioFrame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return orchestrator.AudioFrame{}, false
	}
	frame := f.frames[0]
	f.frames = f.frames[1:]
	return frame, true
}

func (f *FakeDevice) Play(buf orchestrator.AudioBuffer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playbackBuf = append([]int16(nil), buf...)
}

func (f *FakeDevice) AppendPlayback(buf orchestrator.AudioBuffer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playbackBuf = append(f.playbackBuf, buf...)
}

func (f *FakeDevice) IsPlaybackComplete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.playbackBuf) == 0
}

func (f *FakeDevice) StopPlayback() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playbackBuf = nil
	f.stopped++
}

func (f *FakeDevice) FlushInputQueue() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

func (f *FakeDevice) Overflows() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overflows
}

// DrainPlayback returns and clears everything currently queued for
// playback, for test assertions.
func (f *FakeDevice) DrainPlayback() orchestrator.AudioBuffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.playbackBuf
	f.playbackBuf = nil
	return out
}

// StopCount reports how many times StopPlayback was called.
func (f *FakeDevice) StopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}
