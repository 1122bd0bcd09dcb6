package tx

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

func TestPreparePrependsPreroll(t *testing.T) {
	c := New(16000, PrerollConfig{PrerollMS: 100, PrerollAmplitude: 0.6, PrerollFreq: 440}, Config{})
	speech := make(orchestrator.AudioBuffer, 1600)
	out := c.Prepare(speech)

	prerollSamples := 16000 * 100 / 1000
	assert.Equal(t, prerollSamples+len(speech), len(out))
	assert.Equal(t, c.Preroll(), out[:prerollSamples])
}

func TestPrepareAppendsEndToneWhenEnabled(t *testing.T) {
	c := New(16000, PrerollConfig{PrerollMS: 50}, Config{EnableEndChirp: true})
	speech := make(orchestrator.AudioBuffer, 800)
	out := c.Prepare(speech)

	prerollSamples := 16000 * 50 / 1000
	endToneSamples := 16000 * 100 / 1000
	assert.Equal(t, prerollSamples+len(speech)+endToneSamples, len(out))
}

func TestPrepareTruncatesAtMaxTransmitMS(t *testing.T) {
	c := New(16000, PrerollConfig{PrerollMS: 0}, Config{MaxTransmitMS: 10})
	speech := make(orchestrator.AudioBuffer, 16000) // 1s, far over the 10ms cap
	out := c.Prepare(speech)

	maxSamples := 16000 * 10 / 1000
	prerollSamples := 16000 * 350 / 1000 // default preroll since PrerollMS<=0 falls back
	assert.Equal(t, prerollSamples+maxSamples, len(out))
}

func TestPrerollCachedAcrossCalls(t *testing.T) {
	c := New(16000, PrerollConfig{PrerollMS: 50}, Config{})
	first := c.Preroll()
	_ = c.Prepare(make(orchestrator.AudioBuffer, 10))
	assert.Equal(t, first, c.Preroll())
}

type fakeDevice struct {
	played  orchestrator.AudioBuffer
	stopped bool
}

func (f *fakeDevice) Play(buf orchestrator.AudioBuffer) { f.played = buf }
func (f *fakeDevice) IsPlaybackComplete() bool          { return len(f.played) == 0 }
func (f *fakeDevice) StopPlayback()                     { f.stopped = true; f.played = nil }

func TestTransmitAndStop(t *testing.T) {
	c := New(16000, PrerollConfig{}, Config{})
	dev := &fakeDevice{}
	buf := orchestrator.AudioBuffer{1, 2, 3}

	c.Transmit(dev, buf)
	assert.Equal(t, buf, dev.played)
	assert.False(t, c.IsComplete(dev))

	c.Stop(dev)
	assert.True(t, dev.stopped)
	assert.True(t, c.IsComplete(dev))
}
