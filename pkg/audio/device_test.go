package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

func TestFakeDeviceDropsOldestOnOverflow(t *testing.T) {
	dev := NewFakeDevice(2)
	dev.FeedFrame(orchestrator.AudioFrame{1})
	dev.FeedFrame(orchestrator.AudioFrame{2})
	dev.FeedFrame(orchestrator.AudioFrame{3})

	assert.Equal(t, uint64(1), dev.Overflows())

	frame, ok := dev.ReadFrame(nil)
	assert.True(t, ok)
	assert.Equal(t, orchestrator.AudioFrame{2}, frame)

	frame, ok = dev.ReadFrame(nil)
	assert.True(t, ok)
	assert.Equal(t, orchestrator.AudioFrame{3}, frame)

	_, ok = dev.ReadFrame(nil)
	assert.False(t, ok)
}

func TestFakeDevicePlaybackLifecycle(t *testing.T) {
	dev := NewFakeDevice(0)
	assert.True(t, dev.IsPlaybackComplete())

	dev.Play(orchestrator.AudioBuffer{1, 2, 3})
	assert.False(t, dev.IsPlaybackComplete())

	dev.AppendPlayback(orchestrator.AudioBuffer{4, 5})
	out := dev.DrainPlayback()
	assert.Equal(t, orchestrator.AudioBuffer{1, 2, 3, 4, 5}, out)
	assert.True(t, dev.IsPlaybackComplete())
}

func TestFakeDeviceStopPlaybackDiscardsQueue(t *testing.T) {
	dev := NewFakeDevice(0)
	dev.Play(orchestrator.AudioBuffer{1, 2, 3})
	dev.StopPlayback()

	assert.True(t, dev.IsPlaybackComplete())
	assert.Equal(t, 1, dev.StopCount())
}

func TestFakeDeviceFlushInputQueue(t *testing.T) {
	dev := NewFakeDevice(0)
	dev.FeedFrame(orchestrator.AudioFrame{1})
	dev.FeedFrame(orchestrator.AudioFrame{2})
	dev.FlushInputQueue()

	_, ok := dev.ReadFrame(nil)
	assert.False(t, ok)
}
