package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radioagent/radioagent/pkg/orchestrator"
	"github.com/radioagent/radioagent/pkg/pipeline"
)

type fakeDevice struct {
	frames   []orchestrator.AudioFrame
	playing  orchestrator.AudioBuffer
	stopped  bool
	flushed  int
	complete bool
}

func (f *fakeDevice) ReadFrame(done <-chan struct{}) (orchestrator.AudioFrame, bool) {
	if len(f.frames) == 0 {
		return nil, false
	}
	fr := f.frames[0]
	f.frames = f.frames[1:]
	return fr, true
}
func (f *fakeDevice) Play(buf orchestrator.AudioBuffer) { f.playing = buf; f.complete = false }
func (f *fakeDevice) IsPlaybackComplete() bool          { return f.complete }
func (f *fakeDevice) StopPlayback()                     { f.stopped = true; f.playing = nil; f.complete = true }
func (f *fakeDevice) FlushInputQueue()                  { f.flushed++ }

type scriptedDetector struct {
	events []orchestrator.VADEvent
	idx    int
	state  orchestrator.VADState
	seg    orchestrator.AudioBuffer
}

func (d *scriptedDetector) Process(frame orchestrator.AudioFrame) (orchestrator.VADEvent, error) {
	if d.idx >= len(d.events) {
		return orchestrator.VADEvent{Type: orchestrator.VADEventNone}, nil
	}
	ev := d.events[d.idx]
	d.idx++
	switch ev.Type {
	case orchestrator.VADEventSpeechStart:
		d.state = orchestrator.VADStateSpeech
	case orchestrator.VADEventSpeechEnd:
		d.state = orchestrator.VADStateSilence
	}
	return ev, nil
}
func (d *scriptedDetector) FinalizeSegment() orchestrator.AudioBuffer { return d.seg }
func (d *scriptedDetector) Reset()                                    { d.state = orchestrator.VADStateSilence }
func (d *scriptedDetector) State() orchestrator.VADState              { return d.state }

type fakePipeline struct {
	result pipeline.Result
}

func (f *fakePipeline) Run(ctx context.Context, utterance orchestrator.AudioBuffer, id string) pipeline.Result {
	return f.result
}

func TestLegacyPipelineTransmitsOnResponse(t *testing.T) {
	dev := &fakeDevice{}
	det := &scriptedDetector{events: []orchestrator.VADEvent{
		{Type: orchestrator.VADEventSpeechStart},
		{Type: orchestrator.VADEventSpeechEnd},
	}}
	pipe := &fakePipeline{result: pipeline.Result{Responded: true, Audio: orchestrator.AudioBuffer{1, 2, 3}}}

	a := New(Config{WakeWordEnabled: false}, dev, det, pipe, 16000, nil)

	a.tick(context.Background(), orchestrator.AudioFrame{})
	assert.Equal(t, orchestrator.StateReceivingSpeech, a.State().Kind)

	a.tick(context.Background(), orchestrator.AudioFrame{})
	assert.Equal(t, orchestrator.StateTransmitting, a.State().Kind)
	assert.Equal(t, orchestrator.AudioBuffer{1, 2, 3}, dev.playing)

	dev.complete = true
	a.tick(context.Background(), orchestrator.AudioFrame{})
	assert.Equal(t, orchestrator.StateIdleListening, a.State().Kind)
}

func TestWakeWordEnabledWaitsForChannelClear(t *testing.T) {
	dev := &fakeDevice{}
	det := &scriptedDetector{events: []orchestrator.VADEvent{
		{Type: orchestrator.VADEventSpeechStart},
		{Type: orchestrator.VADEventSpeechEnd},
	}}
	pipe := &fakePipeline{result: pipeline.Result{Responded: true, Audio: orchestrator.AudioBuffer{9}}}

	a := New(Config{WakeWordEnabled: true, ChannelClearSilenceMS: 1}, dev, det, pipe, 16000, nil)

	a.tick(context.Background(), orchestrator.AudioFrame{}) // SpeechStart
	a.tick(context.Background(), orchestrator.AudioFrame{}) // SpeechEnd -> WaitingForChannelClear
	require.Equal(t, orchestrator.StateWaitingForChannelClear, a.State().Kind)
	require.NotNil(t, a.State().Pending)

	time.Sleep(2 * time.Millisecond)
	a.tick(context.Background(), orchestrator.AudioFrame{}) // channel_clear_elapsed -> Transmitting
	assert.Equal(t, orchestrator.StateTransmitting, a.State().Kind)
	assert.Equal(t, orchestrator.AudioBuffer{9}, dev.playing)
}

func TestWakeWordEnabledSpeechDuringWaitReturnsToReceiving(t *testing.T) {
	dev := &fakeDevice{}
	det := &scriptedDetector{events: []orchestrator.VADEvent{
		{Type: orchestrator.VADEventSpeechStart},
		{Type: orchestrator.VADEventSpeechEnd},
	}}
	pipe := &fakePipeline{result: pipeline.Result{Responded: true, Audio: orchestrator.AudioBuffer{9}}}

	a := New(Config{WakeWordEnabled: true, ChannelClearSilenceMS: 500}, dev, det, pipe, 16000, nil)
	a.tick(context.Background(), orchestrator.AudioFrame{})
	a.tick(context.Background(), orchestrator.AudioFrame{})
	require.Equal(t, orchestrator.StateWaitingForChannelClear, a.State().Kind)

	det.events = append(det.events, orchestrator.VADEvent{Type: orchestrator.VADEventSpeechStart})
	det.idx = len(det.events) - 1
	a.tick(context.Background(), orchestrator.AudioFrame{})

	assert.Equal(t, orchestrator.StateReceivingSpeech, a.State().Kind)
	assert.NotNil(t, a.State().Pending, "PendingResponse must be retained while re-receiving speech")
	assert.Nil(t, dev.playing, "must not transmit while channel is not clear")
}

func TestNoResponseReturnsToIdleAndFlushes(t *testing.T) {
	dev := &fakeDevice{}
	det := &scriptedDetector{events: []orchestrator.VADEvent{
		{Type: orchestrator.VADEventSpeechStart},
		{Type: orchestrator.VADEventSpeechEnd},
	}}
	pipe := &fakePipeline{result: pipeline.Result{Responded: false}}

	a := New(Config{WakeWordEnabled: true}, dev, det, pipe, 16000, nil)
	a.tick(context.Background(), orchestrator.AudioFrame{})
	a.tick(context.Background(), orchestrator.AudioFrame{})

	assert.Equal(t, orchestrator.StateIdleListening, a.State().Kind)
	assert.Equal(t, 1, dev.flushed)
}

func TestShortUtteranceDiscardedBeforePipelineRuns(t *testing.T) {
	dev := &fakeDevice{}
	det := &scriptedDetector{events: []orchestrator.VADEvent{
		{Type: orchestrator.VADEventSpeechStart},
		{Type: orchestrator.VADEventSpeechEnd},
	}}
	det.seg = orchestrator.AudioBuffer{1, 2, 3} // 3 samples at 16kHz: well under MinSpeechMS
	pipe := &fakePipeline{result: pipeline.Result{Responded: true, Audio: orchestrator.AudioBuffer{9}}}

	a := New(Config{WakeWordEnabled: false, MinSpeechMS: 200}, dev, det, pipe, 16000, nil)

	a.tick(context.Background(), orchestrator.AudioFrame{}) // SpeechStart
	a.tick(context.Background(), orchestrator.AudioFrame{}) // SpeechEnd -> too short, discard

	assert.Equal(t, orchestrator.StateIdleListening, a.State().Kind, "short utterance must be discarded, never reach Transmitting")
	assert.Equal(t, 1, dev.flushed)
	assert.Nil(t, dev.playing)
}

func TestGuardPeriodSuppressesVADAfterPlayback(t *testing.T) {
	dev := &fakeDevice{complete: true}
	det := &scriptedDetector{}
	pipe := &fakePipeline{}

	a := New(Config{WakeWordEnabled: false, PostPlaybackDelayMS: 1, VADGuardPeriodMS: 50}, dev, det, pipe, 16000, nil)
	a.setState(orchestrator.StateTransmitting, nil)
	a.tick(context.Background(), orchestrator.AudioFrame{}) // playback_complete -> IdleListening, guard starts

	assert.Equal(t, orchestrator.StateIdleListening, a.State().Kind)
	assert.True(t, a.inGuardPeriod())

	det.events = []orchestrator.VADEvent{{Type: orchestrator.VADEventSpeechStart}}
	a.tick(context.Background(), orchestrator.AudioFrame{})
	assert.Equal(t, orchestrator.StateIdleListening, a.State().Kind, "guard period must suppress the VAD event")
}
