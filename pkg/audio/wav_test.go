package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWavBuffer(t *testing.T) {
	samples := []int16{1, 2, 3, 4}
	wav := NewWavBuffer(samples, 44100)

	assert.Equal(t, "RIFF", string(wav[:4]))
	assert.Contains(t, string(wav), "WAVE")

	expectedLen := 44 + len(samples)*2
	assert.Len(t, wav, expectedLen)
}

func TestSamplesBytesRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 12345}
	got := BytesToSamples(SamplesToBytes(samples))
	assert.Equal(t, samples, got)
}
