package audio

import (
	"bytes"
	"encoding/binary"
)

// NewWavBuffer wraps 16-bit mono PCM samples in a RIFF/WAVE container at
// sampleRate. Used by STT adapters that require a WAV container rather
// than raw PCM over the wire.
func NewWavBuffer(samples []int16, sampleRate int) []byte {
	pcm := SamplesToBytes(samples)

	buf := new(bytes.Buffer)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))           // fmt chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))            // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1))            // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))   // sample rate
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(buf, binary.LittleEndian, uint16(16))           // bits per sample

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

// SamplesToBytes converts signed 16-bit samples to little-endian PCM bytes.
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(uint16(s))
		out[i*2+1] = byte(uint16(s) >> 8)
	}
	return out
}

// BytesToSamples converts little-endian 16-bit PCM bytes to samples.
func BytesToSamples(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8)
	}
	return out
}
