package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	cfg.STT.Provider = "groq"
	cfg.LLM.Provider = "groq"
	cfg.TTS.Provider = "lokutor"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsMissingProviders(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadBlankBehavior(t *testing.T) {
	cfg := Default()
	cfg.STT.Provider, cfg.LLM.Provider, cfg.TTS.Provider = "groq", "groq", "lokutor"
	cfg.TranscriptBlankBehavior.Behavior = "explode"
	assert.Error(t, cfg.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"stt": {"provider": "groq"},
		"llm": {"provider": "groq", "max_tokens": 256},
		"tts": {"provider": "lokutor"},
		"wake_word": {"enabled": false}
	}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "groq", cfg.STT.Provider)
	assert.Equal(t, 256, cfg.LLM.MaxTokens)
	assert.False(t, cfg.WakeWord.Enabled)
	// fields not present in the file keep Default()'s values.
	assert.Equal(t, 16000, cfg.Audio.SampleRate)
	assert.Equal(t, 350, cfg.TTS.PrerollMS)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
