// Package config loads and validates the structured configuration
// described in spec.md §6: a JSON file mirroring each component's
// parameter group, plus .env/environment overrides for API keys,
// grounded on the teacher's cmd/agent/main.go (godotenv.Load then
// os.Getenv provider/key selection).
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

type AudioConfig struct {
	InputDevice  string `json:"input_device"`
	OutputDevice string `json:"output_device"`
	SampleRate   int    `json:"sample_rate"`
	FrameSizeMS  int    `json:"frame_size_ms"`
}

type VADConfig struct {
	Threshold            float64 `json:"threshold"`
	TrueSilenceThreshold  float64 `json:"true_silence_threshold"`
	EndSilenceMS         int     `json:"end_silence_ms"`
	MinSpeechMS          int     `json:"min_speech_ms"`
	HangoverMS           int     `json:"hangover_ms"`
	PauseToleranceMS     int     `json:"pause_tolerance_ms"`
	PreSpeechBufferMS    int     `json:"pre_speech_buffer_ms"`
	HysteresisRatio      float64 `json:"hysteresis_ratio"`
	DebounceFrames       int     `json:"debounce_frames"`
	AdaptiveThreshold    bool    `json:"adaptive_threshold"`
	NoiseFloorAlpha      float64 `json:"noise_floor_alpha"`
	AdaptiveMultiplier   float64 `json:"adaptive_multiplier"`
	AdaptiveMinThreshold float64 `json:"adaptive_min_threshold"`
	AdaptiveMaxThreshold float64 `json:"adaptive_max_threshold"`
}

type TranscriptGateConfig struct {
	MinChars      int      `json:"min_chars"`
	MinTokens     int      `json:"min_tokens"`
	MinConfidence float64  `json:"min_confidence"`
	BlankSentinel string   `json:"blank_sentinel"`
	NoisePatterns []string `json:"noise_patterns"`
}

type TranscriptBlankBehaviorConfig struct {
	Behavior       string `json:"behavior"`
	SayAgainPhrase string `json:"say_again_phrase"`
}

type STTConfig struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	Language      string `json:"language"`
	BlankSentinel string `json:"blank_sentinel"`
	UseGPU        bool   `json:"use_gpu"`
}

type FastPathEntryConfig struct {
	Keyword string `json:"keyword"`
	Reply   string `json:"reply"`
}

type RouterConfig struct {
	RepairConfidenceThreshold float64               `json:"repair_confidence_threshold"`
	RepairPhrase              string                `json:"repair_phrase"`
	FastPath                  []FastPathEntryConfig `json:"fast_path"`
}

type LLMConfig struct {
	Provider         string   `json:"provider"`
	Endpoint         string   `json:"endpoint"`
	ModelName        string   `json:"model_name"`
	TimeoutMS        int      `json:"timeout_ms"`
	MaxTokens        int      `json:"max_tokens"`
	Temperature      float64  `json:"temperature"`
	StopSequences    []string `json:"stop_sequences"`
	SystemPrompt     string   `json:"system_prompt"`
	AgentPersona     string   `json:"agent_persona"`
	ResponseLanguage string   `json:"response_language"`
	FallbackPhrase   string   `json:"fallback_phrase"`
}

type TTSConfig struct {
	Provider       string  `json:"provider"`
	VoicePath      string  `json:"voice_path"`
	VoiceModelsDir string  `json:"voice_models_dir"`
	PrerollMS      int     `json:"preroll_ms"`
	PrerollAmp     float64 `json:"preroll_amplitude"`
	PrerollFreq    float64 `json:"preroll_freq"`
	OutputGain     float64 `json:"output_gain"`
}

type TXConfig struct {
	MaxTransmitMS         int  `json:"max_transmit_ms"`
	ChannelClearSilenceMS int  `json:"channel_clear_silence_ms"`
	EnableStartChirp      bool `json:"enable_start_chirp"`
	EnableEndChirp        bool `json:"enable_end_chirp"`
	EnableBargeIn         bool `json:"enable_barge_in"`
}

type WakeWordConfig struct {
	Enabled bool `json:"enabled"`
}

// Config is the complete structured configuration of spec.md §6.
type Config struct {
	Audio                   AudioConfig                   `json:"audio"`
	VAD                     VADConfig                     `json:"vad"`
	TranscriptGate          TranscriptGateConfig          `json:"transcript_gate"`
	TranscriptBlankBehavior TranscriptBlankBehaviorConfig `json:"transcript_blank_behavior"`
	STT                     STTConfig                     `json:"stt"`
	Router                  RouterConfig                  `json:"router"`
	LLM                     LLMConfig                     `json:"llm"`
	TTS                     TTSConfig                     `json:"tts"`
	TX                      TXConfig                      `json:"tx"`
	WakeWord                WakeWordConfig                `json:"wake_word"`
	PersonaCatalogPath      string                        `json:"persona_catalog_path"`
	SessionLogPath          string                        `json:"session_log_path"`
	LogLevel                string                        `json:"log_level"`
}

// Default returns the configuration's zero-ish defaults, matching the
// parameter defaults spec.md names (§4.2, §4.6, §4.7) where the JSON
// file omits a field.
func Default() Config {
	return Config{
		Audio: AudioConfig{SampleRate: 16000, FrameSizeMS: 20, InputDevice: "default", OutputDevice: "default"},
		VAD: VADConfig{
			Threshold:         0.02,
			EndSilenceMS:      600,
			MinSpeechMS:       200,
			HangoverMS:        300,
			PauseToleranceMS:  400,
			PreSpeechBufferMS: 300,
			HysteresisRatio:   0.5,
			DebounceFrames:    1,
			NoiseFloorAlpha:   0.05,
		},
		TranscriptGate: TranscriptGateConfig{
			MinChars:      2,
			BlankSentinel: "[BLANK_AUDIO]",
			NoisePatterns: []string{"static", "silence", "buzz", "beep"},
		},
		TranscriptBlankBehavior: TranscriptBlankBehaviorConfig{Behavior: "none"},
		Router: RouterConfig{
			FastPath: []FastPathEntryConfig{
				{Keyword: "roger", Reply: "roger."},
				{Keyword: "affirmative", Reply: "affirmative."},
				{Keyword: "stand by", Reply: "stand by."},
			},
		},
		LLM: LLMConfig{TimeoutMS: 30000, MaxTokens: 512, FallbackPhrase: "Stand by."},
		TTS: TTSConfig{PrerollMS: 350, PrerollAmp: 0.55, PrerollFreq: 440, OutputGain: 1.0},
		TX:  TXConfig{ChannelClearSilenceMS: 500},
		WakeWord: WakeWordConfig{Enabled: true},
		PersonaCatalogPath: "config/personas.json",
		SessionLogPath:     "session.jsonl",
		LogLevel:           "info",
	}
}

// Load reads a JSON config file at path, merging it over Default(), then
// loads .env (if present) into the process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: read config: %v", orchestrator.ErrConfigInvalid, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse config: %v", orchestrator.ErrConfigInvalid, err)
	}

	_ = godotenv.Load()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields spec.md treats as fatal if missing/invalid.
func (c Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("%w: audio.sample_rate must be positive", orchestrator.ErrConfigInvalid)
	}
	if c.Audio.FrameSizeMS <= 0 {
		return fmt.Errorf("%w: audio.frame_size_ms must be positive", orchestrator.ErrConfigInvalid)
	}
	if c.VAD.Threshold <= 0 || c.VAD.Threshold > 1 {
		return fmt.Errorf("%w: vad.threshold must be in (0,1]", orchestrator.ErrConfigInvalid)
	}
	switch c.TranscriptBlankBehavior.Behavior {
	case "none", "say_again", "beep":
	default:
		return fmt.Errorf("%w: transcript_blank_behavior.behavior %q invalid", orchestrator.ErrConfigInvalid, c.TranscriptBlankBehavior.Behavior)
	}
	if c.STT.Provider == "" {
		return fmt.Errorf("%w: stt.provider is required", orchestrator.ErrConfigInvalid)
	}
	if c.LLM.Provider == "" {
		return fmt.Errorf("%w: llm.provider is required", orchestrator.ErrConfigInvalid)
	}
	if c.TTS.Provider == "" {
		return fmt.Errorf("%w: tts.provider is required", orchestrator.ErrConfigInvalid)
	}
	return nil
}
