// Command radioagent is the CLI entrypoint: it loads configuration,
// wires the audio device, VAD, transcript gate, router, TX controller,
// response pipeline, and agent state machine together, then runs the
// agent loop until interrupted.
//
// Grounded on team-hashing-lokutor-orchestrator's cmd/agent/main.go
// (godotenv.Load, env-var-driven provider selection, malgo context/device
// setup, signal-driven shutdown), generalized from a single hardcoded
// wiring into the config-driven assembly SPEC_FULL.md's CLI section
// describes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gen2brain/malgo"

	"github.com/radioagent/radioagent/pkg/agent"
	"github.com/radioagent/radioagent/pkg/audio"
	"github.com/radioagent/radioagent/pkg/config"
	"github.com/radioagent/radioagent/pkg/gate"
	"github.com/radioagent/radioagent/pkg/logging"
	"github.com/radioagent/radioagent/pkg/metrics"
	"github.com/radioagent/radioagent/pkg/orchestrator"
	"github.com/radioagent/radioagent/pkg/persona"
	"github.com/radioagent/radioagent/pkg/pipeline"
	llmProvider "github.com/radioagent/radioagent/pkg/providers/llm"
	sttProvider "github.com/radioagent/radioagent/pkg/providers/stt"
	ttsProvider "github.com/radioagent/radioagent/pkg/providers/tts"
	"github.com/radioagent/radioagent/pkg/recorder"
	"github.com/radioagent/radioagent/pkg/router"
	"github.com/radioagent/radioagent/pkg/tx"
	"github.com/radioagent/radioagent/pkg/vad"
)

func main() {
	listDevices := flag.Bool("list-devices", false, "list available audio capture/playback devices and exit")
	flag.Parse()

	if *listDevices {
		printDevices()
		return
	}

	configPath := "config/config.json"
	if flag.NArg() > 0 {
		configPath = flag.Arg(0)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "radioagent: config error:", err)
		os.Exit(1)
	}

	logger := logging.New(logging.ParseLevel(cfg.LogLevel))
	metricsReg := metrics.NewRegistry()

	stt, err := buildSTT(cfg)
	if err != nil {
		logger.Error("startup: stt provider", "err", err)
		os.Exit(1)
	}
	llm, err := buildLLM(cfg)
	if err != nil {
		logger.Error("startup: llm provider", "err", err)
		os.Exit(1)
	}
	tts, err := buildTTS(cfg)
	if err != nil {
		logger.Error("startup: tts provider", "err", err)
		os.Exit(1)
	}

	var catalog *persona.Catalog
	if cfg.PersonaCatalogPath != "" {
		catalog, err = persona.LoadCatalog(cfg.PersonaCatalogPath)
		if err != nil {
			logger.Warn("startup: persona catalog unavailable, persona changes will fail", "err", err)
		}
	}
	current := persona.NewCurrent(cfg.LLM.SystemPrompt, cfg.LLM.ResponseLanguage)
	if cfg.LLM.AgentPersona != "" && catalog != nil {
		if p, ok := catalog.Lookup(cfg.LLM.AgentPersona); ok {
			current.Apply(p)
		}
	}

	var rec orchestrator.SessionRecorder = orchestrator.NoOpRecorder{}
	if cfg.SessionLogPath != "" {
		jr, err := recorder.Open(cfg.SessionLogPath, logger)
		if err != nil {
			logger.Warn("startup: session recorder unavailable", "err", err)
		} else {
			rec = jr
			defer jr.Close()
		}
	}

	dev, err := audio.New(audio.Config{
		SampleRate:      cfg.Audio.SampleRate,
		FrameSizeMS:     cfg.Audio.FrameSizeMS,
		PlaybackOutGain: cfg.TTS.OutputGain,
	}, logger)
	if err != nil {
		logger.Error("startup: audio device", "err", err)
		os.Exit(1)
	}
	defer dev.Close()
	dev.OnOverflow(metricsReg.IncInputOverflow)

	txc := tx.New(cfg.Audio.SampleRate, tx.PrerollConfig{
		PrerollMS:        cfg.TTS.PrerollMS,
		PrerollAmplitude: cfg.TTS.PrerollAmp,
		PrerollFreq:      cfg.TTS.PrerollFreq,
		OutputGain:       cfg.TTS.OutputGain,
	}, tx.Config{
		MaxTransmitMS:         cfg.TX.MaxTransmitMS,
		ChannelClearSilenceMS: cfg.TX.ChannelClearSilenceMS,
		EnableStartChirp:      cfg.TX.EnableStartChirp,
		EnableEndChirp:        cfg.TX.EnableEndChirp,
	})

	detector := vad.New(vad.Config{
		SampleRate:           cfg.Audio.SampleRate,
		FrameMS:              cfg.Audio.FrameSizeMS,
		Threshold:            cfg.VAD.Threshold,
		HysteresisRatio:      cfg.VAD.HysteresisRatio,
		MinSpeechMS:          cfg.VAD.MinSpeechMS,
		EndSilenceMS:         cfg.VAD.EndSilenceMS,
		HangoverMS:           cfg.VAD.HangoverMS,
		PauseToleranceMS:     cfg.VAD.PauseToleranceMS,
		PreSpeechBufferMS:    cfg.VAD.PreSpeechBufferMS,
		MinConfirmedFrames:   cfg.VAD.DebounceFrames,
		AdaptiveThreshold:    cfg.VAD.AdaptiveThreshold,
		AdaptiveK:            cfg.VAD.AdaptiveMultiplier,
		MinAdaptiveThreshold: cfg.VAD.AdaptiveMinThreshold,
		MaxAdaptiveThreshold: cfg.VAD.AdaptiveMaxThreshold,
		NoiseFloorAlpha:      cfg.VAD.NoiseFloorAlpha,
		TrueSilenceThreshold: cfg.VAD.TrueSilenceThreshold,
	})
	var detectorForAgent orchestrator.Detector = metricsReg.InstrumentDetector(detector)

	fastPath := make([]router.FastPathEntry, 0, len(cfg.Router.FastPath))
	for _, e := range cfg.Router.FastPath {
		fastPath = append(fastPath, router.FastPathEntry{Keyword: e.Keyword, Reply: e.Reply})
	}

	pipe := pipeline.New(pipeline.Config{
		Language:        cfg.STT.Language,
		WakeWordEnabled: cfg.WakeWord.Enabled,
		LLMTimeoutMS:    cfg.LLM.TimeoutMS,
		LLMMaxTokens:    cfg.LLM.MaxTokens,
		FallbackPhrase:  cfg.LLM.FallbackPhrase,
		Gate: gate.Config{
			MinChars:      cfg.TranscriptGate.MinChars,
			MinTokens:     cfg.TranscriptGate.MinTokens,
			MinConfidence: cfg.TranscriptGate.MinConfidence,
			BlankSentinel: cfg.TranscriptGate.BlankSentinel,
			NoisePatterns: cfg.TranscriptGate.NoisePatterns,
		},
		BlankBehavior: gate.BlankBehaviorConfig{
			Behavior:       orchestrator.BlankBehavior(cfg.TranscriptBlankBehavior.Behavior),
			SayAgainPhrase: cfg.TranscriptBlankBehavior.SayAgainPhrase,
		},
		Router: router.Config{
			RepairConfidenceThreshold: cfg.Router.RepairConfidenceThreshold,
			RepairPhrase:              cfg.Router.RepairPhrase,
			FastPath:                  fastPath,
		},
	}, metricsReg.InstrumentTranscriber(stt), metricsReg.InstrumentLanguageModel(llm), metricsReg.InstrumentSpeaker(tts), txc, catalog, current, rec, logger)

	ag := agent.New(agent.Config{
		WakeWordEnabled:       cfg.WakeWord.Enabled,
		ChannelClearSilenceMS: cfg.TX.ChannelClearSilenceMS,
		EnableBargeIn:         cfg.TX.EnableBargeIn,
		MinSpeechMS:           cfg.VAD.MinSpeechMS,
	}, dev, detectorForAgent, pipe, cfg.Audio.SampleRate, logger)
	ag.OnStateChange(metricsReg.SetAgentState)

	if warmer, ok := tts.(orchestrator.Warmer); ok {
		if err := warmer.Warmup(context.Background()); err != nil {
			logger.Warn("startup: tts warmup failed", "err", err)
		}
	}

	if err := dev.Start(); err != nil {
		logger.Error("startup: audio device start", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown: signal received")
		cancel()
		close(done)
	}()

	logger.Info("radioagent started", "stt", stt.Name(), "llm", llm.Name(), "tts", tts.Name(), "wake_word", cfg.WakeWord.Enabled)
	ag.Run(ctx, done)
	logger.Info("radioagent stopped")
}

func buildSTT(cfg config.Config) (orchestrator.Transcriber, error) {
	switch cfg.STT.Provider {
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY must be set for openai STT")
		}
		model := cfg.STT.Model
		if model == "" {
			model = "whisper-1"
		}
		return sttProvider.NewOpenAISTT(key, model), nil
	case "deepgram":
		key := os.Getenv("DEEPGRAM_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("DEEPGRAM_API_KEY must be set for deepgram STT")
		}
		return sttProvider.NewDeepgramSTT(key), nil
	case "assemblyai":
		key := os.Getenv("ASSEMBLYAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ASSEMBLYAI_API_KEY must be set for assemblyai STT")
		}
		return sttProvider.NewAssemblyAISTT(key), nil
	case "groq", "":
		key := os.Getenv("GROQ_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("GROQ_API_KEY must be set for groq STT")
		}
		model := cfg.STT.Model
		if model == "" {
			model = "whisper-large-v3-turbo"
		}
		return sttProvider.NewGroqSTT(key, model), nil
	default:
		return nil, fmt.Errorf("unknown stt.provider %q", cfg.STT.Provider)
	}
}

func buildLLM(cfg config.Config) (orchestrator.LanguageModel, error) {
	switch cfg.LLM.Provider {
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY must be set for openai LLM")
		}
		return llmProvider.NewOpenAILLM(key, modelOrDefault(cfg.LLM.ModelName, "gpt-4o")), nil
	case "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY must be set for anthropic LLM")
		}
		return llmProvider.NewAnthropicLLM(key, modelOrDefault(cfg.LLM.ModelName, "claude-3-5-sonnet-20241022")), nil
	case "google":
		key := os.Getenv("GOOGLE_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY must be set for google LLM")
		}
		return llmProvider.NewGoogleLLM(key, modelOrDefault(cfg.LLM.ModelName, "gemini-1.5-flash")), nil
	case "groq", "":
		key := os.Getenv("GROQ_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("GROQ_API_KEY must be set for groq LLM")
		}
		return llmProvider.NewGroqLLM(key, modelOrDefault(cfg.LLM.ModelName, "llama-3.3-70b-versatile")), nil
	default:
		return nil, fmt.Errorf("unknown llm.provider %q", cfg.LLM.Provider)
	}
}

func buildTTS(cfg config.Config) (orchestrator.Speaker, error) {
	switch cfg.TTS.Provider {
	case "lokutor", "":
		key := os.Getenv("LOKUTOR_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("LOKUTOR_API_KEY must be set for lokutor TTS")
		}
		return ttsProvider.NewLokutorTTS(key), nil
	default:
		return nil, fmt.Errorf("unknown tts.provider %q", cfg.TTS.Provider)
	}
}

func modelOrDefault(model, def string) string {
	if model == "" {
		return def
	}
	return model
}

func printDevices() {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "radioagent: malgo init:", err)
		os.Exit(1)
	}
	defer mctx.Uninit()

	captures, err := mctx.Devices(malgo.Capture)
	if err != nil {
		fmt.Fprintln(os.Stderr, "radioagent: enumerate capture devices:", err)
		os.Exit(1)
	}
	fmt.Println("Capture devices:")
	for i, d := range captures {
		fmt.Printf("  [%d] %s\n", i, d.Name())
	}

	playbacks, err := mctx.Devices(malgo.Playback)
	if err != nil {
		fmt.Fprintln(os.Stderr, "radioagent: enumerate playback devices:", err)
		os.Exit(1)
	}
	fmt.Println("Playback devices:")
	for i, d := range playbacks {
		fmt.Printf("  [%d] %s\n", i, d.Name())
	}
}
