package tts

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/radioagent/radioagent/pkg/audio"
	"github.com/radioagent/radioagent/pkg/orchestrator"
)

// LokutorTTS streams synthesized speech over a persistent websocket
// connection. Voice/language are set per instance and can be changed for
// subsequent calls with SetVoice/SetLanguage.
type LokutorTTS struct {
	apiKey string
	host   string
	scheme string
	voice  string
	lang   string

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewLokutorTTS(apiKey string) *LokutorTTS {
	return &LokutorTTS{
		apiKey: apiKey,
		host:   "api.lokutor.com",
		scheme: "wss",
		voice:  "default",
	}
}

// SetVoice changes the voice used for subsequent Synthesize calls.
func (t *LokutorTTS) SetVoice(voice string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.voice = voice
}

// SetLanguage changes the language used for subsequent Synthesize calls.
func (t *LokutorTTS) SetLanguage(lang string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lang = lang
}

func (t *LokutorTTS) getConn(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return t.conn, nil
	}

	scheme := t.scheme
	if scheme == "" {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: t.host, Path: "/ws", RawQuery: "api_key=" + t.apiKey}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to lokutor: %v", orchestrator.ErrTTSFailed, err)
	}

	t.conn = conn
	return conn, nil
}

func (t *LokutorTTS) Synthesize(ctx context.Context, text string) (orchestrator.AudioBuffer, error) {
	var out orchestrator.AudioBuffer
	err := t.StreamSynthesize(ctx, text, func(chunk orchestrator.AudioBuffer) error {
		out = append(out, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *LokutorTTS) StreamSynthesize(ctx context.Context, text string, onChunk func(orchestrator.AudioBuffer) error) error {
	conn, err := t.getConn(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	voice, lang := t.voice, t.lang
	req := map[string]interface{}{
		"text":    text,
		"voice":   voice,
		"lang":    lang,
		"speed":   1.05,
		"steps":   5,
		"version": "versa-1.0",
	}
	t.mu.Unlock()

	if err := wsjson.Write(ctx, conn, req); err != nil {
		t.mu.Lock()
		t.conn = nil
		t.mu.Unlock()
		conn.Close(websocket.StatusAbnormalClosure, "failed to write json")
		return fmt.Errorf("%w: failed to send synthesis request: %v", orchestrator.ErrTTSFailed, err)
	}

	for {
		messageType, payload, err := conn.Read(ctx)
		if err != nil {
			t.mu.Lock()
			t.conn = nil
			t.mu.Unlock()
			conn.Close(websocket.StatusAbnormalClosure, "failed to read")
			return fmt.Errorf("%w: failed to read from lokutor: %v", orchestrator.ErrTTSFailed, err)
		}

		switch messageType {
		case websocket.MessageBinary:
			if err := onChunk(audio.BytesToSamples(payload)); err != nil {
				return err
			}
		case websocket.MessageText:
			msg := string(payload)
			if msg == "EOS" {
				return nil
			}
			if len(msg) >= 4 && msg[:4] == "ERR:" {
				return fmt.Errorf("%w: lokutor error: %s", orchestrator.ErrTTSFailed, msg)
			}
		}
	}
}

func (t *LokutorTTS) Name() string {
	return "lokutor"
}

// Warmup opens the websocket connection ahead of the first Synthesize
// call, so initial transcript-to-speech latency doesn't include the
// handshake.
func (t *LokutorTTS) Warmup(ctx context.Context) error {
	_, err := t.getConn(ctx)
	return err
}

func (t *LokutorTTS) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		err := t.conn.Close(websocket.StatusNormalClosure, "")
		t.conn = nil
		return err
	}
	return nil
}
