// Package recorder implements the Session Recorder external
// collaborator (spec.md §6): a best-effort JSONL writer. Failures are
// logged and never propagate, per spec.md §7's error taxonomy.
package recorder

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

type record struct {
	Time  time.Time   `json:"time"`
	Kind  string      `json:"kind"`
	ID    string      `json:"id,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// JSONLRecorder appends one JSON object per record to a file, flushing
// after every write so a crash never loses a buffered record.
type JSONLRecorder struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	logger orchestrator.Logger
}

// Open creates (or appends to) the JSONL file at path.
func Open(path string, logger orchestrator.Logger) (*JSONLRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	return &JSONLRecorder{file: f, writer: bufio.NewWriter(f), logger: logger}, nil
}

func (r *JSONLRecorder) write(rec record) {
	rec.Time = time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	enc := json.NewEncoder(r.writer)
	if err := enc.Encode(rec); err != nil {
		r.logger.Error("recorder: encode failed", "kind", rec.Kind, "err", err)
		return
	}
	if err := r.writer.Flush(); err != nil {
		r.logger.Error("recorder: flush failed", "kind", rec.Kind, "err", err)
	}
}

func (r *JSONLRecorder) RecordUtterance(buf orchestrator.AudioBuffer, id string) {
	r.write(record{Kind: "utterance", ID: id, Data: map[string]int{"samples": len(buf)}})
}

func (r *JSONLRecorder) RecordTranscript(t orchestrator.Transcript, id string) {
	r.write(record{Kind: "transcript", ID: id, Data: t})
}

func (r *JSONLRecorder) RecordLLMPrompt(prompt string, id string) {
	r.write(record{Kind: "llm_prompt", ID: id, Data: prompt})
}

func (r *JSONLRecorder) RecordLLMResponse(response string, id string) {
	r.write(record{Kind: "llm_response", ID: id, Data: response})
}

func (r *JSONLRecorder) RecordTTSOutput(buf orchestrator.AudioBuffer, id string) {
	r.write(record{Kind: "tts_output", ID: id, Data: map[string]int{"samples": len(buf)}})
}

func (r *JSONLRecorder) RecordEvent(eventType string, data interface{}) {
	r.write(record{Kind: "event:" + eventType, Data: data})
}

// Close flushes and closes the underlying file.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writer.Flush(); err != nil {
		return err
	}
	return r.file.Close()
}
