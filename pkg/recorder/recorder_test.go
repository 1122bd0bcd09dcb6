package recorder

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radioagent/radioagent/pkg/orchestrator"
)

func TestJSONLRecorderWritesOneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")

	r, err := Open(path, nil)
	require.NoError(t, err)

	r.RecordTranscript(orchestrator.Transcript{Text: "roger"}, "utt-1")
	r.RecordLLMPrompt("hello", "utt-1")
	r.RecordEvent("state_change", map[string]string{"to": "Transmitting"})
	require.NoError(t, r.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	assert.Len(t, lines, 3)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "transcript", first["kind"])
	assert.Equal(t, "utt-1", first["id"])
}
