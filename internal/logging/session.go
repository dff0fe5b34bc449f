package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SessionLog appends one JSON line per LLM interaction to
// logs/{timestamp}/session.jsonl, per spec §6.
type SessionLog struct {
	mu   sync.Mutex
	path string
}

// SessionLogEntry is one recorded LLM interaction.
type SessionLogEntry struct {
	Timestamp        time.Time `json:"timestamp"`
	Phase            string    `json:"phase"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	CacheHit         bool      `json:"cache_hit"`
	DurationMs       int64     `json:"duration_ms"`
	Error            string    `json:"error,omitempty"`
}

// NewSessionLog opens (creating parents as needed) logs/{timestamp}/session.jsonl
// under logsRoot.
func NewSessionLog(logsRoot string) (*SessionLog, error) {
	dir := filepath.Join(logsRoot, time.Now().Format("20060102-150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &SessionLog{path: filepath.Join(dir, "session.jsonl")}, nil
}

// Append writes entry as one JSON line, flushing before returning.
func (s *SessionLog) Append(entry SessionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = f.Write(line)
	return err
}
