package blueprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// nextPhase is the fixed resume map (spec §4.13).
var nextPhase = map[string]string{
	"planning":   "scout",
	"scout":      "architect",
	"architect":  "builder",
	"builder":    "validation",
	"validation": "complete",
}

// NextPhase returns the phase that follows current, or "" if current is
// terminal or unrecognized.
func NextPhase(current string) string { return nextPhase[current] }

// Checkpoint is one phase's durable snapshot (spec §4.13).
type Checkpoint struct {
	Phase     string          `json:"phase"`
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// CheckpointStore is the per-session checkpoint directory under
// checkpoints/sessions/{session_id}/, one JSON per phase named
// {phase}_{timestamp}.json plus a latest.json pointer (spec §4.13).
type CheckpointStore struct {
	root string // checkpoints/sessions
}

// NewCheckpointStore roots checkpoints under checkpointsRoot/sessions.
func NewCheckpointStore(checkpointsRoot string) *CheckpointStore {
	return &CheckpointStore{root: filepath.Join(checkpointsRoot, "sessions")}
}

func (c *CheckpointStore) sessionDir(sessionID string) string {
	return filepath.Join(c.root, sessionID)
}

// Save writes {phase}_{timestamp}.json and refreshes latest.json for the
// session (spec §4.13, §5: "no operation returns before its side effects
// are durable").
func (c *CheckpointStore) Save(sessionID, phase string, data any) error {
	dir := c.sessionDir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("blueprint: creating checkpoint dir: %w", err)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("blueprint: encoding checkpoint data: %w", err)
	}

	cp := Checkpoint{Phase: phase, SessionID: sessionID, Timestamp: time.Now(), Data: raw}
	encoded, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("blueprint: encoding checkpoint: %w", err)
	}

	name := fmt.Sprintf("%s_%d.json", phase, cp.Timestamp.UnixNano())
	if err := os.WriteFile(filepath.Join(dir, name), encoded, 0o644); err != nil {
		return fmt.Errorf("blueprint: writing checkpoint: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "latest.json"), encoded, 0o644)
}

// LoadLatest returns the most recently written checkpoint for the
// session, via latest.json.
func (c *CheckpointStore) LoadLatest(sessionID string) (Checkpoint, bool) {
	return c.readFile(filepath.Join(c.sessionDir(sessionID), "latest.json"))
}

// LoadPhase returns the most recent checkpoint recorded for phase,
// scanning {phase}_*.json by timestamp suffix (spec §4.13: "loading by
// phase returns the most recent for that phase").
func (c *CheckpointStore) LoadPhase(sessionID, phase string) (Checkpoint, bool) {
	entries, err := os.ReadDir(c.sessionDir(sessionID))
	if err != nil {
		return Checkpoint{}, false
	}

	var candidates []string
	prefix := phase + "_"
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if len(e.Name()) > len(prefix) && e.Name()[:len(prefix)] == prefix {
			candidates = append(candidates, e.Name())
		}
	}
	if len(candidates) == 0 {
		return Checkpoint{}, false
	}
	sort.Strings(candidates) // timestamp suffix sorts lexicographically
	return c.readFile(filepath.Join(c.sessionDir(sessionID), candidates[len(candidates)-1]))
}

func (c *CheckpointStore) readFile(path string) (Checkpoint, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Checkpoint{}, false
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false
	}
	return cp, true
}

// Resume computes the next phase to run after the session's latest
// checkpoint (spec §4.13). Returns ("", false) if there is no checkpoint
// to resume from.
func (c *CheckpointStore) Resume(sessionID string) (string, bool) {
	cp, ok := c.LoadLatest(sessionID)
	if !ok {
		return "", false
	}
	next := NextPhase(cp.Phase)
	if next == "" {
		return "", false
	}
	return next, true
}
