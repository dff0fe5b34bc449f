// Package blueprint implements the Blueprint & Checkpoint Store (spec
// §4.13): the on-disk project layout the phase orchestrator reads and
// writes (RESEARCH.md/SPEC.md/SPEC.yaml/PLAN.md/TASKS.md/manifest.json,
// plus append-only session history), and the per-phase checkpoint
// directory that drives resume. Modeled on the teacher's preference for
// small, explicit filesystem-backed stores over a database (there is no
// pgx/redis wiring here — spec §4.13 names a plain directory layout) with
// the same "write canonical, archive a copy" pattern common/logger uses
// for per-run log files.
package blueprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const dirName = ".context-foundry"

// Store is the per-project blueprint directory at {project_dir}/.context-foundry/
// (spec §6 On-disk layout).
type Store struct {
	projectDir string
}

// NewStore roots a Store at projectDir, creating the blueprint directory
// if it doesn't exist.
func NewStore(projectDir string) (*Store, error) {
	s := &Store{projectDir: projectDir}
	if err := os.MkdirAll(s.Dir(), 0o755); err != nil {
		return nil, fmt.Errorf("blueprint: creating store dir: %w", err)
	}
	return s, nil
}

// Dir returns the blueprint directory root.
func (s *Store) Dir() string { return filepath.Join(s.projectDir, dirName) }

func (s *Store) path(name string) string { return filepath.Join(s.Dir(), name) }

// WriteResearch overwrites the canonical RESEARCH.md (scout output).
func (s *Store) WriteResearch(content string) error { return s.writeCanonical("RESEARCH.md", content) }

// WriteSpec overwrites the canonical SPEC.md (architect output).
func (s *Store) WriteSpec(content string) error { return s.writeCanonical("SPEC.md", content) }

// WritePlan overwrites the canonical PLAN.md (architect output).
func (s *Store) WritePlan(content string) error { return s.writeCanonical("PLAN.md", content) }

// WriteTasks overwrites the canonical TASKS.md (architect output).
func (s *Store) WriteTasks(content string) error { return s.writeCanonical("TASKS.md", content) }

func (s *Store) writeCanonical(name, content string) error {
	if err := os.WriteFile(s.path(name), []byte(content), 0o644); err != nil {
		return fmt.Errorf("blueprint: writing %s: %w", name, err)
	}
	return nil
}

// ReadResearch, ReadSpec, ReadPlan, ReadTasks return the current canonical
// file's content, or "" if it doesn't exist yet.
func (s *Store) ReadResearch() string { return s.readOrEmpty("RESEARCH.md") }
func (s *Store) ReadSpec() string     { return s.readOrEmpty("SPEC.md") }
func (s *Store) ReadPlan() string     { return s.readOrEmpty("PLAN.md") }
func (s *Store) ReadTasks() string    { return s.readOrEmpty("TASKS.md") }

func (s *Store) readOrEmpty(name string) string {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return ""
	}
	return string(data)
}

// ArchiveSession copies the current canonical files into
// history/{mode}_{sessionID}/ (spec §4.13: "history is append-only") and
// returns the relative history path recorded into manifest.json.
func (s *Store) ArchiveSession(mode, sessionID string) (string, error) {
	rel := filepath.Join("history", fmt.Sprintf("%s_%s", mode, sessionID))
	dir := filepath.Join(s.Dir(), rel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("blueprint: creating history dir: %w", err)
	}

	for _, name := range []string{"RESEARCH.md", "SPEC.md", "SPEC.yaml", "PLAN.md", "TASKS.md"} {
		data, err := os.ReadFile(s.path(name))
		if err != nil {
			continue // canonical file not produced this session; skip (spec: parser/files are best-effort)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return "", fmt.Errorf("blueprint: archiving %s: %w", name, err)
		}
	}
	return rel, nil
}

// SessionMetrics is the structured per-session usage summary an external
// analysis tool can read (SPEC_FULL §D.5); the core never interprets it.
type SessionMetrics struct {
	TotalTokens    int                `json:"total_tokens"`
	PhaseDurations map[string]float64 `json:"phase_durations"` // seconds, keyed by phase name
	CacheHitRate   float64            `json:"cache_hit_rate"`
}

// SessionEntry is one row of manifest.json's sessions list (spec §6).
type SessionEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	Type        string          `json:"type"`
	Task        string          `json:"task"`
	Status      string          `json:"status"`
	Completed   bool            `json:"completed"`
	HistoryPath string          `json:"history_path"`
	Metrics     *SessionMetrics `json:"metrics,omitempty"`
}

// Manifest is manifest.json's top-level shape (spec §6).
type Manifest struct {
	Project        string         `json:"project"`
	Created        time.Time      `json:"created"`
	Sessions       []SessionEntry `json:"sessions"`
	CurrentResearch string        `json:"current_research"`
	CurrentSpec     string        `json:"current_spec"`
	CurrentPlan     string        `json:"current_plan"`
	CurrentTasks    string        `json:"current_tasks"`
}

// LoadManifest reads manifest.json, or returns a fresh Manifest for
// projectName if none exists yet.
func (s *Store) LoadManifest(projectName string) (Manifest, error) {
	data, err := os.ReadFile(s.path("manifest.json"))
	if err != nil {
		return Manifest{Project: projectName, Created: time.Now()}, nil
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("blueprint: decoding manifest.json: %w", err)
	}
	return m, nil
}

// SaveManifest overwrites manifest.json.
func (s *Store) SaveManifest(m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("blueprint: encoding manifest.json: %w", err)
	}
	if err := os.WriteFile(s.path("manifest.json"), data, 0o644); err != nil {
		return fmt.Errorf("blueprint: writing manifest.json: %w", err)
	}
	return nil
}

// RecordSession loads the manifest, appends entry, refreshes the
// current_* pointers from the canonical files actually present, and
// saves — the single call sites the orchestrator makes at session end.
func (s *Store) RecordSession(projectName string, entry SessionEntry) error {
	m, err := s.LoadManifest(projectName)
	if err != nil {
		return err
	}
	m.Sessions = append(m.Sessions, entry)
	if research := s.ReadResearch(); research != "" {
		m.CurrentResearch = research
	}
	if spec := s.ReadSpec(); spec != "" {
		m.CurrentSpec = spec
	}
	if plan := s.ReadPlan(); plan != "" {
		m.CurrentPlan = plan
	}
	if tasks := s.ReadTasks(); tasks != "" {
		m.CurrentTasks = tasks
	}
	return s.SaveManifest(m)
}
