// Package buildstate implements the Build State Tracker (spec §4.10): a
// per-project record of file hashes and file/task dependency edges used to
// drive incremental rebuilds. Ported from ace/build_state.py, kept as a
// plain JSON-backed struct in the teacher's style of small, directly
// marshaled state types (e.g. internal/model's DB row structs) rather than
// a database-backed store, since this state is per-project filesystem
// state, not shared/queryable state.
package buildstate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// sourceExtensions are recognized source file extensions for
// ShouldRebuild's "untracked source file exists" check (spec §4.10).
var sourceExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".css": true, ".html": true, ".go": true, ".json": true,
}

// FileState is one tracked file's hash and dependency record (spec §3
// BuildState.files entry).
type FileState struct {
	Hash         string    `json:"hash"`
	LastBuilt    time.Time `json:"last_built"`
	Dependencies []string  `json:"dependencies"`
	CreatedBy    string    `json:"created_by_task"`
}

// State is the persisted build state for one project (spec §3 BuildState).
type State struct {
	Files             map[string]FileState `json:"files"`
	TaskFileMapping   map[string][]string  `json:"task_file_mapping"`
	LastBuild         time.Time            `json:"last_build"`
}

// Tracker owns one project's State and its on-disk persistence path.
type Tracker struct {
	path string
	root string // project root, for hashing/existence checks
	st   State
}

// Load reads build_state.json at path (spec §6:
// "{project_dir}/.context-foundry/build_state.json"), or returns a fresh,
// empty Tracker if the file doesn't exist yet.
func Load(path, projectRoot string) (*Tracker, error) {
	t := &Tracker{
		path: path,
		root: projectRoot,
		st: State{
			Files:           make(map[string]FileState),
			TaskFileMapping: make(map[string][]string),
		},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buildstate: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &t.st); err != nil {
		return nil, fmt.Errorf("buildstate: parsing %s: %w", path, err)
	}
	if t.st.Files == nil {
		t.st.Files = make(map[string]FileState)
	}
	if t.st.TaskFileMapping == nil {
		t.st.TaskFileMapping = make(map[string][]string)
	}
	return t, nil
}

// Save persists State wholesale to path; it is never written concurrently
// during a build (spec §5).
func (t *Tracker) Save() error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("buildstate: creating state dir: %w", err)
	}
	t.st.LastBuild = time.Now()

	data, err := json.MarshalIndent(t.st, "", "  ")
	if err != nil {
		return fmt.Errorf("buildstate: encoding state: %w", err)
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("buildstate: writing %s: %w", tmp, err)
	}
	return os.Rename(tmp, t.path)
}

// HashFile computes the SHA-256 of the file at relpath under the project root.
func (t *Tracker) HashFile(relpath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(t.root, relpath))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// TrackFile upserts relpath's hash/dependencies/creating task and adds
// relpath to taskID's file list (spec §4.10).
func (t *Tracker) TrackFile(relpath, taskID string, dependencies []string) error {
	hash, err := t.HashFile(relpath)
	if err != nil {
		return fmt.Errorf("buildstate: hashing %s: %w", relpath, err)
	}

	t.st.Files[relpath] = FileState{
		Hash:         hash,
		LastBuilt:    time.Now(),
		Dependencies: dependencies,
		CreatedBy:    taskID,
	}

	files := t.st.TaskFileMapping[taskID]
	if !contains(files, relpath) {
		files = append(files, relpath)
	}
	t.st.TaskFileMapping[taskID] = files
	return nil
}

// GetChangedFiles returns every tracked file that is missing on disk or
// whose recomputed hash differs from the stored one (spec §4.10).
func (t *Tracker) GetChangedFiles() []string {
	var changed []string
	for relpath, fs := range t.st.Files {
		hash, err := t.HashFile(relpath)
		if err != nil || hash != fs.Hash {
			changed = append(changed, relpath)
		}
	}
	sort.Strings(changed)
	return changed
}

// GetAffectedFiles computes the transitive closure of changed over the
// reverse-dependency graph: every tracked file that lists a changed file (or
// a file affected by one) as a dependency (spec §4.10).
func (t *Tracker) GetAffectedFiles(changed []string) []string {
	affected := make(map[string]bool)
	for _, c := range changed {
		affected[c] = true
	}

	// Fixed-point iteration: keep expanding until nothing new is added.
	for {
		added := false
		for relpath, fs := range t.st.Files {
			if affected[relpath] {
				continue
			}
			for _, dep := range fs.Dependencies {
				if affected[dep] {
					affected[relpath] = true
					added = true
					break
				}
			}
		}
		if !added {
			break
		}
	}

	out := make([]string, 0, len(affected))
	for f := range affected {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// GetAffectedTasks maps affected files back to the task IDs that created
// them (spec §4.10).
func (t *Tracker) GetAffectedTasks(changed []string) []string {
	affectedFiles := t.GetAffectedFiles(changed)
	seen := make(map[string]bool)
	var tasks []string
	for _, f := range affectedFiles {
		fs, ok := t.st.Files[f]
		if !ok || fs.CreatedBy == "" || seen[fs.CreatedBy] {
			continue
		}
		seen[fs.CreatedBy] = true
		tasks = append(tasks, fs.CreatedBy)
	}
	sort.Strings(tasks)
	return tasks
}

// ShouldRebuild reports whether a build is needed and why: no prior build,
// any tracked file changed, or an untracked recognized-extension source
// file exists (spec §4.10).
func (t *Tracker) ShouldRebuild() (bool, []string) {
	var reasons []string

	if t.st.LastBuild.IsZero() {
		reasons = append(reasons, "no prior build recorded")
	}

	if changed := t.GetChangedFiles(); len(changed) > 0 {
		reasons = append(reasons, fmt.Sprintf("%d tracked file(s) changed", len(changed)))
	}

	if untracked := t.findUntrackedSourceFiles(); len(untracked) > 0 {
		reasons = append(reasons, fmt.Sprintf("%d untracked source file(s) found", len(untracked)))
	}

	return len(reasons) > 0, reasons
}

func (t *Tracker) findUntrackedSourceFiles() []string {
	var untracked []string
	_ = filepath.WalkDir(t.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if filepath.Clean(path) == filepath.Clean(t.path) {
			return nil // the tracker's own state file is not a source file
		}
		if !sourceExtensions[filepath.Ext(path)] {
			return nil
		}
		rel, err := filepath.Rel(t.root, path)
		if err != nil {
			return nil
		}
		if _, tracked := t.st.Files[rel]; !tracked {
			untracked = append(untracked, rel)
		}
		return nil
	})
	return untracked
}

// Clear resets all tracked state, forcing a full next build (spec §4.10).
func (t *Tracker) Clear() {
	t.st = State{
		Files:           make(map[string]FileState),
		TaskFileMapping: make(map[string][]string),
	}
}

// Files returns a copy of the tracked file map.
func (t *Tracker) Files() map[string]FileState {
	out := make(map[string]FileState, len(t.st.Files))
	for k, v := range t.st.Files {
		out[k] = v
	}
	return out
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
