package buildstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, relpath, content string) {
	t.Helper()
	full := filepath.Join(root, relpath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestTrackFileAndGetChangedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "x.py", "print(1)")
	writeFile(t, root, "y.py", "print(2)")

	tr, err := Load(filepath.Join(root, ".context-foundry", "build_state.json"), root)
	require.NoError(t, err)

	require.NoError(t, tr.TrackFile("x.py", "task-1", nil))
	require.NoError(t, tr.TrackFile("y.py", "task-2", []string{"x.py"}))

	assert.Empty(t, tr.GetChangedFiles())

	writeFile(t, root, "x.py", "print(999)")
	changed := tr.GetChangedFiles()
	assert.Equal(t, []string{"x.py"}, changed)
}

func TestGetAffectedFilesTransitiveClosure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "a")
	writeFile(t, root, "b.py", "b")
	writeFile(t, root, "c.py", "c")

	tr, err := Load(filepath.Join(root, "state.json"), root)
	require.NoError(t, err)
	require.NoError(t, tr.TrackFile("a.py", "t-a", nil))
	require.NoError(t, tr.TrackFile("b.py", "t-b", []string{"a.py"}))
	require.NoError(t, tr.TrackFile("c.py", "t-c", []string{"b.py"}))

	affected := tr.GetAffectedFiles([]string{"a.py"})
	assert.Equal(t, []string{"a.py", "b.py", "c.py"}, affected)
}

func TestGetAffectedTasksMapsBackToCreators(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "a")
	writeFile(t, root, "b.py", "b")

	tr, err := Load(filepath.Join(root, "state.json"), root)
	require.NoError(t, err)
	require.NoError(t, tr.TrackFile("a.py", "task-A", nil))
	require.NoError(t, tr.TrackFile("b.py", "task-B", []string{"a.py"}))

	tasks := tr.GetAffectedTasks([]string{"a.py"})
	assert.Equal(t, []string{"task-A", "task-B"}, tasks)
}

func TestShouldRebuildNoPriorBuild(t *testing.T) {
	root := t.TempDir()
	tr, err := Load(filepath.Join(root, "state.json"), root)
	require.NoError(t, err)

	should, reasons := tr.ShouldRebuild()
	assert.True(t, should)
	assert.NotEmpty(t, reasons)
}

func TestShouldRebuildDetectsUntrackedSourceFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "tracked.py", "x")

	statePath := filepath.Join(root, "state.json")
	tr, err := Load(statePath, root)
	require.NoError(t, err)
	require.NoError(t, tr.TrackFile("tracked.py", "t-1", nil))
	require.NoError(t, tr.Save())

	tr2, err := Load(statePath, root)
	require.NoError(t, err)
	should, _ := tr2.ShouldRebuild()
	assert.False(t, should)

	writeFile(t, root, "new.js", "console.log(1)")
	should, reasons := tr2.ShouldRebuild()
	assert.True(t, should)
	assert.Contains(t, reasons[0], "untracked")
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "x.py", "x")

	statePath := filepath.Join(root, ".context-foundry", "build_state.json")
	tr, err := Load(statePath, root)
	require.NoError(t, err)
	require.NoError(t, tr.TrackFile("x.py", "t-1", nil))
	require.NoError(t, tr.Save())

	tr2, err := Load(statePath, root)
	require.NoError(t, err)
	assert.Len(t, tr2.Files(), 1)
}

func TestClearResetsState(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "x.py", "x")

	tr, err := Load(filepath.Join(root, "state.json"), root)
	require.NoError(t, err)
	require.NoError(t, tr.TrackFile("x.py", "t-1", nil))
	tr.Clear()
	assert.Empty(t, tr.Files())

	should, _ := tr.ShouldRebuild()
	assert.True(t, should)
}
