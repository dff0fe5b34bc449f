package blueprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreWritesAndReadsCanonicalFiles(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.WriteResearch("# Research"))
	require.NoError(t, s.WriteSpec("# Spec"))
	require.NoError(t, s.WritePlan("# Plan"))
	require.NoError(t, s.WriteTasks("### Task 1"))

	assert.Equal(t, "# Research", s.ReadResearch())
	assert.Equal(t, "# Spec", s.ReadSpec())
	assert.Equal(t, "# Plan", s.ReadPlan())
	assert.Equal(t, "### Task 1", s.ReadTasks())
}

func TestReadMissingCanonicalFileReturnsEmpty(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "", s.ReadSpec())
}

func TestArchiveSessionCopiesPresentFilesOnly(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.WriteSpec("# Spec v1"))
	require.NoError(t, s.WriteTasks("### Task 1"))

	rel, err := s.ArchiveSession("build", "sess123")
	require.NoError(t, err)
	assert.Equal(t, "history/build_sess123", rel)

	data := s.readOrEmpty(rel + "/SPEC.md")
	assert.Equal(t, "# Spec v1", data)
	assert.Equal(t, "", s.readOrEmpty(rel+"/RESEARCH.md"))
}

func TestManifestRoundTripsAndRecordsSessions(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.WriteSpec("# Spec"))

	require.NoError(t, s.RecordSession("demo", SessionEntry{
		Type: "build", Task: "add auth", Status: "success", Completed: true,
		Metrics: &SessionMetrics{TotalTokens: 4200, CacheHitRate: 0.5},
	}))

	m, err := s.LoadManifest("demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", m.Project)
	require.Len(t, m.Sessions, 1)
	assert.Equal(t, "build", m.Sessions[0].Type)
	assert.Equal(t, 4200, m.Sessions[0].Metrics.TotalTokens)
	assert.Equal(t, "# Spec", m.CurrentSpec)
}

func TestLoadManifestCreatesFreshWhenAbsent(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	m, err := s.LoadManifest("newproj")
	require.NoError(t, err)
	assert.Equal(t, "newproj", m.Project)
	assert.Empty(t, m.Sessions)
}

func TestSpecYAMLRoundTrips(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	spec := SpecYAML{
		Overview: "A todo app",
		Components: []SpecComponent{
			{Name: "api", Responsibility: "serve REST endpoints", Dependencies: []string{"db"}},
		},
		Endpoints: []string{"/health", "/todos"},
	}
	require.NoError(t, s.WriteSpecYAML(spec))

	got, ok := s.ReadSpecYAML()
	require.True(t, ok)
	assert.Equal(t, spec.Overview, got.Overview)
	require.Len(t, got.Components, 1)
	assert.Equal(t, "api", got.Components[0].Name)
	assert.Equal(t, []string{"/health", "/todos"}, got.Endpoints)
}

func TestReadSpecYAMLMissingReturnsNotOK(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	_, ok := s.ReadSpecYAML()
	assert.False(t, ok)
}

func TestNextPhaseFollowsFixedMap(t *testing.T) {
	assert.Equal(t, "scout", NextPhase("planning"))
	assert.Equal(t, "architect", NextPhase("scout"))
	assert.Equal(t, "builder", NextPhase("architect"))
	assert.Equal(t, "validation", NextPhase("builder"))
	assert.Equal(t, "complete", NextPhase("validation"))
	assert.Equal(t, "", NextPhase("complete"))
	assert.Equal(t, "", NextPhase("unknown"))
}

func TestCheckpointStoreSaveAndLoadLatest(t *testing.T) {
	cs := NewCheckpointStore(t.TempDir())

	require.NoError(t, cs.Save("sess1", "scout", map[string]string{"research": "done"}))
	require.NoError(t, cs.Save("sess1", "architect", map[string]string{"spec": "done"}))

	latest, ok := cs.LoadLatest("sess1")
	require.True(t, ok)
	assert.Equal(t, "architect", latest.Phase)
}

func TestCheckpointStoreLoadPhaseReturnsMostRecentForThatPhase(t *testing.T) {
	cs := NewCheckpointStore(t.TempDir())

	require.NoError(t, cs.Save("sess1", "builder", map[string]int{"attempt": 1}))
	require.NoError(t, cs.Save("sess1", "validation", map[string]int{"attempt": 1}))
	require.NoError(t, cs.Save("sess1", "builder", map[string]int{"attempt": 2}))

	cp, ok := cs.LoadPhase("sess1", "builder")
	require.True(t, ok)
	assert.Equal(t, "builder", cp.Phase)
	assert.Contains(t, string(cp.Data), `"attempt": 2`)
}

func TestCheckpointStoreResumeComputesNextPhase(t *testing.T) {
	cs := NewCheckpointStore(t.TempDir())
	require.NoError(t, cs.Save("sess1", "scout", map[string]string{}))

	next, ok := cs.Resume("sess1")
	require.True(t, ok)
	assert.Equal(t, "architect", next)
}

func TestCheckpointStoreResumeFalseWhenNoCheckpoint(t *testing.T) {
	cs := NewCheckpointStore(t.TempDir())
	_, ok := cs.Resume("unknown")
	assert.False(t, ok)
}

func TestCheckpointStoreResumeFalseWhenTerminal(t *testing.T) {
	cs := NewCheckpointStore(t.TempDir())
	require.NoError(t, cs.Save("sess1", "complete", map[string]string{}))
	_, ok := cs.Resume("sess1")
	assert.False(t, ok)
}
