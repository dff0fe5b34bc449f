// Package orchestrator implements the Phase Orchestrator (spec §4.7) and
// Lead Orchestrator (spec §4.8): the single-agent sequential Scout →
// Architect → Builder driver, plan-only multi-agent planning, and the
// plumbing (blueprint persistence, checkpointing, self-heal) that ties
// every other package together. Modeled on the teacher's
// internal/brain.Orchestrator — a Config struct built from injected
// collaborators, sentinel/wrapped errors, and a single top-level Run
// entry point — generalized from the teacher's single-issue engagement
// loop to a three-phase pipeline.
package orchestrator

import (
	"time"

	"foundry.dev/core/internal/buildstate"
	"foundry.dev/core/internal/blueprint"
	"foundry.dev/core/internal/cache"
	"foundry.dev/core/internal/coordinator"
	"foundry.dev/core/internal/contextmgr"
	"foundry.dev/core/internal/llmclient"
	"foundry.dev/core/internal/pricing"
	"foundry.dev/core/internal/validate"
)

// Run modes (spec §4.7, glossary).
const (
	ModeNew     = "new"
	ModeFix     = "fix"
	ModeEnhance = "enhance"
)

// Checkpoint phases (spec §3 Checkpoint, §4.13).
const (
	PhasePlanning   = "planning"
	PhaseScout      = "scout"
	PhaseArchitect  = "architect"
	PhaseBuilder    = "builder"
	PhaseValidation = "validation"
	PhaseComplete   = "complete"
)

// Terminal workflow statuses (spec §7).
const (
	StatusSuccess    = "success"
	StatusAborted    = "aborted"
	StatusError      = "error"
	StatusIncomplete = "incomplete"
)

// ApprovalFunc is called after Scout and after Architect when running in
// interactive mode; returning false aborts the session (spec §4.7).
type ApprovalFunc func(phase, content string) bool

// GitCommitFunc optionally commits the working tree with a conventional
// message after a builder task completes (spec §4.7 step 3). Git failures
// never abort the build (spec §7), so Run ignores its error beyond logging.
type GitCommitFunc func(message string) error

// Dependencies are the collaborators the orchestrator composes; all are
// required except where noted.
type Dependencies struct {
	Client      *llmclient.Client
	Blueprint   *blueprint.Store
	Checkpoints *blueprint.CheckpointStore
	BuildState  *buildstate.Tracker
	ScoutCoord  *coordinator.ScoutCoordinator
	BuilderCoord *coordinator.BuilderCoordinator
	ContextMgr  *contextmgr.Manager // optional; nil disables context tracking
	Validators  validate.Pipeline
	Judge       validate.Judge // optional; nil disables the self-heal loop

	Pricing *pricing.Tracker // optional; nil leaves manifest token totals at 0
	Cache   *cache.Cache     // optional; nil leaves manifest cache hit rate at 0

	ProjectDir  string
	ProjectName string

	GitCommit GitCommitFunc // optional
}

// Options configures one Run invocation (spec §4.7).
type Options struct {
	SessionID string
	Mode      string // new | fix | enhance
	Task      string // task description the user supplied

	// Autonomous skips approval gates but still runs every phase in order
	// (spec §4.7 "autonomous=false" default path is gated, true is not).
	Autonomous bool
	// Unattended is the "ralph wiggum" run mode (SPEC_FULL §D.4): like
	// Autonomous but Approve is never even consulted, matching the
	// original's distinct unattended code path rather than an
	// auto-accepting responder.
	Unattended bool
	Approve    ApprovalFunc

	// ResumeSession/ResumeTasks restrict the builder loop to specific task
	// indices of an existing TASKS.md (spec §4.7 "Session resume").
	ResumeSession string
	ResumeTasks   []int

	MaxHealAttempts int // default 3
}

// BuilderTaskResult is one task's outcome within the Builder phase.
type BuilderTaskResult struct {
	Index        int
	Title        string
	Files        []string
	FilesWritten []string
	Success      bool
	Warnings     []string
	Error        string
}

// Result is the structured, user-visible report of a Run (spec §7).
type Result struct {
	Status    string
	SessionID string

	Research string
	Spec     string
	Plan     string
	Tasks    string

	ParseWarnings []string

	BuilderResults []BuilderTaskResult
	HealResult     *validate.HealResult

	Err error
}

// TaskSpec is one parsed TASKS.md entry (spec §6 "Task grammar").
type TaskSpec struct {
	Index   int
	Title   string
	Files   []string
	Changes string
	Raw     string
}

// timestamp is the single place Run-local "now" formatting happens, so
// file-naming stays consistent across the package.
func timestamp() string { return time.Now().UTC().Format("20060102-150405") }
