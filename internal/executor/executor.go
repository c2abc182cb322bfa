// Package executor runs one complete agent cycle: plan, three ordered editor
// invocations bracketed by version-control snapshots, then post-processing.
// Every error is contained here; the runner pool only ever observes the
// finished CycleRecord.
package executor

import (
	"context"
	"time"

	"github.com/kiln-ai/kiln/internal/adapters/editor"
	"github.com/kiln-ai/kiln/internal/adapters/git"
	"github.com/kiln-ai/kiln/internal/core"
	"github.com/kiln-ai/kiln/internal/logging"
	"github.com/kiln-ai/kiln/internal/planner"
	"github.com/kiln-ai/kiln/internal/projectmap"
)

// PhaseRunner abstracts the editor subprocess for one invocation.
type PhaseRunner interface {
	Run(ctx context.Context, args []string) (*editor.Result, error)
}

// Options configures cycle execution.
type Options struct {
	// Model is the model name passed to the editor.
	Model string
}

// Executor drives agent cycles.
type Executor struct {
	opts    Options
	planner *planner.Planner
	runner  PhaseRunner
	vcs     core.VCS
	projmap *projectmap.Maintainer
	logger  *logging.Logger
}

// New creates an executor.
func New(opts Options, p *planner.Planner, runner PhaseRunner, vcs core.VCS, projmap *projectmap.Maintainer, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		opts:    opts,
		planner: p,
		runner:  runner,
		vcs:     vcs,
		projmap: projmap,
		logger:  logger,
	}
}

// Execute runs one cycle for the agent. The returned record always has an
// outcome; no error escapes the cycle.
func (e *Executor) Execute(ctx context.Context, agent core.RoleName) *core.CycleRecord {
	record := core.NewCycleRecord(agent)
	logger := e.logger.WithAgent(string(agent)).WithCycle(string(record.ID))
	logger.Info("🕐 agent starting cycle")

	defer func() {
		record.Duration = time.Since(record.StartedAt)
		if r := recover(); r != nil {
			record.Outcome = core.CycleFailed
			record.Err = core.ErrExecution("CYCLE_PANIC", "cycle panicked")
			logger.Error("cycle panicked", "panic", r)
		}
	}()

	obj, err := e.planner.PlanObjective(ctx, agent, record.ID)
	if err != nil {
		record.Outcome = core.CycleFailed
		record.Err = err
		logger.Error("objective planning failed", "error", err)
		return record
	}

	cm, err := e.planner.PlanContext(ctx, agent, obj)
	if err != nil {
		record.Outcome = core.CycleFailed
		record.Err = err
		logger.Error("context planning failed", "error", err)
		return record
	}

	baseArgs := e.buildArgs(agent, cm)
	snapshotsOK := true

	for _, phase := range []core.EditorPhase{core.PhaseProduction, core.PhaseRoleSpecific, core.PhaseFinalCheck} {
		if ctx.Err() != nil {
			record.Outcome = core.CycleFailed
			record.Err = ctx.Err()
			logger.Info("cycle cancelled before phase", "phase", phase.String())
			return record
		}
		result := e.runPhase(ctx, logger, phase, baseArgs, obj, &snapshotsOK)
		record.Phases = append(record.Phases, result)
	}

	record.Outcome = outcomeOf(record)
	e.postProcess(ctx, logger, record, snapshotsOK)

	logger.Info("⏱️ agent completed cycle",
		"outcome", record.Outcome,
		"modified_files", len(record.ModifiedSet()),
		"duration", time.Since(record.StartedAt),
	)
	return record
}

// runPhase executes one editor invocation bracketed by snapshots.
func (e *Executor) runPhase(ctx context.Context, logger *logging.Logger, phase core.EditorPhase, baseArgs []string, obj *core.Objective, snapshotsOK *bool) core.PhaseResult {
	phaseLogger := logger.WithPhase(phase.String())
	phaseLogger.Info("starting editor phase")
	start := time.Now()

	before, err := e.vcs.ListTrackedFiles(ctx)
	if err != nil {
		phaseLogger.Warn("pre-phase snapshot failed", "error", err)
		*snapshotsOK = false
	}

	args := append(append([]string{}, baseArgs...), "--message", obj.Body+phase.Trailer())
	result, runErr := e.runner.Run(ctx, args)

	phaseResult := core.PhaseResult{
		Phase:    phase,
		Err:      runErr,
		Duration: time.Since(start),
	}
	if result != nil {
		phaseResult.ExitCode = result.ExitCode
	}

	after, err := e.vcs.ListTrackedFiles(ctx)
	if err != nil {
		phaseLogger.Warn("post-phase snapshot failed", "error", err)
		*snapshotsOK = false
	} else if before != nil {
		phaseResult.Modified = core.ModifiedFiles(before, after)
	}

	switch {
	case runErr != nil:
		phaseLogger.Error("editor phase failed", "error", runErr, "exit_code", phaseResult.ExitCode)
	default:
		phaseLogger.Success("✨ editor phase completed",
			"modified_files", len(phaseResult.Modified),
			"duration", phaseResult.Duration,
		)
	}
	return phaseResult
}

// postProcess logs the resulting commit, attempts a push and refreshes the
// map. It only runs when the cycle modified something and the snapshots that
// prove it were sound.
func (e *Executor) postProcess(ctx context.Context, logger *logging.Logger, record *core.CycleRecord, snapshotsOK bool) {
	if !snapshotsOK {
		logger.Warn("skipping post-cycle operations: snapshots unavailable")
		return
	}
	modified := record.ModifiedSet()
	if len(modified) == 0 {
		return
	}

	if hash, message, err := e.vcs.LatestCommitSummary(ctx); err != nil {
		logger.Warn("cannot read latest commit", "error", err)
	} else {
		record.CommitSummary = message
		_, emoji := git.ParseCommitType(message)
		logger.Info(emoji+" "+message, "commit", shortHash(hash))
	}

	// The remote may not be configured; a failed push is routine.
	if err := e.vcs.Push(ctx); err != nil {
		logger.Info("push skipped", "reason", err)
	}

	if !e.projmap.Update(ctx) {
		logger.Warn("map update failed after cycle")
	}
}

// buildArgs constructs the editor command line shared by all three phases.
func (e *Executor) buildArgs(agent core.RoleName, cm *core.ContextMap) []string {
	args := []string{
		"--model", e.opts.Model,
		"--edit-format", "diff",
		"--yes-always",
		"--cache-prompts",
		"--no-pretty",
		"--no-fancy-input",
		"--encoding", "utf-8",
		"--chat-history-file", core.HistoryFile(agent),
		"--restore-chat-history",
		"--input-history-file", core.InputHistoryFile(agent),
	}

	hasTodolist := false
	for _, f := range cm.Editable {
		if f == core.TodolistFile {
			hasTodolist = true
		}
		args = append(args, "--file", f)
	}
	// The task list rides along editable in every cycle.
	if !hasTodolist {
		args = append(args, "--file", core.TodolistFile)
	}

	args = append(args, "--read", core.RolePromptFile(agent))
	for _, f := range cm.ReadOnly {
		args = append(args, "--read", f)
	}

	return args
}

func outcomeOf(record *core.CycleRecord) core.CycleOutcome {
	failed := 0
	for _, p := range record.Phases {
		if p.Err != nil {
			failed++
		}
	}
	switch failed {
	case 0:
		return core.CycleCompleted
	case len(record.Phases):
		return core.CycleFailed
	default:
		return core.CyclePartiallyFailed
	}
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
