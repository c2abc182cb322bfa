package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ai/kiln/internal/adapters/editor"
	"github.com/kiln-ai/kiln/internal/core"
	"github.com/kiln-ai/kiln/internal/fswalk"
	"github.com/kiln-ai/kiln/internal/phase"
	"github.com/kiln-ai/kiln/internal/planner"
	"github.com/kiln-ai/kiln/internal/projectmap"
	"github.com/kiln-ai/kiln/internal/tokens"
)

// fakeCompleter satisfies planning with fixed replies.
type fakeCompleter struct {
	objective string
	contexts  string
	fail      bool
}

func (f *fakeCompleter) Complete(_ context.Context, req core.CompletionRequest) (string, error) {
	if f.fail {
		return "", errors.New("provider unavailable")
	}
	if req.System == "" || len(req.Messages) == 0 {
		return "ok", nil
	}
	switch {
	case strings.Contains(req.Messages[0].Content, "Project Tree"):
		return f.contexts, nil
	case strings.Contains(req.Messages[0].Content, "Summarize"):
		return "Agent production 🏭 will write", nil
	default:
		return f.objective, nil
	}
}

// fakeVCS serves scripted tracked-file snapshots in order.
type fakeVCS struct {
	snapshots []map[string]string
	calls     int
	snapErr   error
	pushErr   error
	pushed    int
}

func (f *fakeVCS) ListTrackedFiles(context.Context) (map[string]string, error) {
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	i := f.calls
	f.calls++
	if i >= len(f.snapshots) {
		i = len(f.snapshots) - 1
	}
	return f.snapshots[i], nil
}

func (f *fakeVCS) LatestCommitSummary(context.Context) (string, string, error) {
	return "abcdef1234567890", "content: update chapter", nil
}

func (f *fakeVCS) Push(context.Context) error {
	f.pushed++
	return f.pushErr
}

func (f *fakeVCS) ConfigureEncoding(context.Context) error { return nil }

// fakeRunner records invocations and fails selected phases.
type fakeRunner struct {
	calls     [][]string
	failCalls map[int]bool
}

func (f *fakeRunner) Run(_ context.Context, args []string) (*editor.Result, error) {
	call := len(f.calls)
	f.calls = append(f.calls, args)
	if f.failCalls[call] {
		return &editor.Result{ExitCode: 2}, core.ErrEditor("EDITOR_EXIT", "editor exited with code 2")
	}
	return &editor.Result{ExitCode: 0}, nil
}

func newHarness(t *testing.T, completer core.Completer, vcs core.VCS, runner PhaseRunner) (*Executor, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, core.DefaultMissionFile), []byte("Write a cookbook."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, core.RolePromptFile(core.RoleProduction)), []byte("You produce."), 0o644))

	walker := fswalk.New(fswalk.Options{}, nil)
	accountant := tokens.New(staticCounter{}, walker, tokens.DefaultLimits(), nil)
	phases := phase.New(phase.DefaultConfig(), nil)
	projmap := projectmap.New(root, walker, accountant, phases, nil)
	plan := planner.New(root, planner.DefaultOptions(), completer, phases, walker, nil)

	return New(Options{Model: "gpt-4o-mini"}, plan, runner, vcs, projmap, nil), root
}

type staticCounter struct{}

func (staticCounter) CountTokens(context.Context, string) int { return 1 }

func contextReply() string {
	return "# Editable\n- chapter.md\n\n# Read-Only\n- map.md\n"
}

func snapshots(seq ...map[string]string) []map[string]string { return seq }

func TestExecute_SuccessfulCycle(t *testing.T) {
	t.Parallel()
	vcs := &fakeVCS{snapshots: snapshots(
		map[string]string{"chapter.md": "h1"}, // before phase 1
		map[string]string{"chapter.md": "h2"}, // after phase 1
		map[string]string{"chapter.md": "h2"}, // before phase 2
		map[string]string{"chapter.md": "h2"}, // after phase 2
		map[string]string{"chapter.md": "h2"}, // before phase 3
		map[string]string{"chapter.md": "h2"}, // after phase 3
	)}
	runner := &fakeRunner{failCalls: map[int]bool{}}
	exec, root := newHarness(t, &fakeCompleter{objective: "write", contexts: contextReply()}, vcs, runner)

	record := exec.Execute(context.Background(), core.RoleProduction)

	assert.Equal(t, core.CycleCompleted, record.Outcome)
	require.Len(t, record.Phases, 3)
	assert.Equal(t, []string{"chapter.md"}, record.ModifiedSet())
	assert.Equal(t, "content: update chapter", record.CommitSummary)
	assert.Equal(t, 1, vcs.pushed)

	// Map is regenerated after a modifying cycle.
	_, err := os.Stat(filepath.Join(root, core.MapFile))
	require.NoError(t, err)

	// Each invocation carries the phase trailer on the message.
	require.Len(t, runner.calls, 3)
	assert.Contains(t, lastArg(runner.calls[0]), "Focus on the Production Objective")
	assert.Contains(t, lastArg(runner.calls[1]), "Focus on the Role-specific Objective")
	assert.Contains(t, lastArg(runner.calls[2]), "Any additional changes required?")
}

func lastArg(args []string) string { return args[len(args)-1] }

func TestExecute_Phase2FailureIsBestEffort(t *testing.T) {
	t.Parallel()
	// Scenario: phase 1 modifies foo, phase 2 fails, phase 3 modifies bar.
	vcs := &fakeVCS{snapshots: snapshots(
		map[string]string{"foo.md": "a", "bar.md": "a"},
		map[string]string{"foo.md": "b", "bar.md": "a"},
		map[string]string{"foo.md": "b", "bar.md": "a"},
		map[string]string{"foo.md": "b", "bar.md": "a"},
		map[string]string{"foo.md": "b", "bar.md": "a"},
		map[string]string{"foo.md": "b", "bar.md": "b"},
	)}
	runner := &fakeRunner{failCalls: map[int]bool{1: true}}
	exec, _ := newHarness(t, &fakeCompleter{objective: "write", contexts: contextReply()}, vcs, runner)

	record := exec.Execute(context.Background(), core.RoleProduction)

	assert.Equal(t, core.CyclePartiallyFailed, record.Outcome)
	require.Len(t, record.Phases, 3)
	assert.Error(t, record.Phases[1].Err)
	assert.Equal(t, 2, record.Phases[1].ExitCode)
	assert.ElementsMatch(t, []string{"foo.md", "bar.md"}, record.ModifiedSet())
	// All three phases were attempted despite the middle failure.
	assert.Len(t, runner.calls, 3)
}

func TestExecute_PlanningFailureFailsFast(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{}
	exec, _ := newHarness(t, &fakeCompleter{fail: true}, &fakeVCS{snapshots: snapshots(map[string]string{})}, runner)

	record := exec.Execute(context.Background(), core.RoleProduction)

	assert.Equal(t, core.CycleFailed, record.Outcome)
	require.Error(t, record.Err)
	// The editor is never invoked when planning fails.
	assert.Empty(t, runner.calls)
}

func TestExecute_SnapshotFailureSkipsPostProcessing(t *testing.T) {
	t.Parallel()
	vcs := &fakeVCS{snapErr: errors.New("index locked")}
	runner := &fakeRunner{}
	exec, root := newHarness(t, &fakeCompleter{objective: "write", contexts: contextReply()}, vcs, runner)

	record := exec.Execute(context.Background(), core.RoleProduction)

	// Phases still ran; post-processing was skipped.
	assert.Len(t, runner.calls, 3)
	assert.Equal(t, 0, vcs.pushed)
	assert.Empty(t, record.CommitSummary)
	_, err := os.Stat(filepath.Join(root, core.MapFile))
	assert.True(t, os.IsNotExist(err))
}

func TestExecute_NoModificationsNoPostProcessing(t *testing.T) {
	t.Parallel()
	same := map[string]string{"chapter.md": "h1"}
	vcs := &fakeVCS{snapshots: snapshots(same, same, same, same, same, same)}
	runner := &fakeRunner{}
	exec, root := newHarness(t, &fakeCompleter{objective: "write", contexts: contextReply()}, vcs, runner)

	record := exec.Execute(context.Background(), core.RoleProduction)

	assert.Equal(t, core.CycleCompleted, record.Outcome)
	assert.Empty(t, record.ModifiedSet())
	assert.Equal(t, 0, vcs.pushed)
	_, err := os.Stat(filepath.Join(root, core.MapFile))
	assert.True(t, os.IsNotExist(err))
}

func TestExecute_CancelledBeforePhases(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{}
	exec, _ := newHarness(t, &fakeCompleter{objective: "write", contexts: contextReply()},
		&fakeVCS{snapshots: snapshots(map[string]string{})}, runner)

	cancel()
	record := exec.Execute(ctx, core.RoleProduction)
	assert.Equal(t, core.CycleFailed, record.Outcome)
}

func TestBuildArgs(t *testing.T) {
	t.Parallel()
	exec, _ := newHarness(t, &fakeCompleter{}, &fakeVCS{snapshots: snapshots(map[string]string{})}, &fakeRunner{})

	cm := &core.ContextMap{
		Agent:    core.RoleProduction,
		Editable: []string{"chapter.md"},
		ReadOnly: []string{"map.md"},
	}
	args := exec.buildArgs(core.RoleProduction, cm)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "--model gpt-4o-mini")
	assert.Contains(t, joined, "--edit-format diff")
	assert.Contains(t, joined, "--yes-always")
	assert.Contains(t, joined, "--no-pretty")
	assert.Contains(t, joined, "--no-fancy-input")
	assert.Contains(t, joined, "--encoding utf-8")
	assert.Contains(t, joined, "--chat-history-file .kiln.history.production.md")
	assert.Contains(t, joined, "--input-history-file .kiln.input.production.md")
	assert.Contains(t, joined, "--file chapter.md")
	assert.Contains(t, joined, "--file todolist.md")
	assert.Contains(t, joined, "--read .kiln.agent.production.md")
	assert.Contains(t, joined, "--read map.md")
	// No message yet: the phase trailer is appended per invocation.
	assert.NotContains(t, joined, "--message")
}
