package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiln-ai/kiln/internal/adapters/editor"
	"github.com/kiln-ai/kiln/internal/adapters/git"
	"github.com/kiln-ai/kiln/internal/adapters/llm"
	"github.com/kiln-ai/kiln/internal/core"
	"github.com/kiln-ai/kiln/internal/executor"
	"github.com/kiln-ai/kiln/internal/fswalk"
	"github.com/kiln-ai/kiln/internal/phase"
	"github.com/kiln-ai/kiln/internal/planner"
	"github.com/kiln-ai/kiln/internal/projectmap"
	"github.com/kiln-ai/kiln/internal/runner"
	"github.com/kiln-ai/kiln/internal/team"
	"github.com/kiln-ai/kiln/internal/tokens"
)

var (
	runGenerate bool
	runMission  string
	runModel    string
)

var runCmd = &cobra.Command{
	Use:   "run <team-name>",
	Short: "Start the agent runner pool for a team",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runGenerate, "generate", false,
		"regenerate all role-prompt files before starting")
	runCmd.Flags().StringVar(&runMission, "mission", "",
		"mission-description file (default: "+core.DefaultMissionFile+")")
	runCmd.Flags().StringVar(&runModel, "model", "",
		"model name passed to the editor subprocess")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	teamName := args[0]
	cfg := appConfig
	logger := appLogger

	root, err := os.Getwd()
	if err != nil {
		return err
	}

	mission := runMission
	if mission == "" {
		mission = core.DefaultMissionFile
	}
	editorModel := cfg.Editor.Model
	if runModel != "" {
		editorModel = runModel
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// External capabilities. A missing credential fails here, before any
	// cycle starts.
	completer, err := llm.NewGenAIClient(ctx, cfg.Model.Name, logger)
	if err != nil {
		return err
	}

	vcs, err := git.NewClient(root,
		git.WithTimeout(parseDuration(cfg.Git.Timeout, 30*time.Second)),
		git.WithRemote(cfg.Git.Remote),
	)
	if err != nil {
		return err
	}
	if err := vcs.ConfigureEncoding(ctx); err != nil {
		logger.Warn("cannot configure commit encoding", "error", err)
	}

	// Startup checks and bootstrap.
	boot := runner.NewBootstrapper(root, mission, completer, logger)
	if err := boot.CheckMission(); err != nil {
		return err
	}
	if err := boot.EnsureTaskList(); err != nil {
		return err
	}

	teams := team.NewStore(root, logger)
	tm, err := teams.Load(teamName)
	if err != nil {
		return err
	}

	// --generate regenerates the full fixed role set; otherwise only the
	// team's missing prompts are filled in.
	generate := tm.Roles()
	if runGenerate {
		generate = core.RoleNames
	}
	if missing := boot.MissingRoles(generate, runGenerate); len(missing) > 0 {
		logger.Info("🔄 generating agents", "count", len(missing))
		if err := boot.GenerateAgents(ctx, missing); err != nil {
			return err
		}
	}

	// Core components.
	walker := fswalk.New(fswalk.Options{
		MaxDepth:       cfg.Walk.MaxDepth,
		IgnorePatterns: cfg.Walk.IgnorePatterns,
	}, logger)
	accountant := tokens.New(completer, walker, tokens.Limits{
		Warning: cfg.Map.WarningTokens,
		Error:   cfg.Map.ErrorTokens,
	}, logger)
	phases := phase.New(phase.Config{
		ModelTokenLimit:  cfg.Phase.ModelTokenLimit,
		ConvergenceRatio: cfg.Phase.ConvergenceRatio,
		ExpansionRatio:   cfg.Phase.ExpansionRatio,
	}, logger)
	projmap := projectmap.New(root, walker, accountant, phases, logger)

	// A map must exist before the first cycle reads it as context.
	if _, err := os.Stat(core.MapFile); os.IsNotExist(err) {
		projmap.Generate(ctx)
	}

	plannerOpts := planner.DefaultOptions()
	plannerOpts.MissionFile = mission
	plannerOpts.HistoryTailChars = cfg.Model.HistoryTailChars
	plannerOpts.Temperature = cfg.Model.Temperature
	plannerOpts.MaxTokens = cfg.Model.MaxTokens
	plan := planner.New(root, plannerOpts, completer, phases, walker, logger)

	editorRunner := editor.NewRunner(editor.Config{
		Path:         cfg.Editor.Path,
		PackageDir:   cfg.Editor.PackageDir,
		WorkDir:      root,
		PhaseTimeout: parseDuration(cfg.Editor.PhaseTimeout, 30*time.Minute),
	}, logger)

	exec := executor.New(executor.Options{Model: editorModel}, plan, editorRunner, vcs, projmap, logger)

	pool := runner.New(runner.Options{
		Concurrency:    cfg.Runner.Concurrency,
		StaggerDelay:   parseDuration(cfg.Runner.StaggerDelay, 10*time.Second),
		ReplaceDelay:   parseDuration(cfg.Runner.ReplaceDelay, 3*time.Second),
		StuckThreshold: parseDuration(cfg.Runner.StuckThreshold, 5*time.Minute),
		GracePeriod:    parseDuration(cfg.Runner.GracePeriod, 2*time.Minute),
	}, root, tm, phases, accountant, exec, logger)

	return pool.Run(ctx)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
