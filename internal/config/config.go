package config

// Config holds all application configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Editor EditorConfig `mapstructure:"editor"`
	Model  ModelConfig  `mapstructure:"model"`
	Phase  PhaseConfig  `mapstructure:"phase"`
	Map    MapConfig    `mapstructure:"map"`
	Runner RunnerConfig `mapstructure:"runner"`
	Walk   WalkConfig   `mapstructure:"walk"`
	Git    GitConfig    `mapstructure:"git"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EditorConfig configures the editor subprocess.
type EditorConfig struct {
	// Path is the editor executable. Multi-word values ("python -m aider")
	// are split before execution.
	Path string `mapstructure:"path"`
	// PackageDir is prepended to PATH so a bundled editor wins over any
	// system install.
	PackageDir string `mapstructure:"package_dir"`
	// Model is the model name passed to the editor.
	Model string `mapstructure:"model"`
	// PhaseTimeout bounds one editor invocation.
	PhaseTimeout string `mapstructure:"phase_timeout"`
}

// ModelConfig configures the planning language model.
type ModelConfig struct {
	Name        string  `mapstructure:"name"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	// HistoryTailChars bounds the chat-history excerpt fed to objective
	// generation.
	HistoryTailChars int `mapstructure:"history_tail_chars"`
}

// PhaseConfig configures the project phase state machine.
type PhaseConfig struct {
	// ModelTokenLimit is the context budget the phase ratios apply to.
	ModelTokenLimit int `mapstructure:"model_token_limit"`
	// ConvergenceRatio triggers EXPANSION -> CONVERGENCE above it.
	ConvergenceRatio float64 `mapstructure:"convergence_ratio"`
	// ExpansionRatio triggers CONVERGENCE -> EXPANSION below it. Must be
	// strictly less than ConvergenceRatio.
	ExpansionRatio float64 `mapstructure:"expansion_ratio"`
}

// MapConfig configures per-file size thresholds in map.md.
type MapConfig struct {
	WarningTokens int `mapstructure:"warning_tokens"`
	ErrorTokens   int `mapstructure:"error_tokens"`
}

// RunnerConfig configures the agent runner pool.
type RunnerConfig struct {
	// Concurrency is the maximum number of simultaneous cycles.
	Concurrency int `mapstructure:"concurrency"`
	// StaggerDelay spaces out initial cycle spawns.
	StaggerDelay string `mapstructure:"stagger_delay"`
	// ReplaceDelay spaces out replacement spawns after a completion.
	ReplaceDelay string `mapstructure:"replace_delay"`
	// StuckThreshold marks a cycle as stuck past this duration.
	StuckThreshold string `mapstructure:"stuck_threshold"`
	// GracePeriod bounds in-flight cycles after cancellation.
	GracePeriod string `mapstructure:"grace_period"`
}

// WalkConfig configures tree traversal.
type WalkConfig struct {
	IgnorePatterns []string `mapstructure:"ignore_patterns"`
	MaxDepth       int      `mapstructure:"max_depth"`
}

// GitConfig configures version-control interaction.
type GitConfig struct {
	Timeout string `mapstructure:"timeout"`
	Remote  string `mapstructure:"remote"`
}
