package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateEditor(&cfg.Editor)
	v.validatePhase(&cfg.Phase)
	v.validateMap(&cfg.Map)
	v.validateRunner(&cfg.Runner)
	v.validateGit(&cfg.Git)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(field string, value interface{}, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: message})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		v.addError("log.level", cfg.Level, "must be one of debug, info, warn, error")
	}
	switch cfg.Format {
	case "auto", "text", "json":
	default:
		v.addError("log.format", cfg.Format, "must be one of auto, text, json")
	}
}

func (v *Validator) validateEditor(cfg *EditorConfig) {
	if cfg.Path == "" {
		v.addError("editor.path", cfg.Path, "editor path is required")
	}
	v.validateDuration("editor.phase_timeout", cfg.PhaseTimeout)
}

func (v *Validator) validatePhase(cfg *PhaseConfig) {
	if cfg.ModelTokenLimit <= 0 {
		v.addError("phase.model_token_limit", cfg.ModelTokenLimit, "must be positive")
	}
	if cfg.ConvergenceRatio <= 0 || cfg.ConvergenceRatio > 1 {
		v.addError("phase.convergence_ratio", cfg.ConvergenceRatio, "must be in (0, 1]")
	}
	if cfg.ExpansionRatio <= 0 || cfg.ExpansionRatio > 1 {
		v.addError("phase.expansion_ratio", cfg.ExpansionRatio, "must be in (0, 1]")
	}
	// Hysteresis requires a gap between the two ratios.
	if cfg.ExpansionRatio >= cfg.ConvergenceRatio {
		v.addError("phase.expansion_ratio", cfg.ExpansionRatio,
			"must be strictly less than phase.convergence_ratio")
	}
}

func (v *Validator) validateMap(cfg *MapConfig) {
	if cfg.WarningTokens <= 0 {
		v.addError("map.warning_tokens", cfg.WarningTokens, "must be positive")
	}
	if cfg.ErrorTokens <= cfg.WarningTokens {
		v.addError("map.error_tokens", cfg.ErrorTokens, "must exceed map.warning_tokens")
	}
}

func (v *Validator) validateRunner(cfg *RunnerConfig) {
	if cfg.Concurrency < 1 {
		v.addError("runner.concurrency", cfg.Concurrency, "must be at least 1")
	}
	v.validateDuration("runner.stagger_delay", cfg.StaggerDelay)
	v.validateDuration("runner.replace_delay", cfg.ReplaceDelay)
	v.validateDuration("runner.stuck_threshold", cfg.StuckThreshold)
	v.validateDuration("runner.grace_period", cfg.GracePeriod)
}

func (v *Validator) validateGit(cfg *GitConfig) {
	v.validateDuration("git.timeout", cfg.Timeout)
}

func (v *Validator) validateDuration(field, value string) {
	if value == "" {
		return
	}
	if _, err := time.ParseDuration(value); err != nil {
		v.addError(field, value, "must be a valid duration (e.g. 30s, 5m)")
	}
}
