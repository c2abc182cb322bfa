package config

import "github.com/spf13/viper"

// SetDefaults registers default values on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")

	v.SetDefault("editor.path", "aider")
	v.SetDefault("editor.package_dir", "")
	v.SetDefault("editor.model", "gpt-4o-mini")
	v.SetDefault("editor.phase_timeout", "30m")

	v.SetDefault("model.name", "gemini-2.0-flash")
	v.SetDefault("model.temperature", 0.7)
	v.SetDefault("model.max_tokens", 2000)
	v.SetDefault("model.history_tail_chars", 25000)

	v.SetDefault("phase.model_token_limit", 128000)
	v.SetDefault("phase.convergence_ratio", 0.60)
	v.SetDefault("phase.expansion_ratio", 0.50)

	v.SetDefault("map.warning_tokens", 6000)
	v.SetDefault("map.error_tokens", 12000)

	v.SetDefault("runner.concurrency", 3)
	v.SetDefault("runner.stagger_delay", "10s")
	v.SetDefault("runner.replace_delay", "3s")
	v.SetDefault("runner.stuck_threshold", "5m")
	v.SetDefault("runner.grace_period", "2m")

	v.SetDefault("walk.ignore_patterns", []string{})
	v.SetDefault("walk.max_depth", 0)

	v.SetDefault("git.timeout", "30s")
	v.SetDefault("git.remote", "origin")
}
