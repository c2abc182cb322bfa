package core

import (
	"fmt"
)

// RoleName identifies an agent specialization. The set is closed: roles are
// discovered by scanning for role-prompt files but only names from RoleNames
// are ever generated or selected.
type RoleName string

const (
	RoleSpecification RoleName = "specification"
	RoleManagement    RoleName = "management"
	RoleRedaction     RoleName = "redaction"
	RoleEvaluation    RoleName = "evaluation"
	RoleDeduplication RoleName = "deduplication"
	RoleChroniqueur   RoleName = "chroniqueur"
	RoleRedondance    RoleName = "redondance"
	RoleProduction    RoleName = "production"
	RoleChercheur     RoleName = "chercheur"
	RoleIntegration   RoleName = "integration"
)

// RoleNames is the fixed role set, in bootstrap order.
var RoleNames = []RoleName{
	RoleSpecification,
	RoleManagement,
	RoleRedaction,
	RoleEvaluation,
	RoleDeduplication,
	RoleChroniqueur,
	RoleRedondance,
	RoleProduction,
	RoleChercheur,
	RoleIntegration,
}

var roleEmojis = map[RoleName]string{
	RoleSpecification: "📌",
	RoleManagement:    "🧭",
	RoleRedaction:     "✍️",
	RoleEvaluation:    "⚖️",
	RoleDeduplication: "👥",
	RoleChroniqueur:   "📜",
	RoleRedondance:    "🎭",
	RoleProduction:    "🏭",
	RoleChercheur:     "🔬",
	RoleIntegration:   "🌐",
}

// Emoji returns the cosmetic marker for a role, 🤖 for unknown names.
func (r RoleName) Emoji() string {
	if e, ok := roleEmojis[r]; ok {
		return e
	}
	return "🤖"
}

// Valid reports whether the name belongs to the fixed role set.
func (r RoleName) Valid() bool {
	_, ok := roleEmojis[r]
	return ok
}

// Per-agent artifact names in the mission root. The dotted prefix keeps the
// orchestrator's scratch files out of the walked tree.
const (
	ArtifactPrefix     = ".kiln"
	DefaultMissionFile = ".kiln.mission.md"
	MapFile            = "map.md"
	TodolistFile       = "todolist.md"
)

// RolePromptFile returns the role-prompt path for an agent.
func RolePromptFile(r RoleName) string {
	return fmt.Sprintf("%s.agent.%s.md", ArtifactPrefix, r)
}

// ObjectiveFile returns the per-cycle objective path for an agent.
func ObjectiveFile(r RoleName) string {
	return fmt.Sprintf("%s.objective.%s.md", ArtifactPrefix, r)
}

// ContextMapFile returns the per-cycle context-map path for an agent.
func ContextMapFile(r RoleName) string {
	return fmt.Sprintf("%s.map.%s.md", ArtifactPrefix, r)
}

// HistoryFile returns the editor chat-history path for an agent.
func HistoryFile(r RoleName) string {
	return fmt.Sprintf("%s.history.%s.md", ArtifactPrefix, r)
}

// InputHistoryFile returns the editor input-history path for an agent.
func InputHistoryFile(r RoleName) string {
	return fmt.Sprintf("%s.input.%s.md", ArtifactPrefix, r)
}
