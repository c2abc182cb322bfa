package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiln-ai/kiln/internal/config"
	"github.com/kiln-ai/kiln/internal/core"
	"github.com/kiln-ai/kiln/internal/logging"
)

// agentSystemPrompt frames role-prompt generation.
const agentSystemPrompt = `You are the agent generation component of an autonomous multi-agent development system. Given a mission and a role name, you write the standing configuration prompt for that agent. The prompt will be attached read-only to every editing operation the agent performs.`

// agentUserPrompt is the fill-in template for one role-prompt call.
const agentUserPrompt = `Write the configuration prompt for the %[1]s agent of this mission.

# Mission
%[2]s

# Role
The %[1]s agent specializes in %[3]s.

# Required Output
A markdown document with exactly these sections:

MISSION:
- the agent's standing mission within the project, derived from the mission context

CONTEXT:
- what the agent needs to know about the project structure and its own scope

INSTRUCTIONS:
- how the agent approaches each work cycle, concretely

RULES:
- boundaries the agent must never cross, including files it must not touch

Keep it under 60 lines. Reply with the document only.`

// roleCharters gives the generation call a one-line specialization per role.
var roleCharters = map[core.RoleName]string{
	core.RoleSpecification: "writing and maintaining the project specifications",
	core.RoleManagement:    "coordinating work, priorities and the task list",
	core.RoleRedaction:     "drafting and revising the project's main content",
	core.RoleEvaluation:    "reviewing content against the mission and flagging gaps",
	core.RoleDeduplication: "finding and merging duplicated content",
	core.RoleChroniqueur:   "keeping a running chronicle of project progress",
	core.RoleRedondance:    "building redundancy and cross-references between documents",
	core.RoleProduction:    "producing the core deliverable content",
	core.RoleChercheur:     "researching external information the mission needs",
	core.RoleIntegration:   "integrating contributions into a coherent whole",
}

// Bootstrapper prepares a mission root for its first cycles.
type Bootstrapper struct {
	root        string
	missionFile string
	completer   core.Completer
	logger      *logging.Logger
}

// NewBootstrapper creates a bootstrapper.
func NewBootstrapper(root, missionFile string, completer core.Completer, logger *logging.Logger) *Bootstrapper {
	if logger == nil {
		logger = logging.NewNop()
	}
	if missionFile == "" {
		missionFile = core.DefaultMissionFile
	}
	return &Bootstrapper{
		root:        root,
		missionFile: missionFile,
		completer:   completer,
		logger:      logger,
	}
}

func (b *Bootstrapper) missionPath() string {
	if filepath.IsAbs(b.missionFile) {
		return b.missionFile
	}
	return filepath.Join(b.root, b.missionFile)
}

// CheckMission verifies the mission description exists, returning a fatal
// configuration error with remediation guidance otherwise.
func (b *Bootstrapper) CheckMission() error {
	if _, err := os.Stat(b.missionPath()); err != nil {
		return core.ErrConfig("MISSING_MISSION", fmt.Sprintf(
			"mission description not found\n\n"+
				"To start kiln you need to either:\n"+
				"   1. create a '%s' file in the working directory, or\n"+
				"   2. point at your mission file with --mission\n\n"+
				"Examples:\n"+
				"   kiln run book --generate\n"+
				"   kiln run book --generate --mission path/to/my_mission.md\n\n"+
				"The mission file must contain the description of your project.",
			b.missionFile))
	}
	return nil
}

// EnsureTaskList creates todolist.md when absent. Every cycle edits it.
func (b *Bootstrapper) EnsureTaskList() error {
	path := filepath.Join(b.root, core.TodolistFile)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return config.AtomicWrite(path, []byte("# Todo List\n\n## Pending Tasks\n"))
}

// MissingRoles returns the roles whose prompt files are absent, or the full
// set when force is set.
func (b *Bootstrapper) MissingRoles(roles []core.RoleName, force bool) []core.RoleName {
	if force {
		return roles
	}
	var missing []core.RoleName
	for _, role := range roles {
		if _, err := os.Stat(filepath.Join(b.root, core.RolePromptFile(role))); err != nil {
			missing = append(missing, role)
		}
	}
	return missing
}

// GenerateAgents writes role-prompt files for the given roles. Each role is
// one completion call; a failure aborts the bootstrap so startup can fail
// fast.
func (b *Bootstrapper) GenerateAgents(ctx context.Context, roles []core.RoleName) error {
	mission, err := os.ReadFile(b.missionPath())
	if err != nil {
		return core.ErrConfig("MISSION_UNREADABLE",
			fmt.Sprintf("cannot read mission description %s", b.missionFile)).WithCause(err)
	}

	for _, role := range roles {
		charter := roleCharters[role]
		if charter == "" {
			charter = "supporting the mission"
		}
		prompt := fmt.Sprintf(agentUserPrompt, role, string(mission), charter)

		body, err := b.completer.Complete(ctx, core.CompletionRequest{
			System:   agentSystemPrompt,
			Messages: core.UserMessage(prompt),
		})
		if err != nil {
			return core.ErrConfig("AGENT_GENERATION_FAILED",
				fmt.Sprintf("cannot generate role prompt for %s", role)).WithCause(err)
		}

		path := filepath.Join(b.root, core.RolePromptFile(role))
		if err := config.AtomicWrite(path, []byte(strings.TrimSpace(body)+"\n")); err != nil {
			return core.ErrConfig("AGENT_WRITE_FAILED",
				fmt.Sprintf("cannot write role prompt for %s", role)).WithCause(err)
		}
		b.logger.Success(role.Emoji()+" generated role prompt", "agent", role, "path", core.RolePromptFile(role))
	}
	return nil
}
