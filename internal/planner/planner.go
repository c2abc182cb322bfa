// Package planner produces, for a given agent, the cycle objective and the
// context map that bound the editor's next operation. Both delegate to the
// language-model capability; planning is not deterministic, but re-running
// it for one agent only ever overwrites that agent's artifacts.
package planner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiln-ai/kiln/internal/config"
	"github.com/kiln-ai/kiln/internal/core"
	"github.com/kiln-ai/kiln/internal/fswalk"
	"github.com/kiln-ai/kiln/internal/logging"
	"github.com/kiln-ai/kiln/internal/phase"
)

// Options configures the planner.
type Options struct {
	// MissionFile is the mission-description path relative to the root.
	MissionFile string
	// HistoryTailChars bounds the chat-history excerpt in objective prompts.
	HistoryTailChars int
	// Temperature and MaxTokens are passed through to objective calls.
	Temperature float64
	MaxTokens   int
}

// DefaultOptions mirror the configured defaults.
func DefaultOptions() Options {
	return Options{
		MissionFile:      core.DefaultMissionFile,
		HistoryTailChars: 25000,
		Temperature:      0.7,
		MaxTokens:        2000,
	}
}

// Planner generates objectives and context maps.
type Planner struct {
	root      string
	opts      Options
	completer core.Completer
	phases    *phase.Controller
	walker    *fswalk.Walker
	logger    *logging.Logger
	now       func() time.Time
}

// New creates a planner rooted at the mission directory.
func New(root string, opts Options, completer core.Completer, phases *phase.Controller, walker *fswalk.Walker, logger *logging.Logger) *Planner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.MissionFile == "" {
		opts.MissionFile = core.DefaultMissionFile
	}
	if opts.HistoryTailChars <= 0 {
		opts.HistoryTailChars = 25000
	}
	return &Planner{
		root:      root,
		opts:      opts,
		completer: completer,
		phases:    phases,
		walker:    walker,
		logger:    logger,
		now:       time.Now,
	}
}

// PlanObjective generates and persists the next objective for an agent.
func (p *Planner) PlanObjective(ctx context.Context, agent core.RoleName, cycle core.CycleID) (*core.Objective, error) {
	mission, err := p.readMission()
	if err != nil {
		return nil, err
	}

	rolePrompt, err := p.readArtifact(core.RolePromptFile(agent))
	if err != nil {
		return nil, core.ErrPlan("ROLE_PROMPT_UNREADABLE",
			fmt.Sprintf("cannot read role prompt for %s", agent)).WithCause(err)
	}

	history := p.historyTail(agent)
	currentPhase := p.phases.Current()

	guidance := expansionGuidance
	if currentPhase == phase.Convergence {
		guidance = convergenceGuidance
	}

	prompt := fmt.Sprintf(objectiveUserPrompt,
		agent, mission, string(rolePrompt), history, currentPhase, guidance)

	body, err := p.completer.Complete(ctx, core.CompletionRequest{
		System:      objectiveSystemPrompt,
		Messages:    core.UserMessage(prompt),
		Temperature: p.opts.Temperature,
		MaxTokens:   p.opts.MaxTokens,
	})
	if err != nil {
		return nil, core.ErrPlan("OBJECTIVE_FAILED",
			fmt.Sprintf("objective generation failed for %s", agent)).WithCause(err)
	}

	obj := &core.Objective{
		Agent:     agent,
		Cycle:     cycle,
		Body:      body,
		Summary:   p.summarize(ctx, agent, body),
		CreatedAt: p.now(),
	}

	if err := p.writeObjective(obj); err != nil {
		return nil, err
	}

	p.logger.Success(obj.Summary, "agent", agent)
	return obj, nil
}

// summarize produces the one-line objective summary, falling back to a
// deterministic local sentence when the model call fails.
func (p *Planner) summarize(ctx context.Context, agent core.RoleName, body string) string {
	prompt := fmt.Sprintf(summaryUserPrompt, agent, agent.Emoji(), body)
	summary, err := p.completer.Complete(ctx, core.CompletionRequest{
		System:      summarySystemPrompt,
		Messages:    core.UserMessage(prompt),
		Temperature: 0.3,
		MaxTokens:   100,
	})
	if err != nil {
		p.logger.Warn("summary generation failed", "agent", agent, "error", err)
		return fmt.Sprintf("Agent %s %s will carry out a new task", agent, agent.Emoji())
	}
	return strings.TrimSpace(summary)
}

// PlanContext generates and persists the context map bounding the agent's
// next editing operation.
func (p *Planner) PlanContext(ctx context.Context, agent core.RoleName, obj *core.Objective) (*core.ContextMap, error) {
	mission, err := p.readMission()
	if err != nil {
		return nil, err
	}

	rolePrompt, err := p.readArtifact(core.RolePromptFile(agent))
	if err != nil {
		return nil, core.ErrPlan("ROLE_PROMPT_UNREADABLE",
			fmt.Sprintf("cannot read role prompt for %s", agent)).WithCause(err)
	}

	tree, err := p.walker.Walk(p.root)
	if err != nil {
		return nil, core.ErrPlan("TREE_WALK_FAILED", "cannot walk project tree").WithCause(err)
	}

	prompt := fmt.Sprintf(contextUserPrompt,
		agent, mission, string(rolePrompt), obj.Body, strings.Join(tree.Paths(), "\n"))

	reply, err := p.completer.Complete(ctx, core.CompletionRequest{
		System:   contextSystemPrompt,
		Messages: core.UserMessage(prompt),
	})
	if err != nil {
		return nil, core.ErrPlan("CONTEXT_FAILED",
			fmt.Sprintf("context-map generation failed for %s", agent)).WithCause(err)
	}

	cm := p.parseContextMap(agent, reply)

	// Every listed file must exist before the editor is launched: missing
	// editable entries are created empty so they are addressable.
	for _, rel := range cm.Editable {
		full := filepath.Join(p.root, rel)
		if _, err := os.Stat(full); os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				p.logger.Warn("cannot create directory for context file", "path", rel, "error", err)
				continue
			}
			if err := os.WriteFile(full, nil, 0o644); err != nil {
				p.logger.Warn("cannot create context file", "path", rel, "error", err)
			}
		}
	}

	if err := p.writeContextMap(cm); err != nil {
		return nil, err
	}
	return cm, nil
}

// parseContextMap extracts the editable and read-only partitions from the
// model reply. Entries outside the mission root are dropped.
func (p *Planner) parseContextMap(agent core.RoleName, reply string) *core.ContextMap {
	cm := &core.ContextMap{Agent: agent}

	section := ""
	for _, line := range strings.Split(reply, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "#") && strings.Contains(lower, "editable"):
			section = "editable"
			continue
		case strings.HasPrefix(lower, "#") && strings.Contains(lower, "read"):
			section = "readonly"
			continue
		}
		if !strings.HasPrefix(trimmed, "- ") {
			continue
		}
		entry := strings.TrimSpace(strings.TrimPrefix(trimmed, "- "))
		entry = strings.Trim(entry, "`")
		if entry == "" || !p.safeRelPath(entry) {
			continue
		}
		switch section {
		case "editable":
			cm.Editable = append(cm.Editable, filepath.Clean(entry))
		case "readonly":
			cm.ReadOnly = append(cm.ReadOnly, filepath.Clean(entry))
		}
	}

	// The dashboard and the mission description always ride along read-only.
	cm.ReadOnly = appendMissing(cm.ReadOnly, core.MapFile)
	cm.ReadOnly = appendMissing(cm.ReadOnly, p.opts.MissionFile)

	return cm
}

// safeRelPath rejects absolute paths and escapes from the mission root.
func (p *Planner) safeRelPath(entry string) bool {
	if filepath.IsAbs(entry) {
		return false
	}
	clean := filepath.Clean(entry)
	return clean != ".." && !strings.HasPrefix(clean, ".."+string(filepath.Separator))
}

func appendMissing(list []string, entry string) []string {
	for _, e := range list {
		if e == entry {
			return list
		}
	}
	return append(list, entry)
}

func (p *Planner) readMission() (string, error) {
	path := p.opts.MissionFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", core.ErrPlan("MISSION_UNREADABLE",
			fmt.Sprintf("cannot read mission description %s", p.opts.MissionFile)).WithCause(err)
	}
	return string(data), nil
}

// readArtifact reads a per-agent artifact through a root opened at the
// mission directory, so a name assembled from agent input can never resolve
// outside the mission.
func (p *Planner) readArtifact(name string) ([]byte, error) {
	root, err := os.OpenRoot(p.root)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	file, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// historyTail returns the last HistoryTailChars of the agent's chat history,
// empty when no history exists yet.
func (p *Planner) historyTail(agent core.RoleName) string {
	data, err := p.readArtifact(core.HistoryFile(agent))
	if err != nil {
		return ""
	}
	text := string(data)
	if len(text) > p.opts.HistoryTailChars {
		return text[len(text)-p.opts.HistoryTailChars:]
	}
	return text
}

func (p *Planner) writeObjective(obj *core.Objective) error {
	var b strings.Builder
	fmt.Fprintf(&b, "<!-- agent: %s | cycle: %s | generated: %s -->\n\n",
		obj.Agent, obj.Cycle, obj.CreatedAt.Format(time.RFC3339))
	b.WriteString(obj.Body)
	b.WriteString("\n")

	path := filepath.Join(p.root, core.ObjectiveFile(obj.Agent))
	if err := config.AtomicWrite(path, []byte(b.String())); err != nil {
		return core.ErrPlan("OBJECTIVE_WRITE",
			fmt.Sprintf("cannot write objective for %s", obj.Agent)).WithCause(err)
	}
	return nil
}

func (p *Planner) writeContextMap(cm *core.ContextMap) error {
	var b strings.Builder
	b.WriteString("# Editable\n")
	for _, f := range cm.Editable {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\n# Read-Only\n")
	for _, f := range cm.ReadOnly {
		fmt.Fprintf(&b, "- %s\n", f)
	}

	path := filepath.Join(p.root, core.ContextMapFile(cm.Agent))
	if err := config.AtomicWrite(path, []byte(b.String())); err != nil {
		return core.ErrPlan("CONTEXT_WRITE",
			fmt.Sprintf("cannot write context map for %s", cm.Agent)).WithCause(err)
	}
	return nil
}
