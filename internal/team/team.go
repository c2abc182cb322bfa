// Package team loads named team configurations: which roles run for a
// mission and how heavily each is weighted per project phase.
package team

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kiln-ai/kiln/internal/config"
	"github.com/kiln-ai/kiln/internal/core"
	"github.com/kiln-ai/kiln/internal/logging"
	"github.com/kiln-ai/kiln/internal/phase"
)

// DefaultWeight applies when an agent entry has no weight for the current
// phase.
const DefaultWeight = 0.5

// Agent is one role entry in a team.
type Agent struct {
	Name   core.RoleName `yaml:"name"`
	Weight float64       `yaml:"weight"`
	// PhaseWeights overrides Weight per project phase.
	PhaseWeights map[string]float64 `yaml:"phase_weights,omitempty"`
}

// Team is a named set of agent roles drawn together for a mission.
type Team struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Agents      []Agent `yaml:"agents"`
}

// Roles returns the team's role names.
func (t *Team) Roles() []core.RoleName {
	roles := make([]core.RoleName, 0, len(t.Agents))
	for _, a := range t.Agents {
		roles = append(roles, a.Name)
	}
	return roles
}

// Weight returns the selection weight of a role under a project phase,
// falling back to the agent's base weight and then to DefaultWeight.
func (t *Team) Weight(role core.RoleName, p phase.Phase) float64 {
	for _, a := range t.Agents {
		if a.Name != role {
			continue
		}
		if w, ok := a.PhaseWeights[string(p)]; ok {
			return w
		}
		if a.Weight > 0 {
			return a.Weight
		}
		return DefaultWeight
	}
	return DefaultWeight
}

// Validate checks the team definition against the fixed role set.
func (t *Team) Validate() error {
	if len(t.Agents) == 0 {
		return core.ErrConfig("EMPTY_TEAM", fmt.Sprintf("team %q defines no agents", t.Name))
	}
	for _, a := range t.Agents {
		if !a.Name.Valid() {
			return core.ErrConfig("UNKNOWN_ROLE",
				fmt.Sprintf("team %q references unknown role %q", t.Name, a.Name))
		}
	}
	return nil
}

// Store loads teams from .kiln/teams/<name>.yaml under the mission root.
type Store struct {
	root   string
	logger *logging.Logger
}

// NewStore creates a team store.
func NewStore(root string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{root: root, logger: logger}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.root, ".kiln", "teams", name+".yaml")
}

// Load returns the named team. When no definition exists on disk, a default
// team over the full role set is generated and persisted so the operator can
// tune it.
func (s *Store) Load(name string) (*Team, error) {
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		s.logger.Info("team definition not found, generating default", "team", name)
		return s.generateDefault(name)
	}
	if err != nil {
		return nil, core.ErrConfig("TEAM_UNREADABLE",
			fmt.Sprintf("cannot read team definition for %q", name)).WithCause(err)
	}

	var t Team
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, core.ErrConfig("TEAM_MALFORMED",
			fmt.Sprintf("cannot parse team definition for %q", name)).WithCause(err)
	}
	if t.Name == "" {
		t.Name = name
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// generateDefault writes and returns the default team over the full role
// set. Production leads in expansion; evaluation and deduplication lead in
// convergence.
func (s *Store) generateDefault(name string) (*Team, error) {
	t := &Team{
		Name:        name,
		Description: "Auto-generated team configuration for " + name,
	}
	for _, role := range core.RoleNames {
		agent := Agent{Name: role, Weight: DefaultWeight}
		switch role {
		case core.RoleProduction:
			agent.Weight = 1.0
			agent.PhaseWeights = map[string]float64{string(phase.Convergence): 0.4}
		case core.RoleRedaction:
			agent.Weight = 0.8
		case core.RoleSpecification:
			agent.Weight = 0.4
		case core.RoleManagement:
			agent.Weight = 0.6
		case core.RoleEvaluation:
			agent.Weight = 0.3
			agent.PhaseWeights = map[string]float64{string(phase.Convergence): 0.8}
		case core.RoleDeduplication:
			agent.PhaseWeights = map[string]float64{string(phase.Convergence): 0.9}
		case core.RoleChercheur:
			agent.Weight = 0.2
		}
		t.Agents = append(t.Agents, agent)
	}

	data, err := yaml.Marshal(t)
	if err != nil {
		return nil, core.ErrConfig("TEAM_ENCODE", "cannot encode default team").WithCause(err)
	}
	if err := config.AtomicWrite(s.path(name), data); err != nil {
		return nil, core.ErrConfig("TEAM_WRITE",
			fmt.Sprintf("cannot write default team definition for %q", name)).WithCause(err)
	}
	s.logger.Success("generated default team definition", "team", name, "path", s.path(name))
	return t, nil
}
