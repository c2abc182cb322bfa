// Package projectmap renders map.md, the human-readable project dashboard.
// The map doubles as planner input: it is usually handed to agent cycles as
// read-only context, so its layout is stable.
package projectmap

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kiln-ai/kiln/internal/config"
	"github.com/kiln-ai/kiln/internal/core"
	"github.com/kiln-ai/kiln/internal/fswalk"
	"github.com/kiln-ai/kiln/internal/logging"
	"github.com/kiln-ai/kiln/internal/phase"
	"github.com/kiln-ai/kiln/internal/tokens"
)

// Maintainer regenerates map.md from the current tree.
type Maintainer struct {
	root       string
	walker     *fswalk.Walker
	accountant *tokens.Accountant
	phases     *phase.Controller
	logger     *logging.Logger
	now        func() time.Time
}

// New creates a maintainer for the mission root.
func New(root string, walker *fswalk.Walker, accountant *tokens.Accountant, phases *phase.Controller, logger *logging.Logger) *Maintainer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Maintainer{
		root:       root,
		walker:     walker,
		accountant: accountant,
		phases:     phases,
		logger:     logger,
		now:        time.Now,
	}
}

// Generate rewrites map.md atomically. It never panics and reports failure
// through the return value only.
func (m *Maintainer) Generate(ctx context.Context) bool {
	tree, err := m.walker.Walk(m.root)
	if err != nil {
		m.logger.Error("map generation failed", "error", err)
		return false
	}

	var lines []string
	var warnings []string
	total := m.renderTree(ctx, tree, "", &lines, &warnings)

	// Feed the fresh observation through the controller so the rendered
	// phase matches the tree being rendered.
	m.phases.Evaluate(total)
	content := m.format(lines, warnings)

	if err := config.AtomicWrite(filepath.Join(m.root, core.MapFile), []byte(content)); err != nil {
		m.logger.Error("map write failed", "error", err)
		return false
	}
	return true
}

// Update regenerates the map after file changes.
func (m *Maintainer) Update(ctx context.Context) bool {
	return m.Generate(ctx)
}

// renderTree walks the tree depth-first producing ├──/└── lines, and returns
// the token total over all rendered files.
func (m *Maintainer) renderTree(ctx context.Context, tree *fswalk.Tree, prefix string, lines *[]string, warnings *[]string) int {
	total := 0

	type entry struct {
		name  string
		isDir bool
		file  *fswalk.FileInfo
		sub   *fswalk.Tree
	}
	var entries []entry
	for i := range tree.Files {
		entries = append(entries, entry{name: tree.Files[i].Name, file: &tree.Files[i]})
	}
	for _, sub := range tree.Subtrees {
		entries = append(entries, entry{name: sub.Name, isDir: true, sub: sub})
	}
	// Interleave files and directories in name order, matching a plain
	// sorted directory listing.
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	for i, e := range entries {
		last := i == len(entries)-1
		connector := "├── "
		childPrefix := prefix + "│   "
		if last {
			connector = "└── "
			childPrefix = prefix + "    "
		}

		if e.isDir {
			*lines = append(*lines, fmt.Sprintf("%s%s📁 %s/", prefix, connector, e.name))
			total += m.renderTree(ctx, e.sub, childPrefix, lines, warnings)
			continue
		}

		count := m.accountant.TokensOf(ctx, filepath.Join(m.root, e.file.Path))
		total += count
		icon := m.accountant.StatusIcon(count)
		*lines = append(*lines, fmt.Sprintf("%s%s📄 %s (%.1fk tokens) %s", prefix, connector, e.name, float64(count)/1000, icon))

		if w := m.accountant.SizeWarning(e.name, count); w != "" {
			*warnings = append(*warnings, w)
		}
	}

	return total
}

func (m *Maintainer) format(treeLines, warnings []string) string {
	status := m.phases.Status()
	cfg := m.phases.Config()

	content := []string{
		"# Project Map",
		"",
		"This document is a living map of the project, regenerated automatically to give an overview of its structure and state. It tracks:",
		"- the full file tree",
		"- the size of each document in tokens",
		"- the current project phase (EXPANSION/CONVERGENCE)",
		"- warnings and consolidation recommendations",
		"",
		"The status markers (✓, ⚠️, 🔴) flag files that need attention.",
		"",
		fmt.Sprintf("Generated: %s", m.now().Format("2006-01-02 15:04:05")),
		"",
		"## Project Phase",
		m.phaseDescription(status.Phase, cfg),
		"",
		"## Token Usage",
		fmt.Sprintf("Total: %.1fk/%.0fk (%.1f%%)",
			float64(status.TotalTokens)/1000,
			float64(cfg.ModelTokenLimit)/1000,
			status.UsagePercent),
		fmt.Sprintf("Convergence at: %.1fk (%.0f%%)",
			float64(cfg.ConvergenceTokens())/1000,
			cfg.ConvergenceRatio*100),
		"",
		"## Phase Status",
		fmt.Sprintf("%s %s", status.StatusIcon, status.StatusMessage),
		fmt.Sprintf("Headroom: %.1fk tokens", float64(status.HeadroomTokens)/1000),
		"",
		"## Document Tree",
		"📁 Project",
	}

	content = append(content, treeLines...)

	if len(warnings) > 0 {
		content = append(content, "", "## Warnings")
		content = append(content, warnings...)
	}

	return strings.Join(content, "\n") + "\n"
}

func (m *Maintainer) phaseDescription(p phase.Phase, cfg phase.Config) string {
	if p == phase.Expansion {
		return strings.Join([]string{
			"🌱 EXPANSION PHASE",
			"In this phase, agents focus on content creation and development:",
			"- Free to create new content and sections",
			"- Normal operation of all agents",
			"- Regular token monitoring",
			fmt.Sprintf("- Will transition to CONVERGENCE at %.1fk tokens", float64(cfg.ConvergenceTokens())/1000),
		}, "\n")
	}
	return strings.Join([]string{
		"🔄 CONVERGENCE PHASE",
		"In this phase, agents focus on optimization and consolidation:",
		"- Limited new content creation",
		"- Focus on reducing token usage",
		"- Emphasis on content optimization",
		fmt.Sprintf("- Can return to EXPANSION below %.1fk tokens", float64(cfg.ExpansionTokens())/1000),
	}, "\n")
}
