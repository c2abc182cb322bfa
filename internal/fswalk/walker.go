// Package fswalk enumerates the mission tree. It is the single source of
// truth for which files belong to the project: the token accountant, the map
// maintainer and the planner all traverse through it, so ignore rules apply
// uniformly.
package fswalk

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kiln-ai/kiln/internal/core"
	"github.com/kiln-ai/kiln/internal/logging"
)

// defaultIgnores are always applied, on top of configured patterns.
// Orchestrator scratch files and editor history stay out of the tree.
var defaultIgnores = []string{
	".git",
	"__pycache__",
	"node_modules",
	".env",
	".aider*",
	".kiln*",
	"*.pyc",
	"*.log",
}

// Options configures a walk.
type Options struct {
	// MaxDepth bounds recursion; 0 means unlimited.
	MaxDepth int
	// IgnorePatterns extends the default ignore set. Patterns match against
	// base names with filepath.Match semantics.
	IgnorePatterns []string
}

// FileInfo is one file entry in the tree.
type FileInfo struct {
	Name string
	// Path is relative to the walk root.
	Path string
}

// Tree is a sorted, nested listing of one directory.
type Tree struct {
	Name     string
	Files    []FileInfo
	Subtrees []*Tree
}

// Walker traverses mission trees with ignore rules and symlink cycle
// detection.
type Walker struct {
	opts   Options
	logger *logging.Logger
}

// New creates a walker.
func New(opts Options, logger *logging.Logger) *Walker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Walker{opts: opts, logger: logger}
}

// Walk traverses root and returns its tree. The only fatal condition is an
// unreadable root; unreadable subentries are skipped and logged.
func (w *Walker) Walk(root string) (*Tree, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, core.ErrWalk("unreadable walk root: " + root).WithCause(err)
	}

	visited := make(map[fileID]struct{})
	if id, ok := identify(root); ok {
		visited[id] = struct{}{}
	}
	return w.walkDir(root, root, filepath.Base(root), 1, visited), nil
}

// Paths returns every file path in the tree, relative to the walk root, in
// traversal order.
func (t *Tree) Paths() []string {
	var paths []string
	t.collect(&paths)
	return paths
}

func (t *Tree) collect(paths *[]string) {
	for _, f := range t.Files {
		*paths = append(*paths, f.Path)
	}
	for _, sub := range t.Subtrees {
		sub.collect(paths)
	}
}

// fileID identifies an inode for symlink cycle detection.
type fileID struct {
	dev uint64
	ino uint64
}

func (w *Walker) walkDir(root, dir, name string, depth int, visited map[fileID]struct{}) *Tree {
	tree := &Tree{Name: name}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Warn("skipping unreadable directory", "dir", dir, "error", err)
		return tree
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if w.ignored(entry.Name()) {
			continue
		}
		full := filepath.Join(dir, entry.Name())

		isDir := entry.IsDir()
		if entry.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(full)
			if err != nil {
				w.logger.Warn("skipping broken symlink", "path", full, "error", err)
				continue
			}
			isDir = target.IsDir()
			if isDir {
				id, ok := identify(full)
				if !ok {
					continue
				}
				if _, seen := visited[id]; seen {
					w.logger.Warn("skipping symlink cycle", "path", full)
					continue
				}
				visited[id] = struct{}{}
			}
		}

		if isDir {
			if w.opts.MaxDepth > 0 && depth >= w.opts.MaxDepth {
				continue
			}
			tree.Subtrees = append(tree.Subtrees, w.walkDir(root, full, entry.Name(), depth+1, visited))
			continue
		}

		rel, err := filepath.Rel(root, full)
		if err != nil {
			continue
		}
		tree.Files = append(tree.Files, FileInfo{Name: entry.Name(), Path: rel})
	}

	return tree
}

func (w *Walker) ignored(name string) bool {
	for _, pattern := range defaultIgnores {
		if matchPattern(pattern, name) {
			return true
		}
	}
	for _, pattern := range w.opts.IgnorePatterns {
		if matchPattern(pattern, name) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, name string) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		return pattern == name
	}
	ok, err := filepath.Match(pattern, name)
	return err == nil && ok
}
