// Package git implements the version-control capability by shelling out to
// the git CLI. The orchestrator only reads snapshots and summaries here;
// commits are produced by the editor subprocess.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiln-ai/kiln/internal/core"
)

// Compile-time interface conformance check.
var _ core.VCS = (*Client)(nil)

// Client wraps git CLI operations against one repository.
type Client struct {
	repoPath string
	timeout  time.Duration
	remote   string
}

// Option configures a client.
type Option func(*Client)

// WithTimeout bounds individual git commands.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRemote sets the push remote.
func WithRemote(remote string) Option {
	return func(c *Client) { c.remote = remote }
}

// NewClient creates a git client rooted at repoPath.
func NewClient(repoPath string, opts ...Option) (*Client, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	client := &Client{
		repoPath: absPath,
		timeout:  30 * time.Second,
		remote:   "origin",
	}
	for _, opt := range opts {
		opt(client)
	}

	if err := client.verifyRepo(); err != nil {
		return nil, err
	}

	return client, nil
}

// verifyRepo checks if path is a git repository.
func (c *Client) verifyRepo() error {
	_, err := c.run(context.Background(), "rev-parse", "--git-dir")
	if err != nil {
		return core.ErrConfig("NOT_GIT_REPO", fmt.Sprintf("%s is not a git repository", c.repoPath))
	}
	return nil
}

// run executes a git command.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// exec.CommandContext does not invoke a shell, so arguments are not
	// subject to shell interpolation.
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.repoPath

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", core.ErrTimeout("git command timed out")
		}
		return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), stderr.String(), err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// ListTrackedFiles returns the current index state as path -> blob hash
// (implements core.VCS).
func (c *Client) ListTrackedFiles(ctx context.Context) (map[string]string, error) {
	output, err := c.run(ctx, "ls-files", "-s")
	if err != nil {
		return nil, core.ErrVCS("SNAPSHOT_FAILED", "cannot list tracked files").WithCause(err)
	}

	states := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		// Format: <mode> <hash> <stage>\t<path>; the path may contain spaces.
		meta, path, found := strings.Cut(line, "\t")
		if !found {
			// Older porcelain renders stage and path space-separated.
			parts := strings.Fields(line)
			if len(parts) < 4 {
				continue
			}
			states[strings.Join(parts[3:], " ")] = parts[1]
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) < 2 {
			continue
		}
		states[path] = fields[1]
	}
	return states, nil
}

// LatestCommitSummary returns the most recent commit hash and subject
// (implements core.VCS).
func (c *Client) LatestCommitSummary(ctx context.Context) (string, string, error) {
	output, err := c.run(ctx, "log", "-1", "--format=%H%x00%s")
	if err != nil {
		return "", "", core.ErrVCS("LOG_FAILED", "cannot read latest commit").WithCause(err)
	}
	hash, message, found := strings.Cut(output, "\x00")
	if !found {
		return "", "", core.ErrVCS("LOG_MALFORMED", "unexpected git log output")
	}
	return hash, message, nil
}

// Push attempts to publish to the configured remote (implements core.VCS).
// Callers treat failure as benign: the remote may not be configured.
func (c *Client) Push(ctx context.Context) error {
	if _, err := c.run(ctx, "push", c.remote); err != nil {
		return core.ErrVCS("PUSH_FAILED", "push failed").WithCause(err)
	}
	return nil
}

// ConfigureEncoding sets commit-message encoding to UTF-8 (implements
// core.VCS). Called once at startup.
func (c *Client) ConfigureEncoding(ctx context.Context) error {
	if _, err := c.run(ctx, "config", "i18n.commitEncoding", "utf-8"); err != nil {
		return core.ErrVCS("CONFIG_FAILED", "cannot set commit encoding").WithCause(err)
	}
	return nil
}
