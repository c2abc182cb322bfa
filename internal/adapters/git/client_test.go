package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRepo creates a git repository with one committed file.
func initRepo(t *testing.T) (string, *Client) {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}

	run("init")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.md"), []byte("hello\n"), 0o644))
	run("add", "doc.md")
	run("commit", "-m", "feat: initial document")

	client, err := NewClient(dir)
	require.NoError(t, err)
	return dir, client
}

func TestNewClient_RejectsNonRepo(t *testing.T) {
	t.Parallel()
	_, err := NewClient(t.TempDir())
	require.Error(t, err)
}

func TestListTrackedFiles(t *testing.T) {
	t.Parallel()
	dir, client := initRepo(t)

	states, err := client.ListTrackedFiles(context.Background())
	require.NoError(t, err)
	require.Contains(t, states, "doc.md")
	assert.Len(t, states["doc.md"], 40)

	// Names with spaces survive parsing.
	spaced := filepath.Join(dir, "with space.md")
	require.NoError(t, os.WriteFile(spaced, []byte("x\n"), 0o644))
	cmd := exec.Command("git", "add", "with space.md")
	cmd.Dir = dir
	require.NoError(t, cmd.Run())

	states, err = client.ListTrackedFiles(context.Background())
	require.NoError(t, err)
	assert.Contains(t, states, "with space.md")
}

func TestChangeDetectionAcrossCommits(t *testing.T) {
	t.Parallel()
	dir, client := initRepo(t)
	ctx := context.Background()

	before, err := client.ListTrackedFiles(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.md"), []byte("changed\n"), 0o644))
	cmd := exec.Command("git", "commit", "-am", "content: update doc")
	cmd.Dir = dir
	require.NoError(t, cmd.Run())

	after, err := client.ListTrackedFiles(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, before["doc.md"], after["doc.md"])
}

func TestLatestCommitSummary(t *testing.T) {
	t.Parallel()
	_, client := initRepo(t)

	hash, message, err := client.LatestCommitSummary(context.Background())
	require.NoError(t, err)
	assert.Len(t, hash, 40)
	assert.Equal(t, "feat: initial document", message)
}

func TestPush_NoRemoteFailsBenignly(t *testing.T) {
	t.Parallel()
	_, client := initRepo(t)
	err := client.Push(context.Background())
	require.Error(t, err)
}

func TestConfigureEncoding(t *testing.T) {
	t.Parallel()
	dir, client := initRepo(t)
	require.NoError(t, client.ConfigureEncoding(context.Background()))

	cmd := exec.Command("git", "config", "i18n.commitEncoding")
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	assert.Equal(t, "utf-8\n", string(out))
}

func TestParseCommitType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		message   string
		wantType  string
		wantEmoji string
	}{
		{"feat: add map", "feat", "✨"},
		{"FIX: crash on empty tree", "fix", "🐛"},
		{"docs: clarify usage", "docs", "📚"},
		{"random message", "other", "🔨"},
		{"unknown: prefix", "other", "🔨"},
	}
	for _, tt := range tests {
		gotType, gotEmoji := ParseCommitType(tt.message)
		assert.Equal(t, tt.wantType, gotType, tt.message)
		assert.Equal(t, tt.wantEmoji, gotEmoji, tt.message)
	}
}

func TestCommitDigest(t *testing.T) {
	t.Parallel()
	dir, client := initRepo(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.md"), []byte("v2\n"), 0o644))
	cmd := exec.Command("git", "commit", "-am", "fix: typo")
	cmd.Dir = dir
	require.NoError(t, cmd.Run())

	digest, err := client.CommitDigest(context.Background(), 10)
	require.NoError(t, err)
	assert.Contains(t, digest, "🐛")
	assert.Contains(t, digest, "✨")
	assert.Contains(t, digest, "fix: typo")
}
