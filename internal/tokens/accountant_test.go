package tokens

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ai/kiln/internal/fswalk"
)

// wordCounter counts whitespace-separated words, a deterministic stand-in
// for the provider tokenizer.
type wordCounter struct{}

func (wordCounter) CountTokens(_ context.Context, text string) int {
	return len(strings.Fields(text))
}

func newAccountant(t *testing.T) *Accountant {
	t.Helper()
	return New(wordCounter{}, fswalk.New(fswalk.Options{}, nil), DefaultLimits(), nil)
}

func TestTokensOf(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("one two three"), 0o644))

	a := newAccountant(t)
	assert.Equal(t, 3, a.TokensOf(context.Background(), path))
}

func TestTokensOf_MissingFileIsZero(t *testing.T) {
	t.Parallel()
	a := newAccountant(t)
	assert.Equal(t, 0, a.TokensOf(context.Background(), filepath.Join(t.TempDir(), "absent.md")))
}

func TestTokensOf_InvalidUTF8Replaced(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(path, []byte{'h', 'i', 0xff, 0xfe, ' ', 'x'}, 0o644))

	a := newAccountant(t)
	// Replacement decoding keeps the count total-functional.
	assert.Equal(t, 2, a.TokensOf(context.Background(), path))
}

func TestTotalTokens_SumsNonIgnoredFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("one two"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.md"), []byte("three"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".kiln.objective.production.md"), []byte("ignored words here"), 0o644))

	a := newAccountant(t)
	total, err := a.TotalTokens(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestStatusIcon(t *testing.T) {
	t.Parallel()
	a := newAccountant(t)

	tests := []struct {
		count int
		want  string
	}{
		{0, "✓"},
		{6000, "✓"},
		{6001, "⚠️"},
		{12000, "⚠️"},
		{12001, "🔴"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.StatusIcon(tt.count), "count=%d", tt.count)
	}
}

func TestSizeWarning(t *testing.T) {
	t.Parallel()
	a := newAccountant(t)

	assert.Empty(t, a.SizeWarning("ok.md", 100))
	assert.Contains(t, a.SizeWarning("big.md", 7000), "approaching limit")
	assert.Contains(t, a.SizeWarning("huge.md", 13000), "needs consolidation")
}
