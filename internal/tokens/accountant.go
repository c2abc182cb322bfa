// Package tokens reports the token cost of individual files and of the whole
// project. Counts come from the provider's tokenizer and are advisory: they
// drive phase decisions and map icons, never billing.
package tokens

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kiln-ai/kiln/internal/core"
	"github.com/kiln-ai/kiln/internal/fswalk"
	"github.com/kiln-ai/kiln/internal/logging"
)

// Limits holds the per-file size thresholds behind map status icons.
type Limits struct {
	Warning int
	Error   int
}

// DefaultLimits mirror the configured defaults.
func DefaultLimits() Limits {
	return Limits{Warning: 6000, Error: 12000}
}

// Accountant counts tokens per file and per project.
type Accountant struct {
	counter core.TokenCounter
	walker  *fswalk.Walker
	limits  Limits
	logger  *logging.Logger
}

// New creates an accountant.
func New(counter core.TokenCounter, walker *fswalk.Walker, limits Limits, logger *logging.Logger) *Accountant {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Accountant{counter: counter, walker: walker, limits: limits, logger: logger}
}

// TokensOf returns the token count of one file. Read failures count as 0
// with a warning; invalid UTF-8 is replacement-decoded first.
func (a *Accountant) TokensOf(ctx context.Context, path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		a.logger.Warn("cannot read file for token count", "path", path, "error", err)
		return 0
	}
	return a.counter.CountTokens(ctx, decodeLossy(data))
}

// TotalTokens walks the tree under root and sums tokens over every
// non-ignored file.
func (a *Accountant) TotalTokens(ctx context.Context, root string) (int, error) {
	tree, err := a.walker.Walk(root)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, rel := range tree.Paths() {
		total += a.TokensOf(ctx, filepath.Join(root, rel))
	}
	return total, nil
}

// StatusIcon maps a token count to the map.md marker.
func (a *Accountant) StatusIcon(count int) string {
	switch {
	case count > a.limits.Error:
		return "🔴"
	case count > a.limits.Warning:
		return "⚠️"
	default:
		return "✓"
	}
}

// SizeWarning returns a warning line for files past a threshold, empty
// otherwise.
func (a *Accountant) SizeWarning(name string, count int) string {
	switch {
	case count > a.limits.Error:
		return fmt.Sprintf("🔴 %s needs consolidation (>%.1fk tokens)", name, float64(a.limits.Error)/1000)
	case count > a.limits.Warning:
		return fmt.Sprintf("⚠️ %s approaching limit (>%.1fk tokens)", name, float64(a.limits.Warning)/1000)
	default:
		return ""
	}
}

// decodeLossy replaces invalid UTF-8 sequences so the tokenizer always
// receives valid text.
func decodeLossy(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}
