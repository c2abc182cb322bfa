package editor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ai/kiln/internal/core"
)

func TestRun_Success(t *testing.T) {
	t.Parallel()
	r := NewRunner(Config{Path: "sh", WorkDir: t.TempDir()}, nil)

	var mu sync.Mutex
	var lines []string
	r.SetLineCallback(func(stream, line string) {
		mu.Lock()
		lines = append(lines, stream+":"+line)
		mu.Unlock()
	})

	result, err := r.Run(context.Background(), []string{"-c", "echo out; echo err >&2"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, lines, "stdout:out")
	assert.Contains(t, lines, "stderr:err")
}

func TestRun_NonZeroExit(t *testing.T) {
	t.Parallel()
	r := NewRunner(Config{Path: "sh", WorkDir: t.TempDir()}, nil)

	result, err := r.Run(context.Background(), []string{"-c", "exit 3"})
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 3, result.ExitCode)

	var domainErr *core.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, core.ErrCatEditor, domainErr.Category)
}

func TestRun_MultiWordPath(t *testing.T) {
	t.Parallel()
	r := NewRunner(Config{Path: "sh -c", WorkDir: t.TempDir()}, nil)

	result, err := r.Run(context.Background(), []string{"true"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
}

func TestRun_PhaseTimeout(t *testing.T) {
	t.Parallel()
	r := NewRunner(Config{Path: "sleep", WorkDir: t.TempDir(), PhaseTimeout: 50 * time.Millisecond}, nil)

	_, err := r.Run(context.Background(), []string{"5"})
	require.Error(t, err)

	var domainErr *core.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, core.ErrCatTimeout, domainErr.Category)
}

func TestRun_MissingPath(t *testing.T) {
	t.Parallel()
	r := NewRunner(Config{WorkDir: t.TempDir()}, nil)
	_, err := r.Run(context.Background(), nil)
	require.Error(t, err)
}

func TestEnviron_PrependsPackageDir(t *testing.T) {
	t.Parallel()
	r := NewRunner(Config{Path: "true", PackageDir: "/opt/aider/bin"}, nil)

	var pathVal string
	for _, kv := range r.environ() {
		if len(kv) > 5 && kv[:5] == "PATH=" {
			pathVal = kv[5:]
		}
	}
	require.NotEmpty(t, pathVal)
	assert.True(t, strings.HasPrefix(pathVal, "/opt/aider/bin"))
}
