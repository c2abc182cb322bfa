package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ai/kiln/internal/core"
)

type promptCompleter struct {
	fail bool
}

func (p *promptCompleter) Complete(_ context.Context, req core.CompletionRequest) (string, error) {
	if p.fail {
		return "", errors.New("provider down")
	}
	return "MISSION:\n- serve\n\nCONTEXT:\n- here\n\nINSTRUCTIONS:\n- work\n\nRULES:\n- behave", nil
}

func TestCheckMission(t *testing.T) {
	dir := t.TempDir()
	b := NewBootstrapper(dir, "", &promptCompleter{}, nil)

	err := b.CheckMission()
	require.Error(t, err)
	var domainErr *core.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, core.ErrCatConfig, domainErr.Category)
	assert.Contains(t, err.Error(), core.DefaultMissionFile)

	require.NoError(t, os.WriteFile(filepath.Join(dir, core.DefaultMissionFile), []byte("mission"), 0o644))
	require.NoError(t, b.CheckMission())
}

func TestEnsureTaskList(t *testing.T) {
	dir := t.TempDir()
	b := NewBootstrapper(dir, "", &promptCompleter{}, nil)

	require.NoError(t, b.EnsureTaskList())
	data, err := os.ReadFile(filepath.Join(dir, core.TodolistFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Todo List")

	// Existing content is preserved.
	require.NoError(t, os.WriteFile(filepath.Join(dir, core.TodolistFile), []byte("custom"), 0o644))
	require.NoError(t, b.EnsureTaskList())
	data, err = os.ReadFile(filepath.Join(dir, core.TodolistFile))
	require.NoError(t, err)
	assert.Equal(t, "custom", string(data))
}

func TestMissingRoles(t *testing.T) {
	dir := t.TempDir()
	b := NewBootstrapper(dir, "", &promptCompleter{}, nil)
	roles := []core.RoleName{core.RoleProduction, core.RoleRedaction}

	assert.Equal(t, roles, b.MissingRoles(roles, false))

	require.NoError(t, os.WriteFile(filepath.Join(dir, core.RolePromptFile(core.RoleProduction)), []byte("p"), 0o644))
	assert.Equal(t, []core.RoleName{core.RoleRedaction}, b.MissingRoles(roles, false))

	// force regenerates everything.
	assert.Equal(t, roles, b.MissingRoles(roles, true))
}

func TestGenerateAgents_WritesFullRoleSet(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, core.DefaultMissionFile), []byte("Write a novel."), 0o644))
	b := NewBootstrapper(dir, "", &promptCompleter{}, nil)

	require.NoError(t, b.GenerateAgents(context.Background(), core.RoleNames))

	for _, role := range core.RoleNames {
		data, err := os.ReadFile(filepath.Join(dir, core.RolePromptFile(role)))
		require.NoError(t, err, "role %s", role)
		assert.Contains(t, string(data), "MISSION:")
		assert.Contains(t, string(data), "RULES:")
	}
}

func TestGenerateAgents_FailureAbortsStartup(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, core.DefaultMissionFile), []byte("m"), 0o644))
	b := NewBootstrapper(dir, "", &promptCompleter{fail: true}, nil)

	err := b.GenerateAgents(context.Background(), core.RoleNames)
	require.Error(t, err)
	var domainErr *core.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, core.ErrCatConfig, domainErr.Category)
}

func TestGenerateAgents_MissingMission(t *testing.T) {
	b := NewBootstrapper(t.TempDir(), "", &promptCompleter{}, nil)
	err := b.GenerateAgents(context.Background(), core.RoleNames)
	require.Error(t, err)
}
