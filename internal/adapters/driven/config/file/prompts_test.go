package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/previsit-labs/previsit-cli/internal/core/ports/driven"
)

func TestLoadReturnsDefaults(t *testing.T) {
	s, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{
		driven.PromptFollowup,
		driven.PromptTriageSystem,
		driven.PromptTriageReformat,
		driven.PromptScopeClassifier,
	} {
		prompt, err := s.Load(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, prompt, name)
	}
}

func TestLoadCreatesEditableFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = s.Load(driven.PromptFollowup)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, driven.PromptFollowup+".txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "README.md"))
	assert.NoError(t, err)
}

func TestUserEditWinsAfterReload(t *testing.T) {
	dir := t.TempDir()
	s, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = s.Load(driven.PromptTriageSystem)
	require.NoError(t, err)

	custom := "Custom triage instruction."
	path := filepath.Join(dir, driven.PromptTriageSystem+".txt")
	require.NoError(t, os.WriteFile(path, []byte(custom), 0600))

	s.Reload()
	prompt, err := s.Load(driven.PromptTriageSystem)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestUnknownPromptErrors(t *testing.T) {
	s, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Load("no_such_prompt")
	assert.Error(t, err)
}
