package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	s, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set("embedding.model", "text-embedding-3-small"))
	require.NoError(t, s.Set("retrieval.top_k", 5))
	require.NoError(t, s.Set("composer.relevance_floor", 0.25))

	assert.Equal(t, "text-embedding-3-small", s.GetString("embedding.model"))
	assert.Equal(t, 5, s.GetInt("retrieval.top_k"))
	assert.Equal(t, 0.25, s.GetFloat("composer.relevance_floor"))

	_, ok := s.Get("missing")
	assert.False(t, ok)
}

func TestZeroValuesForWrongTypes(t *testing.T) {
	s, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set("key", "not a number"))
	assert.Equal(t, 0, s.GetInt("key"))
	assert.Equal(t, 0.0, s.GetFloat("key"))
	assert.Equal(t, "", s.GetString("missing"))
}

func TestPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	s1, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Set("index.path", "/tmp/index.gob"))

	s2, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/index.gob", s2.GetString("index.path"))
}

func TestFlattensNestedTables(t *testing.T) {
	dir := t.TempDir()
	content := "[chunking]\ntextbook_size = 1500\n\n[chunking.nested]\nvalue = \"deep\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	s, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 1500, s.GetInt("chunking.textbook_size"))
	assert.Equal(t, "deep", s.GetString("chunking.nested.value"))
}
