package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPath(t *testing.T) {
	defs, err := Load("")
	require.NoError(t, err)
	assert.Nil(t, defs)
}

func TestLoad_ParsesScopes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scopes.yaml")
	content := "scopes:\n  - key: team\n    required: true\n  - key: user\n    required: false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	defs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "team", defs[0].Key)
	assert.True(t, defs[0].Required)
	assert.Equal(t, "user", defs[1].Key)
	assert.False(t, defs[1].Required)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/scopes.yaml")
	assert.Error(t, err)
}
