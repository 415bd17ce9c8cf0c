package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/synapse/internal/errors"
)

const appConfig = `
name  = "demo"
debug = true
ratio = 0.5

http {
  port  = 8080
  hosts = ["a", "b"]
}

db "primary" {
  dsn = "postgres://${env.SYNAPSE_TEST_DB_HOST}/app"
}

labels = {
  team = upper("core")
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRepository_LoadSource(t *testing.T) {
	t.Setenv("SYNAPSE_TEST_DB_HOST", "db.internal")

	repo := NewRepository()
	require.NoError(t, repo.LoadSource([]byte(appConfig), "app.hcl"))

	tests := []struct {
		key  string
		want any
	}{
		{"name", "demo"},
		{"debug", true},
		{"ratio", 0.5},
		{"http.port", int64(8080)},
		{"http.hosts", []any{"a", "b"}},
		{"db.primary.dsn", "postgres://db.internal/app"},
		{"labels.team", "CORE"},
		{"labels", map[string]any{"team": "CORE"}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := repo.Lookup(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := repo.Lookup("http")
	assert.False(t, ok, "blocks are not values")
	assert.Equal(t, "fallback", repo.String("missing", "fallback"))
	assert.Equal(t, "fallback", repo.String("http.port", "fallback"))
	assert.Equal(t, int64(8080), repo.Get("http.port", 0))
}

func TestRepository_Errors(t *testing.T) {
	repo := NewRepository()

	err := repo.LoadSource([]byte("name = \n"), "broken.hcl")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ConfigurationErrorCode))
	assert.Contains(t, err.Error(), "broken.hcl")

	err = repo.LoadSource([]byte("name = undefined_var\n"), "vars.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluate")
}

func TestRepository_LoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.hcl", "name = \"first\"\nport = 1\n")
	writeFile(t, dir, "nested/b.hcl", "name = \"second\"\n")
	writeFile(t, dir, "notes.txt", "ignored")

	repo := NewRepository()
	require.NoError(t, repo.Load(dir, filepath.Join(dir, "missing")))

	assert.Equal(t, "second", repo.String("name", ""), "later files override earlier ones")
	assert.Equal(t, int64(1), repo.Get("port", nil))
	assert.Equal(t, []string{filepath.Join(dir, "a.hcl"), filepath.Join(dir, "nested", "b.hcl")}, repo.Files())
	assert.Equal(t, []string{"name", "port"}, repo.Keys())

	repo.Set("port", 2)
	assert.Equal(t, 2, repo.Get("port", nil))
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "SYNAPSE_TEST_NAME=from-file\nSYNAPSE_TEST_DEBUG=true\n")

	t.Setenv("SYNAPSE_TEST_NAME", "")
	require.NoError(t, os.Unsetenv("SYNAPSE_TEST_NAME"))
	t.Setenv("SYNAPSE_TEST_DEBUG", "")
	require.NoError(t, os.Unsetenv("SYNAPSE_TEST_DEBUG"))

	loaded, err := LoadEnv(filepath.Join(dir, "missing.env"), envFile)
	require.NoError(t, err)
	assert.Equal(t, []string{envFile}, loaded)
	assert.Equal(t, "from-file", Env("SYNAPSE_TEST_NAME", "x"))
	assert.True(t, EnvBool("SYNAPSE_TEST_DEBUG", false))

	assert.Equal(t, "x", Env("SYNAPSE_TEST_UNSET", "x"))
	assert.False(t, EnvBool("SYNAPSE_TEST_UNSET", false))
}

func TestLoadEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "SYNAPSE_TEST_KEEP=from-file\n")
	t.Setenv("SYNAPSE_TEST_KEEP", "from-process")

	_, err := LoadEnv(envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-process", os.Getenv("SYNAPSE_TEST_KEEP"))
}
