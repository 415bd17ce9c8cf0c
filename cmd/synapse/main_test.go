package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeApp(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"go.mod": "module github.com/example/cliapp\n\ngo 1.25\n",
		"svc/svc.go": `package svc

//bean::bean mailer -alias=mail
type Mailer struct {
	//bean::config mail.host
	Host string
}
`,
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	t.Setenv("SYNAPSE_DEBUG", "")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun(t *testing.T) {
	t.Run("help flag", func(t *testing.T) {
		code, _, stderr := runCLI(t, "--help")
		assert.Equal(t, 0, code)
		assert.Contains(t, stderr, "Usage:")
		assert.Contains(t, stderr, "Synapse Bean Inspector")
		assert.Contains(t, stderr, "-module")
		assert.Contains(t, stderr, "directory-paths")
	})

	t.Run("no arguments", func(t *testing.T) {
		code, _, stderr := runCLI(t)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "At least one directory path is required")
	})

	t.Run("unknown flag", func(t *testing.T) {
		code, _, _ := runCLI(t, "--bogus")
		assert.Equal(t, 2, code)
	})

	t.Run("unknown format", func(t *testing.T) {
		code, _, stderr := runCLI(t, "--format", "xml", ".")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, `unknown format "xml"`)
	})

	t.Run("nonexistent directory", func(t *testing.T) {
		code, _, stderr := runCLI(t, "/nonexistent/directory")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "inspectionFailed")
	})

	t.Run("text report", func(t *testing.T) {
		root := writeApp(t)
		code, stdout, stderr := runCLI(t, root+"/...")
		require.Equal(t, 0, code, stderr)
		assert.Contains(t, stderr, "Synapse Bean Inspector")
		assert.Contains(t, stdout, "mailer (github.com/example/cliapp/svc.Mailer, singleton) alias mail")
		assert.Contains(t, stdout, "Host <- config:mail.host")
	})

	t.Run("yaml report with custom module", func(t *testing.T) {
		root := writeApp(t)
		code, stdout, stderr := runCLI(t, "--quiet", "--format", "yaml", "--module", "example.com/renamed", root)
		require.Equal(t, 0, code, stderr)
		assert.Contains(t, stdout, "class: example.com/renamed/svc.Mailer")
		assert.Contains(t, stdout, "mail: mailer")
		assert.NotContains(t, stdout, "Synapse Bean Inspector")
	})
}
