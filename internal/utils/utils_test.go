package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalkFiles_Filters(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package a")
	writeFile(t, filepath.Join(root, "a_test.go"), "package a")
	writeFile(t, filepath.Join(root, "sub", "b.go"), "package sub")
	writeFile(t, filepath.Join(root, "vendor", "v.go"), "package v")
	writeFile(t, filepath.Join(root, ".hidden", "h.go"), "package h")
	writeFile(t, filepath.Join(root, "notes.txt"), "hi")

	files, err := NewFileProcessor().WalkFiles(root, FileWalkOptions{
		FileFilter:      DefaultGoFileFilter(),
		DirectoryFilter: DefaultDirectoryFilter(),
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(root, "a.go"),
		filepath.Join(root, "sub", "b.go"),
	}, files)
}

func TestWalkFiles_MissingRoot(t *testing.T) {
	fp := NewFileProcessor()
	_, err := fp.WalkFiles(filepath.Join(t.TempDir(), "nope"), FileWalkOptions{})
	assert.Error(t, err)

	files, err := fp.WalkFiles(filepath.Join(t.TempDir(), "nope"), FileWalkOptions{SkipErrors: true})
	assert.NoError(t, err)
	assert.Empty(t, files)
}

func TestFileReader_CachesUntilModified(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.go")
	writeFile(t, path, "package x\n\ntype A struct{}\n")

	fr := NewFileReader()
	first, err := fr.ParseGoFile(path)
	require.NoError(t, err)
	second, err := fr.ParseGoFile(path)
	require.NoError(t, err)
	assert.Same(t, first, second)

	writeFile(t, path, "package x\n\ntype A struct{}\ntype B struct{}\n")
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	third, err := fr.ParseGoFile(path)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Len(t, third.Decls, 2)
}

func TestFileReader_Errors(t *testing.T) {
	fr := NewFileReader()
	_, err := fr.ParseGoFile("")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.go")
	writeFile(t, path, "package x\nfunc {")
	_, err = fr.ParseGoFile(path)
	assert.Error(t, err)
}

func TestGoModParser(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"), "module example.com/shop\n\ngo 1.25\n")
	nested := filepath.Join(root, "internal", "orders")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	p := NewGoModParser(nil)
	module, dir, err := p.ModuleNamespace(nested)
	require.NoError(t, err)
	assert.Equal(t, "example.com/shop", module)
	assert.Equal(t, root, dir)

	_, err = p.ParseModuleName(filepath.Join(root, "internal"))
	assert.Error(t, err)
}
