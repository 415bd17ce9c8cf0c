package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/toyz/synapse/internal/errors"
)

// DirectoryScanner turns command line directory arguments into scan roots
type DirectoryScanner struct{}

// NewDirectoryScanner creates a new directory scanner
func NewDirectoryScanner() *DirectoryScanner {
	return &DirectoryScanner{}
}

// ScanDirectories resolves each argument to an absolute directory.
// Go-style "./..." patterns are accepted; roots nested in another root are dropped.
func (s *DirectoryScanner) ScanDirectories(rootDirs []string) ([]string, error) {
	var cleanDirs []string

	for _, rootDir := range rootDirs {
		baseDir := rootDir
		if strings.HasSuffix(rootDir, "/...") || rootDir == "..." {
			baseDir = strings.TrimSuffix(strings.TrimSuffix(rootDir, "..."), "/")
			if baseDir == "" {
				baseDir = "."
			}
		}

		cleanPath, err := filepath.Abs(baseDir)
		if err != nil {
			return nil, errors.WrapWithOperation("process", fmt.Sprintf("path resolution %s", baseDir), err)
		}

		info, err := os.Stat(cleanPath)
		if err != nil {
			return nil, errors.WrapFileSystemError("stat", cleanPath, err)
		}
		if !info.IsDir() {
			return nil, errors.FileSystemError("scan", cleanPath, "not a directory")
		}
		cleanDirs = append(cleanDirs, cleanPath)
	}

	return dedupeRoots(cleanDirs), nil
}

func dedupeRoots(dirs []string) []string {
	var out []string
	for i, dir := range dirs {
		nested := false
		for j, other := range dirs {
			if i == j {
				continue
			}
			if other == dir && j < i {
				nested = true
				break
			}
			if other != dir && strings.HasPrefix(dir, other+string(filepath.Separator)) {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, dir)
		}
	}
	return out
}
