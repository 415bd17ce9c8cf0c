package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/toyz/synapse/internal/utils"
)

// ModuleResolver maps directories to import paths
type ModuleResolver struct {
	gomod *utils.GoModParser
}

// NewModuleResolver creates a new module resolver
func NewModuleResolver() *ModuleResolver {
	return &ModuleResolver{gomod: utils.NewGoModParser(nil)}
}

// ResolveModule returns the module path and root directory for dir.
// If customModule is provided it replaces the path read from go.mod, and
// dir itself is the module root when no go.mod exists.
func (r *ModuleResolver) ResolveModule(dir, customModule string) (string, string, error) {
	module, root, err := r.gomod.ModuleNamespace(dir)
	if err != nil {
		if customModule == "" {
			return "", "", fmt.Errorf("failed to determine module name: %w (consider using --module flag)", err)
		}
		abs, absErr := filepath.Abs(dir)
		if absErr != nil {
			return "", "", absErr
		}
		return customModule, abs, nil
	}
	if customModule != "" {
		module = customModule
	}
	return module, root, nil
}

// BuildPackagePath builds the full import path for a package directory
func (r *ModuleResolver) BuildPackagePath(moduleName, moduleRoot, packageDir string) (string, error) {
	absPackageDir, err := filepath.Abs(packageDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve package directory: %w", err)
	}

	relPath, err := filepath.Rel(moduleRoot, absPackageDir)
	if err != nil {
		return "", fmt.Errorf("failed to calculate relative path: %w", err)
	}

	importPath := filepath.ToSlash(relPath)
	if importPath == "." {
		return moduleName, nil
	}
	if importPath == ".." || strings.HasPrefix(importPath, "../") {
		return "", fmt.Errorf("directory %s is outside module root %s", packageDir, moduleRoot)
	}

	return fmt.Sprintf("%s/%s", moduleName, importPath), nil
}
