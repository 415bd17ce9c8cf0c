// Package config loads HCL configuration files into a flat, dotted-key
// repository and reads .env files into the process environment.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/toyz/synapse/internal/errors"
)

// Repository holds configuration values under dotted keys such as
// "http.port". It implements bean.Lookuper so beans can read keys through
// //bean::config directives.
type Repository struct {
	mu     sync.RWMutex
	values map[string]any
	files  []string
}

// NewRepository creates an empty repository
func NewRepository() *Repository {
	return &Repository{values: make(map[string]any)}
}

// Load reads every .hcl file found under paths. Paths may be files or
// directories; paths that do not exist are skipped. Files are applied in
// lexical order so later files override earlier ones.
func (r *Repository) Load(paths ...string) error {
	files, err := findHCLFiles(paths)
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := r.LoadFile(file); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile reads a single HCL file
func (r *Repository) LoadFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapFileSystemError("read", path, err)
	}
	if err := r.LoadSource(src, path); err != nil {
		return err
	}
	r.mu.Lock()
	r.files = append(r.files, path)
	r.mu.Unlock()
	return nil
}

// LoadSource parses HCL source; filename is used in diagnostics only
func (r *Repository) LoadSource(src []byte, filename string) error {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return errors.WrapConfigurationError(filename, "parse", diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return errors.ConfigurationError(filename, "unsupported configuration body")
	}

	values := make(map[string]any)
	if err := flattenBody("", body, evalContext(), values); err != nil {
		return errors.WrapConfigurationError(filename, "evaluate", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range values {
		r.values[k] = v
	}
	return nil
}

// Lookup implements bean.Lookuper
func (r *Repository) Lookup(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	return v, ok
}

// Get returns the value under key or def
func (r *Repository) Get(key string, def any) any {
	if v, ok := r.Lookup(key); ok {
		return v
	}
	return def
}

// String returns the value under key as a string, or def when missing or not a string
func (r *Repository) String(key, def string) string {
	if s, ok := r.Get(key, def).(string); ok {
		return s
	}
	return def
}

// Set stores a value, replacing any previous one
func (r *Repository) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
}

// Keys returns every key, sorted
func (r *Repository) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Files returns the files loaded so far, in load order
func (r *Repository) Files() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.files...)
}

// flattenBody evaluates attributes and descends into blocks. A block
// `http "admin" { port = 81 }` produces the key "http.admin.port".
func flattenBody(prefix string, body *hclsyntax.Body, ctx *hcl.EvalContext, out map[string]any) error {
	names := make([]string, 0, len(body.Attributes))
	for name := range body.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	var diags hcl.Diagnostics
	for _, name := range names {
		val, d := body.Attributes[name].Expr.Value(ctx)
		diags = append(diags, d...)
		if d.HasErrors() {
			continue
		}
		flattenValue(join(prefix, name), val, out)
	}
	if diags.HasErrors() {
		return diags
	}

	for _, block := range body.Blocks {
		key := join(prefix, block.Type)
		for _, label := range block.Labels {
			key = join(key, label)
		}
		if err := flattenBody(key, block.Body, ctx, out); err != nil {
			return err
		}
	}
	return nil
}

// flattenValue stores val under key and, for objects and maps, every
// nested attribute under its own dotted key
func flattenValue(key string, val cty.Value, out map[string]any) {
	out[key] = fromCty(val)
	if val.IsNull() || !val.IsKnown() {
		return
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return
	}
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		flattenValue(join(key, k.AsString()), v, out)
	}
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// evalContext exposes the process environment as `env` and a small set of
// string functions
func evalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(env)},
		Functions: map[string]function.Function{
			"upper":     stdlib.UpperFunc,
			"lower":     stdlib.LowerFunc,
			"trimspace": stdlib.TrimSpaceFunc,
			"join":      stdlib.JoinFunc,
			"split":     stdlib.SplitFunc,
			"coalesce":  stdlib.CoalesceFunc,
		},
	}
}

func findHCLFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			files = append(files, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.WrapFileSystemError("stat", path, err)
		}
		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, errors.WrapFileSystemError("walk", path, err)
		}
	}
	sort.Strings(files)
	return files, nil
}
