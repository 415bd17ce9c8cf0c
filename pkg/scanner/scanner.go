// Package scanner discovers component manifests and extracts //bean::
// directives from the Go source under each namespace.
package scanner

import (
	"context"
	"go/ast"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/toyz/synapse/internal/errors"
	"github.com/toyz/synapse/internal/utils"
	"github.com/toyz/synapse/pkg/annotation"
	"github.com/toyz/synapse/pkg/bean"
	"github.com/toyz/synapse/pkg/diag"
)

// ParserKind is the directive that declares a type as a directive parser
const ParserKind = "parser"

// Resolver maps class identifiers to loaded types
type Resolver interface {
	Resolve(id string) (*bean.TypeInfo, bool)
}

// Options configures a scan
type Options struct {
	// Namespaces maps import-path prefixes to directories
	Namespaces map[string]string
	// ExcludedPrefixes skips namespaces starting with any of these
	ExcludedPrefixes []string
	// OnlyNamespaces, when non-empty, limits the scan to these namespaces
	OnlyNamespaces []string
	// DisabledManifests lists manifest class identifiers that are found but not scanned
	DisabledManifests []string
	// ExcludedFilenames are skipped wherever they appear
	ExcludedFilenames []string
	ManifestFile      string
	ManifestType      string
}

// DefaultExcludedPrefixes are never scanned
var DefaultExcludedPrefixes = []string{"golang.org/x/", "github.com/stretchr/", "gopkg.in/"}

// DefaultOptions returns options with the standard manifest file and type
func DefaultOptions() Options {
	return Options{
		Namespaces:       make(map[string]string),
		ExcludedPrefixes: append([]string(nil), DefaultExcludedPrefixes...),
		ManifestFile:     "autoloader.go",
		ManifestType:     "AutoLoader",
	}
}

// Scanner walks namespaces and fills an annotation registry
type Scanner struct {
	opts     Options
	registry *annotation.Registry
	resolver Resolver
	grammar  *annotation.Grammar
	sink     diag.Sink

	reader *utils.FileReader
	files  *utils.FileProcessor
	arena  *arena
}

// Option configures a Scanner
type Option func(*Scanner)

// WithSink sets the diagnostics sink
func WithSink(sink diag.Sink) Option {
	return func(s *Scanner) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithGrammar sets the directive grammar, e.g. one validating built-in schemas
func WithGrammar(g *annotation.Grammar) Option {
	return func(s *Scanner) {
		if g != nil {
			s.grammar = g
		}
	}
}

// New creates a scanner
func New(registry *annotation.Registry, resolver Resolver, opts Options, options ...Option) *Scanner {
	if opts.ManifestFile == "" {
		opts.ManifestFile = "autoloader.go"
	}
	if opts.ManifestType == "" {
		opts.ManifestType = "AutoLoader"
	}
	reader := utils.NewFileReader()
	s := &Scanner{
		opts:     opts,
		registry: registry,
		resolver: resolver,
		grammar:  annotation.NewGrammar(nil),
		sink:     diag.Discard,
		reader:   reader,
		files:    utils.NewFileProcessorWithReader(reader),
		arena:    newArena(reader.GetFileSet()),
	}
	for _, o := range options {
		o(s)
	}
	for _, name := range opts.ExcludedFilenames {
		registry.AddExcludedFilename(name)
	}
	return s
}

// Target is one directory scanned as the root of a namespace
type Target struct {
	Namespace string
	Dir       string
}

// Scan visits every namespace in sorted order. Soft failures are reported
// to the sink; unreadable source and malformed directives abort the scan.
// Every manifest target is parsed before any type is visited, so an
// embedded type is found whichever target declares it.
func (s *Scanner) Scan(ctx context.Context) error {
	namespaces := make([]string, 0, len(s.opts.Namespaces))
	for ns := range s.opts.Namespaces {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	var targets []Target
	for _, ns := range namespaces {
		if err := ctx.Err(); err != nil {
			return err
		}
		targets = append(targets, s.scanNamespace(ns, s.opts.Namespaces[ns])...)
	}
	return s.ScanDirs(ctx, targets...)
}

// scanNamespace resolves the manifest of ns and returns its targets
func (s *Scanner) scanNamespace(ns, dir string) []Target {
	if len(s.opts.OnlyNamespaces) > 0 && !contains(s.opts.OnlyNamespaces, ns) {
		s.sink.Notify(diag.LevelDebug, "excludeNs", "namespace", ns, "reason", "not in only list")
		return nil
	}
	if prefix := s.excludedPrefix(ns); prefix != "" {
		s.registry.AddExcludedNamespace(ns, prefix)
		s.sink.Notify(diag.LevelDebug, "excludeNs", "namespace", ns, "prefix", prefix)
		return nil
	}

	file := filepath.Join(dir, s.opts.ManifestFile)
	if _, err := os.Stat(file); err != nil {
		s.sink.Notify(diag.LevelWarn, "noLoaderFile", "namespace", ns, "file", file)
		return nil
	}

	class := ns + "." + s.opts.ManifestType
	info, ok := s.resolver.Resolve(class)
	if !ok || info.New == nil {
		s.sink.Notify(diag.LevelWarn, "noLoaderClass", "namespace", ns, "class", class)
		return nil
	}
	manifest, ok := info.New().(annotation.Manifest)
	if !ok {
		s.sink.Notify(diag.LevelWarn, "invalidLoader", "namespace", ns, "class", class)
		return nil
	}
	s.sink.Notify(diag.LevelDebug, "findLoaderClass", "namespace", ns, "class", class)

	entry := &annotation.ManifestEntry{Namespace: ns, Class: class, Dir: dir, Manifest: manifest}
	if component, ok := manifest.(annotation.Component); ok && !component.Enabled() {
		entry.Disabled = true
	}
	if contains(s.opts.DisabledManifests, class) {
		entry.Disabled = true
	}
	s.registry.AddManifest(entry)
	if entry.Disabled {
		s.sink.Notify(diag.LevelInfo, "disabledLoader", "namespace", ns, "class", class)
		return nil
	}

	s.registry.AddManifestFile(file)
	s.sink.Notify(diag.LevelInfo, "addLoaderClass", "namespace", ns, "class", class)

	targets := manifest.NamespaceMap()
	keys := make([]string, 0, len(targets))
	for k := range targets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Target, 0, len(keys))
	for _, target := range keys {
		targetDir := targets[target]
		if !filepath.IsAbs(targetDir) {
			targetDir = filepath.Join(dir, targetDir)
		}
		out = append(out, Target{Namespace: target, Dir: targetDir})
	}
	return out
}

// excludedPrefix returns the longest excluded prefix matching ns
func (s *Scanner) excludedPrefix(ns string) string {
	best := ""
	for _, prefix := range s.opts.ExcludedPrefixes {
		if strings.HasPrefix(ns, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	return best
}

// ScanDir walks dir recursively, treating it as the root of namespace ns
func (s *Scanner) ScanDir(ctx context.Context, ns, dir string) error {
	return s.ScanDirs(ctx, Target{Namespace: ns, Dir: dir})
}

// ScanDirs parses every target into the arena first and only then visits
// the declared types, in target order
func (s *Scanner) ScanDirs(ctx context.Context, targets ...Target) error {
	type batch struct {
		ns    string
		nodes []*typeNode
	}
	batches := make([]batch, 0, len(targets))
	for _, t := range targets {
		nodes, err := s.parseDir(ctx, t.Namespace, t.Dir)
		if err != nil {
			return err
		}
		batches = append(batches, batch{ns: t.Namespace, nodes: nodes})
	}
	s.arena.link()

	for _, b := range batches {
		for _, n := range b.nodes {
			if err := s.visit(b.ns, n); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Scanner) parseDir(ctx context.Context, ns, dir string) ([]*typeNode, error) {
	paths, err := s.files.WalkFiles(dir, utils.FileWalkOptions{
		FileFilter:      s.fileFilter(),
		DirectoryFilter: utils.DefaultDirectoryFilter(),
	})
	if err != nil {
		return nil, errors.WrapFileSystemError("walk", dir, err)
	}
	sort.Strings(paths)

	var declared []*typeNode
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file, err := s.reader.ParseGoFile(p)
		if err != nil {
			return nil, errors.NewScanError(p, err)
		}
		declared = append(declared, s.arena.addFile(packagePath(ns, dir, p), p, file)...)
	}
	return declared, nil
}

func (s *Scanner) fileFilter() utils.FileFilter {
	return func(p string, info os.DirEntry) bool {
		if info.IsDir() {
			return false
		}
		name := info.Name()
		if filepath.Ext(name) != ".go" || strings.HasPrefix(name, ".") || strings.HasSuffix(name, "_test.go") {
			return false
		}
		if contains(s.opts.ExcludedFilenames, name) {
			s.sink.Notify(diag.LevelDebug, "excludeFilename", "file", p)
			return false
		}
		return true
	}
}

func (s *Scanner) visit(ns string, n *typeNode) error {
	if n.isInterface {
		s.sink.Notify(diag.LevelDebug, "noExistClass", "class", n.id, "reason", "interface")
		return nil
	}
	if _, ok := s.resolver.Resolve(n.id); !ok {
		s.sink.Notify(diag.LevelDebug, "noExistClass", "class", n.id, "file", n.file)
		return nil
	}

	classAnns, err := s.directives(n.file, n.doc, annotation.TargetClass)
	if err != nil {
		return err
	}
	if len(classAnns) > 0 && classAnns[0].Kind == ParserKind {
		kind := classAnns[0].Value("annotation", 0)
		if err := s.registry.RegisterParser(kind, n.id); err != nil {
			return err
		}
		s.sink.Notify(diag.LevelDebug, "registerParser", "kind", kind, "class", n.id)
		return nil
	}

	meta, err := s.metadata(n, classAnns, map[string]bool{})
	if err != nil {
		return err
	}
	if meta.Empty() {
		return nil
	}
	s.registry.AddClass(ns, meta)
	s.sink.Notify(diag.LevelDebug, "registerClass", "class", n.id, "file", n.file)
	return nil
}

// metadata builds the class metadata of n, recursing into its first
// embedded type that was declared in scanned source
func (s *Scanner) metadata(n *typeNode, classAnns []*annotation.Annotation, visiting map[string]bool) (*annotation.ClassMetadata, error) {
	visiting[n.id] = true
	meta := &annotation.ClassMetadata{Class: n.id, File: n.file, Annotations: classAnns}

	for _, f := range n.fields {
		anns, err := s.directives(n.file, f.doc, annotation.TargetProperty)
		if err != nil {
			return nil, err
		}
		if len(anns) > 0 {
			meta.Properties = append(meta.Properties, &annotation.PropertyMetadata{Name: f.name, TypeID: f.typeID, Annotations: anns})
		}
	}
	for _, m := range n.methods {
		anns, err := s.directives(m.file, m.doc, annotation.TargetMethod)
		if err != nil {
			return nil, err
		}
		if len(anns) > 0 {
			meta.Methods = append(meta.Methods, &annotation.MethodMetadata{Name: m.name, Annotations: anns})
		}
	}

	for _, embed := range n.embeds {
		parent, ok := s.arena.node(embed)
		if !ok || parent.isInterface || visiting[embed] {
			continue
		}
		parentAnns, err := s.directives(parent.file, parent.doc, annotation.TargetClass)
		if err != nil {
			return nil, err
		}
		pm, err := s.metadata(parent, parentAnns, visiting)
		if err != nil {
			return nil, err
		}
		if !pm.Empty() || pm.Parent != nil {
			meta.Parent = pm
		}
		break
	}
	return meta, nil
}

func (s *Scanner) directives(file string, doc []*ast.Comment, target annotation.Target) ([]*annotation.Annotation, error) {
	var out []*annotation.Annotation
	for _, c := range doc {
		if !annotation.IsDirective(c.Text) {
			continue
		}
		ann, err := s.grammar.ParseFor(c.Text, annotation.Location{File: file, Line: s.arena.line(c)}, target)
		if err != nil {
			return nil, errors.NewScanError(file, err)
		}
		out = append(out, ann)
	}
	return out, nil
}

// packagePath derives the import path of the file at p under namespace root dir
func packagePath(ns, root, p string) string {
	rel, err := filepath.Rel(root, filepath.Dir(p))
	if err != nil || rel == "." {
		return ns
	}
	return path.Join(ns, filepath.ToSlash(rel))
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
