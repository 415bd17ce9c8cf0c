package annotation

import (
	"sort"
	"sync"

	"github.com/toyz/synapse/internal/errors"
)

// ManifestEntry pairs a manifest with the namespace it was found in
type ManifestEntry struct {
	Namespace string
	Class     string
	Dir       string
	Manifest  Manifest
	// Disabled manifests were found but not scanned
	Disabled bool
}

type classEntry struct {
	namespace string
	meta      *ClassMetadata
}

// Registry collects scan results: raw class metadata, parser ownership,
// manifests and the namespaces and files that were skipped.
// It is created per bootstrap and passed explicitly.
type Registry struct {
	mu sync.RWMutex

	classes    []*classEntry
	classIndex map[string]int

	parsers map[string]string

	manifests     []*ManifestEntry
	manifestFiles []string

	excludedNamespaces map[string]string
	excludedFilenames  map[string]bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		classIndex:         make(map[string]int),
		parsers:            make(map[string]string),
		excludedNamespaces: make(map[string]string),
		excludedFilenames:  make(map[string]bool),
	}
}

// AddClass records metadata for a class. Re-adding a class replaces its
// metadata but keeps its original position.
func (r *Registry) AddClass(namespace string, meta *ClassMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := &classEntry{namespace: namespace, meta: meta}
	if i, ok := r.classIndex[meta.Class]; ok {
		r.classes[i] = entry
		return
	}
	r.classIndex[meta.Class] = len(r.classes)
	r.classes = append(r.classes, entry)
}

// Classes returns all class metadata in registration order
func (r *Registry) Classes() []*ClassMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ClassMetadata, len(r.classes))
	for i, e := range r.classes {
		out[i] = e.meta
	}
	return out
}

// ClassesIn returns the metadata registered under namespace
func (r *Registry) ClassesIn(namespace string) []*ClassMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*ClassMetadata
	for _, e := range r.classes {
		if e.namespace == namespace {
			out = append(out, e.meta)
		}
	}
	return out
}

// Class returns the metadata for one class
func (r *Registry) Class(id string) (*ClassMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.classIndex[id]
	if !ok {
		return nil, false
	}
	return r.classes[i].meta, true
}

// RegisterParser makes class the owner of directive kind. Each kind has a
// single owner: registering a different class for an owned kind fails with
// a ParserConflictError, registering the same class again is a no-op.
func (r *Registry) RegisterParser(kind, class string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if kind == "" {
		return errors.NewRegistrationError("parser", class, "directive kind cannot be empty")
	}
	if existing, ok := r.parsers[kind]; ok {
		if existing == class {
			return nil
		}
		return errors.NewParserConflictError(kind, existing, class)
	}
	r.parsers[kind] = class
	return nil
}

// Parser returns the parser class owning kind
func (r *Registry) Parser(kind string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	class, ok := r.parsers[kind]
	return class, ok
}

// Parsers returns a copy of the kind to parser class table
func (r *Registry) Parsers() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.parsers))
	for k, v := range r.parsers {
		out[k] = v
	}
	return out
}

// AddManifest records a discovered manifest
func (r *Registry) AddManifest(entry *ManifestEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifests = append(r.manifests, entry)
}

// Manifests returns discovered manifests in discovery order
func (r *Registry) Manifests() []*ManifestEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*ManifestEntry(nil), r.manifests...)
}

// AddManifestFile records the path of a manifest that was scanned
func (r *Registry) AddManifestFile(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifestFiles = append(r.manifestFiles, path)
}

// ManifestFiles returns the paths of scanned manifests
func (r *Registry) ManifestFiles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.manifestFiles...)
}

// AddExcludedNamespace records a namespace skipped because of prefix
func (r *Registry) AddExcludedNamespace(namespace, prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.excludedNamespaces[namespace] = prefix
}

// ExcludedNamespaces returns skipped namespaces, sorted
func (r *Registry) ExcludedNamespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.excludedNamespaces)
}

// AddExcludedFilename records a file name skipped during the walk
func (r *Registry) AddExcludedFilename(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.excludedFilenames[name] = true
}

// ExcludedFilenames returns skipped file names, sorted
func (r *Registry) ExcludedFilenames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.excludedFilenames)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
