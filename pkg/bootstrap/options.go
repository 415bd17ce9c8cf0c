package bootstrap

import (
	"path/filepath"

	"github.com/toyz/synapse/pkg/bean"
	"github.com/toyz/synapse/pkg/diag"
	"github.com/toyz/synapse/pkg/entry"
	"github.com/toyz/synapse/pkg/scanner"
)

// Options configures an Application
type Options struct {
	// BasePath is the directory relative paths are resolved against
	BasePath string
	// EnvFiles are dotenv files loaded by the env stage; missing files are skipped
	EnvFiles []string
	// ConfigPath is a directory or file of HCL configuration
	ConfigPath string
	// BeanFile is the YAML bean override file. It must exist unless empty.
	BeanFile string
	// ModuleDir, when set, adds the module containing it as a scan namespace
	ModuleDir string
	Scan      scanner.Options

	Catalog     *bean.Catalog
	Sink        diag.Sink
	Entrypoint  entry.Entrypoint
	Definitions map[string]*bean.Spec
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() *Options {
	return &Options{
		BasePath:   ".",
		EnvFiles:   []string{".env"},
		ConfigPath: "config",
		BeanFile:   "beans.yaml",
		Scan:       scanner.DefaultOptions(),
		Sink:       diag.Discard,
	}
}

// Option configures an Application
type Option func(*Options)

// WithBasePath sets the directory relative paths are resolved against
func WithBasePath(path string) Option {
	return func(o *Options) { o.BasePath = path }
}

// WithEnvFile replaces the dotenv files to load
func WithEnvFile(files ...string) Option {
	return func(o *Options) { o.EnvFiles = files }
}

// WithConfigPath sets the HCL configuration directory or file
func WithConfigPath(path string) Option {
	return func(o *Options) { o.ConfigPath = path }
}

// WithBeanFile sets the bean override file; an empty path loads none
func WithBeanFile(path string) Option {
	return func(o *Options) { o.BeanFile = path }
}

// WithNamespaces adds namespace to directory mappings to scan
func WithNamespaces(namespaces map[string]string) Option {
	return func(o *Options) {
		if o.Scan.Namespaces == nil {
			o.Scan.Namespaces = make(map[string]string)
		}
		for ns, dir := range namespaces {
			o.Scan.Namespaces[ns] = dir
		}
	}
}

// WithModuleNamespace scans the Go module containing dir under its module path
func WithModuleNamespace(dir string) Option {
	return func(o *Options) { o.ModuleDir = dir }
}

// WithExcludedPrefixes adds namespace prefixes that are never scanned
func WithExcludedPrefixes(prefixes ...string) Option {
	return func(o *Options) { o.Scan.ExcludedPrefixes = append(o.Scan.ExcludedPrefixes, prefixes...) }
}

// WithOnlyNamespaces limits the scan to the given namespaces
func WithOnlyNamespaces(namespaces ...string) Option {
	return func(o *Options) { o.Scan.OnlyNamespaces = append(o.Scan.OnlyNamespaces, namespaces...) }
}

// WithDisabledManifests skips the given manifest classes
func WithDisabledManifests(classes ...string) Option {
	return func(o *Options) { o.Scan.DisabledManifests = append(o.Scan.DisabledManifests, classes...) }
}

// WithCatalog sets the type catalog holding the application's bean classes
func WithCatalog(catalog *bean.Catalog) Option {
	return func(o *Options) { o.Catalog = catalog }
}

// WithSink sets the diagnostics sink
func WithSink(sink diag.Sink) Option {
	return func(o *Options) {
		if sink != nil {
			o.Sink = sink
		}
	}
}

// WithEntrypoint sets what the entry stage runs
func WithEntrypoint(ep entry.Entrypoint) Option {
	return func(o *Options) { o.Entrypoint = ep }
}

// WithDefinitions adds framework default bean definitions. Manifest
// definitions and the bean file win over them.
func WithDefinitions(specs map[string]*bean.Spec) Option {
	return func(o *Options) { o.Definitions = bean.MergeSpecs(o.Definitions, specs) }
}

// path resolves p against the base path
func (o *Options) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.BasePath, p)
}
