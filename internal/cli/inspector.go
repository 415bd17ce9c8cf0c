package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/toyz/synapse/pkg/annotation"
	"github.com/toyz/synapse/pkg/bean"
	"github.com/toyz/synapse/pkg/compiler"
	"github.com/toyz/synapse/pkg/diag"
	"github.com/toyz/synapse/pkg/parsers"
	"github.com/toyz/synapse/pkg/scanner"
)

// Inspector scans source directories and compiles their directives without
// loading the application's types
type Inspector struct {
	dirs    *DirectoryScanner
	modules *ModuleResolver
	sink    diag.Sink
}

// NewInspector creates an inspector reporting to sink
func NewInspector(sink diag.Sink) *Inspector {
	if sink == nil {
		sink = diag.Discard
	}
	return &Inspector{
		dirs:    NewDirectoryScanner(),
		modules: NewModuleResolver(),
		sink:    sink,
	}
}

// Report is the result of an inspection
type Report struct {
	// Roots maps each scanned namespace to its directory
	Roots    map[string]string
	Registry *annotation.Registry
	Compiled *bean.Compiled
}

// Inspect scans every configured directory and compiles the result
func (i *Inspector) Inspect(ctx context.Context, cfg Config) (*Report, error) {
	roots, err := i.dirs.ScanDirectories(cfg.Directories)
	if err != nil {
		return nil, err
	}

	catalog := bean.NewCatalog()
	registry := annotation.NewRegistry()
	schemas := annotation.NewSchemaRegistry()
	if err := parsers.Install(catalog, registry, schemas); err != nil {
		return nil, err
	}

	s := scanner.New(registry, &anyClass{catalog: catalog}, scanner.DefaultOptions(),
		scanner.WithSink(i.sink),
		scanner.WithGrammar(annotation.NewGrammar(schemas)))

	report := &Report{Roots: make(map[string]string), Registry: registry}
	targets := make([]scanner.Target, 0, len(roots))
	for _, root := range roots {
		module, moduleRoot, err := i.modules.ResolveModule(root, cfg.ModuleName)
		if err != nil {
			return nil, err
		}
		ns, err := i.modules.BuildPackagePath(module, moduleRoot, root)
		if err != nil {
			return nil, err
		}
		i.sink.Notify(diag.LevelDebug, "scanRoot", "namespace", ns, "dir", root)
		targets = append(targets, scanner.Target{Namespace: ns, Dir: root})
		report.Roots[ns] = root
	}
	if err := s.ScanDirs(ctx, targets...); err != nil {
		return nil, err
	}

	compiled, err := compiler.New(registry, &lenientFactory{catalog: catalog, sink: i.sink}, compiler.WithSink(i.sink)).Compile()
	if err != nil {
		return nil, err
	}
	report.Compiled = compiled
	return report, nil
}

// anyClass treats every declared type as loadable
type anyClass struct {
	catalog *bean.Catalog
}

func (r *anyClass) Resolve(id string) (*bean.TypeInfo, bool) {
	if info, ok := r.catalog.Lookup(id); ok {
		return info, true
	}
	return &bean.TypeInfo{ID: id}, true
}

// lenientFactory stands in an opaque parser for parser classes it cannot build
type lenientFactory struct {
	catalog *bean.Catalog
	sink    diag.Sink
}

func (f *lenientFactory) New(id string) (any, error) {
	if v, err := f.catalog.New(id); err == nil {
		return v, nil
	}
	f.sink.Notify(diag.LevelDebug, "opaqueParser", "class", id)
	return opaqueParser{}, nil
}

// opaqueParser yields empty fragments, so its directives are skipped
type opaqueParser struct{}

func (opaqueParser) Parse(*annotation.ParseContext, annotation.Target, *annotation.Annotation) (annotation.Fragment, error) {
	return nil, nil
}

func (opaqueParser) Definitions() map[string]any { return nil }

// PrintText writes the report through a console
func PrintText(out *diag.Console, report *Report) {
	compiled := report.Compiled

	out.Section("Namespaces")
	out.Indent()
	for _, ns := range sortedKeys(report.Roots) {
		out.List("%s => %s", ns, report.Roots[ns])
	}
	out.Unindent()

	out.Section("Definitions")
	out.Indent()
	for _, name := range sortedKeys(compiled.Objects) {
		def := compiled.Objects[name]
		if def.Alias != "" {
			out.List("%s (%s, %s) alias %s", name, def.Class, def.Scope, def.Alias)
		} else {
			out.List("%s (%s, %s)", name, def.Class, def.Scope)
		}
		out.Indent()
		for _, field := range sortedKeys(def.Properties) {
			out.List("%s %s", field, describe(def.Properties[field].Argument))
		}
		out.Unindent()
	}
	out.Unindent()

	if len(compiled.Values) > 0 {
		out.Section("Values")
		out.Indent()
		for _, key := range sortedKeys(compiled.Values) {
			out.List("%s = %v", key, compiled.Values[key])
		}
		out.Unindent()
	}

	out.Summary("Inspection Complete!",
		[]string{"classes", "parsers", "definitions", "aliases", "values"},
		map[string]any{
			"classes":     len(report.Registry.Classes()),
			"parsers":     len(report.Registry.Parsers()),
			"definitions": len(compiled.Objects),
			"aliases":     len(compiled.Aliases),
			"values":      len(compiled.Values),
		})
}

type beanDoc struct {
	Class      string            `yaml:"class"`
	Scope      string            `yaml:"scope"`
	Alias      string            `yaml:"alias,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

type reportDoc struct {
	Namespaces map[string]string  `yaml:"namespaces"`
	Beans      map[string]beanDoc `yaml:"beans"`
	Aliases    map[string]string  `yaml:"aliases,omitempty"`
	Values     map[string]string  `yaml:"values,omitempty"`
}

// PrintYAML writes the report as a YAML document
func PrintYAML(w io.Writer, report *Report) error {
	doc := reportDoc{
		Namespaces: report.Roots,
		Beans:      make(map[string]beanDoc, len(report.Compiled.Objects)),
		Aliases:    report.Compiled.Aliases,
	}
	for name, def := range report.Compiled.Objects {
		b := beanDoc{Class: def.Class, Scope: string(def.Scope), Alias: def.Alias}
		if len(def.Properties) > 0 {
			b.Properties = make(map[string]string, len(def.Properties))
			for field, p := range def.Properties {
				b.Properties[field] = describe(p.Argument)
			}
		}
		doc.Beans[name] = b
	}
	if len(report.Compiled.Values) > 0 {
		doc.Values = make(map[string]string, len(report.Compiled.Values))
		for k, v := range report.Compiled.Values {
			doc.Values[k] = fmt.Sprintf("%v", v)
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func describe(arg bean.Argument) string {
	if arg.Ref == nil {
		return fmt.Sprintf("= %v", arg.Value)
	}
	return "<- " + arg.Ref.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
