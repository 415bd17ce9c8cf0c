package bean

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/toyz/synapse/internal/errors"
)

// Spec is a static bean definition contributed by manifests, framework
// defaults or the user bean file
type Spec struct {
	Class      string            `yaml:"class"`
	Scope      Scope             `yaml:"scope"`
	Alias      string            `yaml:"alias"`
	Lazy       bool              `yaml:"lazy"`
	Properties map[string]any    `yaml:"properties"`
	Refs       map[string]string `yaml:"refs"`
	Methods    []MethodSpec      `yaml:"methods"`
}

// MethodSpec is a method call in a static definition
type MethodSpec struct {
	Name string    `yaml:"name"`
	Args []ArgSpec `yaml:"args"`
}

// ArgSpec is one method argument; Ref takes precedence over Value
type ArgSpec struct {
	Ref   string `yaml:"ref"`
	Value any    `yaml:"value"`
}

// File is the layout of the user bean file
type File struct {
	Beans  map[string]*Spec `yaml:"beans"`
	Values map[string]any   `yaml:"values"`
}

// LoadFile reads a YAML bean file. A missing file is an error.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileSystemError("read", path, "the bean file does not exist")
		}
		return nil, errors.WrapFileSystemError("read", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapConfigurationError(path, "decode", err)
	}
	for name, spec := range f.Beans {
		if spec == nil {
			f.Beans[name] = &Spec{}
			continue
		}
		if spec.Scope != "" {
			scope, err := ParseScope(string(spec.Scope))
			if err != nil {
				return nil, errors.WrapConfigurationError(path, "decode", fmt.Errorf("bean '%s': %w", name, err))
			}
			spec.Scope = scope
		}
	}
	return &f, nil
}

// MergeSpecs merges maps left to right; later maps win on key collision
func MergeSpecs(sets ...map[string]*Spec) map[string]*Spec {
	out := make(map[string]*Spec)
	for _, set := range sets {
		for name, spec := range set {
			out[name] = spec
		}
	}
	return out
}

// Apply overlays the spec on def. Set fields replace, property maps merge key-wise.
func (s *Spec) Apply(def *ObjectDefinition) {
	if s.Class != "" {
		def.Class = s.Class
	}
	if s.Scope != "" {
		def.Scope = s.Scope
	}
	if s.Alias != "" {
		def.Alias = s.Alias
	}
	if s.Lazy {
		def.Lazy = true
	}
	for field, v := range s.Properties {
		def.SetProperty(field, Literal(v))
	}
	for field, ref := range s.Refs {
		def.SetProperty(field, Ref(ref))
	}
	for _, m := range s.Methods {
		mi := &MethodInjection{Name: m.Name}
		for _, a := range m.Args {
			if a.Ref != "" {
				mi.Args = append(mi.Args, Ref(a.Ref))
			} else {
				mi.Args = append(mi.Args, Literal(a.Value))
			}
		}
		def.Methods = append(def.Methods, mi)
	}
}

// Definition builds a fresh definition from the spec
func (s *Spec) Definition(name string) *ObjectDefinition {
	def := NewObjectDefinition(name, "")
	s.Apply(def)
	return def
}
