// Package bean holds object definitions, the type catalog that stands in for
// class loading, and the container that turns definitions into instances.
package bean

import (
	"fmt"
	"strings"
)

// Scope controls how many instances a definition produces
type Scope string

const (
	// Singleton definitions are built once and cached
	Singleton Scope = "singleton"
	// Prototype definitions are built fresh on every request
	Prototype Scope = "prototype"
)

// ParseScope converts a textual scope, defaulting to Singleton when empty
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", Singleton:
		return Singleton, nil
	case Prototype:
		return Prototype, nil
	default:
		return "", fmt.Errorf("unknown scope '%s' (expected singleton or prototype)", s)
	}
}

// Reference marks a value that must be looked up in the container.
// When Path is set the named bean must implement Lookuper and Path is looked up in it.
type Reference struct {
	Name    string
	Path    string
	Default any
}

func (r Reference) String() string {
	if r.Path == "" {
		return r.Name
	}
	return r.Name + ":" + r.Path
}

// Lookuper is implemented by beans that expose keyed values, such as the config repository
type Lookuper interface {
	Lookup(key string) (any, bool)
}

// Initializer is called once after injection completes
type Initializer interface {
	Init() error
}

// Argument is a literal value or a reference
type Argument struct {
	Value any
	Ref   *Reference
}

// IsRef reports whether the argument is a reference
func (a Argument) IsRef() bool { return a.Ref != nil }

// Literal creates a literal argument
func Literal(v any) Argument { return Argument{Value: v} }

// Ref creates a reference argument to the named bean
func Ref(name string) Argument { return Argument{Ref: &Reference{Name: name}} }

// PropertyInjection sets a struct field
type PropertyInjection struct {
	Name string
	Argument
}

// MethodInjection calls a method with ordered arguments after property injection
type MethodInjection struct {
	Name string
	Args []Argument
}

// ObjectDefinition is the construction plan for one named bean
type ObjectDefinition struct {
	Name       string
	Class      string
	Scope      Scope
	Alias      string
	Lazy       bool
	Properties map[string]*PropertyInjection
	Methods    []*MethodInjection
}

// NewObjectDefinition creates a singleton definition with no injections
func NewObjectDefinition(name, class string) *ObjectDefinition {
	return &ObjectDefinition{
		Name:       name,
		Class:      class,
		Scope:      Singleton,
		Properties: make(map[string]*PropertyInjection),
	}
}

// SetProperty records a property injection; later calls win
func (d *ObjectDefinition) SetProperty(name string, arg Argument) {
	if d.Properties == nil {
		d.Properties = make(map[string]*PropertyInjection)
	}
	d.Properties[name] = &PropertyInjection{Name: name, Argument: arg}
}

// References returns the names of every bean this definition refers to
func (d *ObjectDefinition) References() []string {
	var refs []string
	for _, p := range d.Properties {
		if p.Ref != nil {
			refs = append(refs, p.Ref.Name)
		}
	}
	for _, m := range d.Methods {
		for _, a := range m.Args {
			if a.Ref != nil {
				refs = append(refs, a.Ref.Name)
			}
		}
	}
	return refs
}

// Compiled is the output of a definition source
type Compiled struct {
	// Values are side definitions: named non-bean entries
	Values map[string]any
	// Objects by bean name
	Objects map[string]*ObjectDefinition
	// ClassNames maps a class identifier to every bean name built from it
	ClassNames map[string][]string
	// Aliases maps alias to bean name
	Aliases map[string]string
}

// NewCompiled creates an empty Compiled with all tables allocated
func NewCompiled() *Compiled {
	return &Compiled{
		Values:     make(map[string]any),
		Objects:    make(map[string]*ObjectDefinition),
		ClassNames: make(map[string][]string),
		Aliases:    make(map[string]string),
	}
}

// DefinitionSource produces compiled definitions during container initialisation
type DefinitionSource interface {
	Compile() (*Compiled, error)
}

// SourceFunc adapts a function to DefinitionSource
type SourceFunc func() (*Compiled, error)

// Compile implements DefinitionSource
func (f SourceFunc) Compile() (*Compiled, error) { return f() }
