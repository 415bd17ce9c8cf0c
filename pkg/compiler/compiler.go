// Package compiler turns the class metadata collected by the scanner into
// object definitions by running every directive through its registered parser.
package compiler

import (
	"fmt"

	"github.com/toyz/synapse/internal/errors"
	"github.com/toyz/synapse/pkg/annotation"
	"github.com/toyz/synapse/pkg/bean"
	"github.com/toyz/synapse/pkg/diag"
)

// Factory creates parser instances by class identifier
type Factory interface {
	New(id string) (any, error)
}

// Compiler is a bean.DefinitionSource backed by an annotation registry
type Compiler struct {
	registry *annotation.Registry
	factory  Factory
	sink     diag.Sink
}

// Option configures a Compiler
type Option func(*Compiler)

// WithSink sets the diagnostics sink
func WithSink(sink diag.Sink) Option {
	return func(c *Compiler) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// New creates a compiler reading classes and parsers from registry
func New(registry *annotation.Registry, factory Factory, options ...Option) *Compiler {
	c := &Compiler{registry: registry, factory: factory, sink: diag.Discard}
	for _, o := range options {
		o(c)
	}
	return c
}

// Compile implements bean.DefinitionSource. Classes are processed in
// registration order, so later classes win name and alias collisions.
func (c *Compiler) Compile() (*bean.Compiled, error) {
	parsers := c.registry.Parsers()
	out := bean.NewCompiled()

	for _, meta := range c.registry.Classes() {
		if err := c.compileClass(meta, parsers, out); err != nil {
			return nil, err
		}
	}

	c.sink.Notify(diag.LevelDebug, "compiled",
		"objects", len(out.Objects), "values", len(out.Values), "aliases", len(out.Aliases))
	return out, nil
}

func (c *Compiler) compileClass(meta *annotation.ClassMetadata, parsers map[string]string, out *bean.Compiled) error {
	if len(meta.Annotations) == 0 {
		return errors.NewCompileErrorf(meta.Class,
			"property or method of %s with directives must define a class directive", meta.Class)
	}

	def, err := c.classDefinition(meta, parsers)
	if err != nil {
		return err
	}
	props, err := c.members(meta, meta, parsers, out)
	if err != nil {
		return err
	}
	if def == nil {
		c.sink.Notify(diag.LevelDebug, "unresolvedClass", "class", meta.Class)
		return nil
	}

	for name, p := range props {
		def.Properties[name] = p
	}

	names := out.ClassNames[meta.Class]
	if !contains(names, def.Name) {
		out.ClassNames[meta.Class] = append(names, def.Name)
	}
	out.Objects[def.Name] = def
	if def.Alias != "" {
		out.Aliases[def.Alias] = def.Name
	}
	return nil
}

// classDefinition runs the class directives; the last one that resolves wins
func (c *Compiler) classDefinition(meta *annotation.ClassMetadata, parsers map[string]string) (*bean.ObjectDefinition, error) {
	ctx := &annotation.ParseContext{Class: meta.Class, ClassAnnotations: meta.Annotations}

	var def *bean.ObjectDefinition
	for _, ann := range meta.Annotations {
		parser, err := c.parser(meta.Class, ann, parsers)
		if err != nil {
			return nil, err
		}
		if parser == nil {
			continue
		}

		frag, err := parser.Parse(ctx, annotation.TargetClass, ann)
		if err != nil {
			return nil, compileErr(meta.Class, ann, "%s directive could not be parsed", ann.Kind).WithCause(err)
		}
		if len(frag) == 0 {
			continue
		}
		if len(frag) != 4 {
			return nil, compileErr(meta.Class, ann, "%s directive parse must return 4 values, got %d", ann.Kind, len(frag))
		}

		name, class, alias, ok := classStrings(frag[0], frag[1], frag[3])
		if !ok {
			return nil, compileErr(meta.Class, ann, "%s directive returned a malformed class fragment %v", ann.Kind, frag)
		}
		scope, err := scopeOf(frag[2])
		if err != nil {
			return nil, compileErr(meta.Class, ann, "%s directive returned an invalid scope", ann.Kind).WithCause(err)
		}
		if class == "" {
			return nil, compileErr(meta.Class, ann, "%s directive with class name can not be empty", ann.Kind)
		}
		if name == "" {
			name = class
		}

		def = bean.NewObjectDefinition(name, class)
		def.Scope = scope
		def.Alias = alias
	}
	return def, nil
}

// members compiles property and method directives of meta and its parents.
// Parent injections are collected first so the child wins on collision.
func (c *Compiler) members(owner, meta *annotation.ClassMetadata, parsers map[string]string, out *bean.Compiled) (map[string]*bean.PropertyInjection, error) {
	props := make(map[string]*bean.PropertyInjection)
	if meta.Parent != nil {
		inherited, err := c.members(owner, meta.Parent, parsers, out)
		if err != nil {
			return nil, err
		}
		for name, p := range inherited {
			props[name] = p
		}
	}

	for _, prop := range meta.Properties {
		inj, err := c.property(owner, prop, parsers, out)
		if err != nil {
			return nil, err
		}
		if inj != nil {
			props[prop.Name] = inj
		}
	}
	for _, m := range meta.Methods {
		if err := c.method(owner, m, parsers, out); err != nil {
			return nil, err
		}
	}
	return props, nil
}

func (c *Compiler) property(owner *annotation.ClassMetadata, prop *annotation.PropertyMetadata, parsers map[string]string, out *bean.Compiled) (*bean.PropertyInjection, error) {
	ctx := &annotation.ParseContext{Class: owner.Class, ClassAnnotations: owner.Annotations, Property: prop}

	var inj *bean.PropertyInjection
	for _, ann := range prop.Annotations {
		parser, err := c.parser(owner.Class, ann, parsers)
		if err != nil {
			return nil, err
		}
		if parser == nil {
			continue
		}

		frag, err := parser.Parse(ctx, annotation.TargetProperty, ann)
		if err != nil {
			return nil, compileErr(owner.Class, ann, "%s directive on %s could not be parsed", ann.Kind, prop.Name).WithCause(err)
		}
		if len(frag) == 0 {
			continue
		}
		if len(frag) != 2 {
			return nil, compileErr(owner.Class, ann, "%s directive on %s must return 2 values, got %d", ann.Kind, prop.Name, len(frag))
		}
		isRef, ok := frag[1].(bool)
		if !ok {
			return nil, compileErr(owner.Class, ann, "%s directive on %s returned a non-bool reference flag", ann.Kind, prop.Name)
		}

		mergeValues(out.Values, parser.Definitions())

		arg, err := argument(frag[0], isRef)
		if err != nil {
			return nil, compileErr(owner.Class, ann, "%s directive on %s returned an invalid reference", ann.Kind, prop.Name).WithCause(err)
		}
		inj = &bean.PropertyInjection{Name: prop.Name, Argument: arg}
	}
	return inj, nil
}

// method only collects side definitions; methods never become injections
func (c *Compiler) method(owner *annotation.ClassMetadata, m *annotation.MethodMetadata, parsers map[string]string, out *bean.Compiled) error {
	ctx := &annotation.ParseContext{Class: owner.Class, ClassAnnotations: owner.Annotations, Method: m.Name}

	for _, ann := range m.Annotations {
		parser, err := c.parser(owner.Class, ann, parsers)
		if err != nil {
			return err
		}
		if parser == nil {
			continue
		}

		frag, err := parser.Parse(ctx, annotation.TargetMethod, ann)
		if err != nil {
			return compileErr(owner.Class, ann, "%s directive on %s could not be parsed", ann.Kind, m.Name).WithCause(err)
		}
		if len(frag) == 0 {
			continue
		}
		mergeValues(out.Values, parser.Definitions())
	}
	return nil
}

// parser returns a fresh parser for the directive kind, or nil when no parser owns it
func (c *Compiler) parser(class string, ann *annotation.Annotation, parsers map[string]string) (annotation.Parser, error) {
	id, ok := parsers[ann.Kind]
	if !ok {
		return nil, nil
	}
	v, err := c.factory.New(id)
	if err != nil {
		return nil, compileErr(class, ann, "parser for %s directive cannot be created", ann.Kind).WithCause(err)
	}
	p, ok := v.(annotation.Parser)
	if !ok {
		return nil, compileErr(class, ann, "parser class '%s' does not implement annotation.Parser", id)
	}
	return p, nil
}

func compileErr(class string, ann *annotation.Annotation, format string, args ...any) *errors.CompileError {
	return errors.NewCompileErrorf(class, format, args...).
		WithKind(ann.Kind).
		At(ann.Location.File, ann.Location.Line)
}

// argument converts a property fragment value into an injection argument.
// Reference values may be a bean name or a bean.Reference.
func argument(value any, isRef bool) (bean.Argument, error) {
	if !isRef {
		return bean.Literal(value), nil
	}
	switch v := value.(type) {
	case string:
		if v == "" {
			return bean.Argument{}, fmt.Errorf("reference name is empty")
		}
		return bean.Ref(v), nil
	case bean.Reference:
		return bean.Argument{Ref: &v}, nil
	case *bean.Reference:
		if v == nil {
			return bean.Argument{}, fmt.Errorf("reference is nil")
		}
		ref := *v
		return bean.Argument{Ref: &ref}, nil
	default:
		return bean.Argument{}, fmt.Errorf("unsupported reference value %T", value)
	}
}

func scopeOf(v any) (bean.Scope, error) {
	switch s := v.(type) {
	case bean.Scope:
		return bean.ParseScope(string(s))
	case string:
		return bean.ParseScope(s)
	case nil:
		return bean.Singleton, nil
	default:
		return "", fmt.Errorf("scope must be a string, got %T", v)
	}
}

func classStrings(a, b, c any) (string, string, string, bool) {
	x, ok1 := stringOrNil(a)
	y, ok2 := stringOrNil(b)
	z, ok3 := stringOrNil(c)
	return x, y, z, ok1 && ok2 && ok3
}

func stringOrNil(v any) (string, bool) {
	if v == nil {
		return "", true
	}
	s, ok := v.(string)
	return s, ok
}

func mergeValues(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
