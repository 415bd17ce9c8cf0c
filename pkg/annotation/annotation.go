// Package annotation models the //bean:: directives attached to Go types,
// struct fields and methods, and the registry that collects them during a scan.
package annotation

import (
	"fmt"
	"strconv"

	"github.com/toyz/synapse/pkg/bean"
)

// Prefix starts every directive comment
const Prefix = "//bean::"

// Location is where a directive was found
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.Line == 0 {
		return l.File
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Annotation is one parsed directive, e.g. //bean::bean svc -scope=prototype
type Annotation struct {
	Kind       string
	Positional []string
	Params     map[string]string
	Flags      []string
	Location   Location
	Raw        string
}

// Arg returns the i-th positional argument or ""
func (a *Annotation) Arg(i int) string {
	if i < len(a.Positional) {
		return a.Positional[i]
	}
	return ""
}

// Param returns a named parameter with an optional default
func (a *Annotation) Param(key string, defaultValue ...string) string {
	if v, ok := a.Params[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

// HasParam checks if a named parameter was given
func (a *Annotation) HasParam(key string) bool {
	_, ok := a.Params[key]
	return ok
}

// Value returns the named parameter if present, else the positional argument at pos
func (a *Annotation) Value(key string, pos int) string {
	if v, ok := a.Params[key]; ok {
		return v
	}
	return a.Arg(pos)
}

// Flag reports whether -name was given, either bare or with a true value
func (a *Annotation) Flag(name string) bool {
	for _, f := range a.Flags {
		if f == name {
			return true
		}
	}
	if v, ok := a.Params[name]; ok {
		b, err := strconv.ParseBool(v)
		return err == nil && b
	}
	return false
}

// Target is the kind of declaration a directive is attached to
type Target int

const (
	TargetClass Target = iota
	TargetProperty
	TargetMethod
)

func (t Target) String() string {
	switch t {
	case TargetClass:
		return "class"
	case TargetProperty:
		return "property"
	case TargetMethod:
		return "method"
	default:
		return "unknown"
	}
}

// Fragment is a parser result. An empty fragment means "nothing to contribute".
// Class fragments are (name, class, scope, alias); property fragments are (value, isRef).
type Fragment []any

// ClassFragment builds the 4-element class result
func ClassFragment(name, class string, scope bean.Scope, alias string) Fragment {
	return Fragment{name, class, scope, alias}
}

// PropertyFragment builds the 2-element property result
func PropertyFragment(value any, isRef bool) Fragment {
	return Fragment{value, isRef}
}

// ParseContext is handed to every parser invocation
type ParseContext struct {
	Class            string
	ClassAnnotations []*Annotation
	Property         *PropertyMetadata
	Method           string
}

// Parser turns one directive into a fragment. A fresh parser is created for
// every directive, so implementations may keep per-parse state.
type Parser interface {
	Parse(ctx *ParseContext, target Target, ann *Annotation) (Fragment, error)
	// Definitions returns side definitions produced by the last Parse
	Definitions() map[string]any
}

// PropertyMetadata describes an annotated struct field
type PropertyMetadata struct {
	Name string
	// TypeID is the class identifier of the field type when it names a
	// declared type, e.g. "example.com/app/repo.Users"; empty otherwise
	TypeID      string
	Annotations []*Annotation
}

// MethodMetadata describes an annotated method
type MethodMetadata struct {
	Name        string
	Annotations []*Annotation
}

// ClassMetadata is everything the scanner extracted for one type
type ClassMetadata struct {
	Class       string
	File        string
	Annotations []*Annotation
	Properties  []*PropertyMetadata
	Methods     []*MethodMetadata
	Parent      *ClassMetadata
}

// Empty reports whether the type carries no directives of its own
func (m *ClassMetadata) Empty() bool {
	return len(m.Annotations) == 0 && len(m.Properties) == 0 && len(m.Methods) == 0
}

// Manifest is implemented by the AutoLoader type of every namespace root.
// NamespaceMap maps namespaces to directories; relative directories are
// resolved against the manifest's own directory.
type Manifest interface {
	NamespaceMap() map[string]string
}

// DefinitionProvider is implemented by manifests that contribute static beans
type DefinitionProvider interface {
	Definitions() map[string]*bean.Spec
}

// Component is implemented by manifests that can be switched off
type Component interface {
	Enabled() bool
}
