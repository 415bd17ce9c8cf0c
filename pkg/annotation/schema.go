package annotation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ParameterType represents the type of a directive parameter
type ParameterType int

const (
	StringType ParameterType = iota
	BoolType
	IntType
	StringSliceType
)

// String returns the string representation of the parameter type
func (p ParameterType) String() string {
	switch p {
	case StringType:
		return "string"
	case BoolType:
		return "bool"
	case IntType:
		return "int"
	case StringSliceType:
		return "[]string"
	default:
		return "unknown"
	}
}

// ParameterSpec defines the specification for a named directive parameter
type ParameterSpec struct {
	Type        ParameterType
	Required    bool
	Description string
	Validator   func(string) error
}

// Schema describes what a directive kind accepts
type Schema struct {
	Kind        string
	Description string
	Targets     []Target
	// MaxPositional limits positional arguments; negative means unlimited
	MaxPositional int
	Parameters    map[string]ParameterSpec
	Examples      []string
}

// SchemaRegistry manages directive schemas
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]Schema
}

// NewSchemaRegistry creates an empty schema registry
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{schemas: make(map[string]Schema)}
}

// Register adds a schema. Registering a kind twice is an error.
func (r *SchemaRegistry) Register(schema Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if schema.Kind == "" {
		return fmt.Errorf("schema kind cannot be empty")
	}
	if _, exists := r.schemas[schema.Kind]; exists {
		return fmt.Errorf("directive kind %s is already registered", schema.Kind)
	}
	for name, spec := range schema.Parameters {
		if name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if spec.Type < StringType || spec.Type > StringSliceType {
			return fmt.Errorf("invalid parameter type for %s: %d", name, spec.Type)
		}
	}
	r.schemas[schema.Kind] = schema
	return nil
}

// Get retrieves the schema for a kind
func (r *SchemaRegistry) Get(kind string) (Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[kind]
	return s, ok
}

// Kinds returns all registered kinds, sorted
func (r *SchemaRegistry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Validate checks a parsed directive against its schema.
// Kinds without a schema are accepted as-is.
func (r *SchemaRegistry) Validate(ann *Annotation) error {
	schema, ok := r.Get(ann.Kind)
	if !ok {
		return nil
	}

	if schema.MaxPositional >= 0 && len(ann.Positional) > schema.MaxPositional {
		return fmt.Errorf("%s takes at most %d positional argument(s), got %d", ann.Kind, schema.MaxPositional, len(ann.Positional))
	}

	for name, value := range ann.Params {
		spec, exists := schema.Parameters[name]
		if !exists {
			return fmt.Errorf("unknown parameter '%s' for %s", name, ann.Kind)
		}
		if err := checkType(spec.Type, value); err != nil {
			return fmt.Errorf("parameter '%s': %w", name, err)
		}
		if spec.Validator != nil {
			if err := spec.Validator(value); err != nil {
				return fmt.Errorf("parameter '%s' validation failed: %w", name, err)
			}
		}
	}
	for _, flag := range ann.Flags {
		spec, exists := schema.Parameters[flag]
		if !exists {
			return fmt.Errorf("unknown flag '%s' for %s", flag, ann.Kind)
		}
		if spec.Type != BoolType {
			return fmt.Errorf("parameter '%s' of %s needs a value", flag, ann.Kind)
		}
	}

	for name, spec := range schema.Parameters {
		if spec.Required && !ann.HasParam(name) {
			return fmt.Errorf("missing required parameter '%s' for %s", name, ann.Kind)
		}
	}
	return nil
}

// Allows reports whether the schema permits the directive on target
func (s Schema) Allows(target Target) bool {
	if len(s.Targets) == 0 {
		return true
	}
	for _, t := range s.Targets {
		if t == target {
			return true
		}
	}
	return false
}

func checkType(t ParameterType, value string) error {
	switch t {
	case BoolType:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("expected bool, got '%s'", value)
		}
	case IntType:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got '%s'", value)
		}
	case StringSliceType:
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				return fmt.Errorf("empty element in list '%s'", value)
			}
		}
	}
	return nil
}
