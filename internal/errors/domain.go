package errors

import (
	"fmt"
	"strings"
)

// SyntaxError is raised when a directive comment cannot be parsed
type SyntaxError struct {
	*BaseError
	Directive string
}

// NewSyntaxError creates a new directive syntax error
func NewSyntaxError(directive, message string, loc SourceLocation) *SyntaxError {
	return &SyntaxError{
		BaseError: New(SyntaxErrorCode, message).WithLocation(loc),
		Directive: directive,
	}
}

// ScanError is raised when the structure of a source file cannot be read
type ScanError struct {
	*BaseError
	File string
}

// NewScanError creates a scan error for the given file
func NewScanError(file string, cause error) *ScanError {
	return &ScanError{
		BaseError: Wrap(ScanErrorCode, fmt.Sprintf("failed to read class structure from '%s'", file), cause).
			WithContext("file", file),
		File: file,
	}
}

// CompileError is raised when raw metadata cannot be turned into definitions
type CompileError struct {
	*BaseError
	Class string
	Kind  string
}

// NewCompileError creates a compile error for a class
func NewCompileError(class, message string) *CompileError {
	return &CompileError{
		BaseError: New(CompileErrorCode, message).WithContext("class", class),
		Class:     class,
	}
}

// NewCompileErrorf creates a compile error with a formatted message
func NewCompileErrorf(class, format string, args ...interface{}) *CompileError {
	return NewCompileError(class, fmt.Sprintf(format, args...))
}

// WithKind records the directive kind that produced the error
func (e *CompileError) WithKind(kind string) *CompileError {
	e.Kind = kind
	e.BaseError.WithContext("kind", kind)
	return e
}

// WithCause records the error returned by a directive parser
func (e *CompileError) WithCause(cause error) *CompileError {
	e.BaseError.WithCause(cause)
	return e
}

// At records the source location of the offending directive
func (e *CompileError) At(file string, line int) *CompileError {
	e.BaseError.WithLocation(SourceLocation{File: file, Line: line})
	return e
}

// RegistrationError is raised when a component cannot be registered
type RegistrationError struct {
	*BaseError
	ComponentType string
	Name          string
}

// NewRegistrationError creates a registration error
func NewRegistrationError(componentType, name, reason string) *RegistrationError {
	return &RegistrationError{
		BaseError:     Newf(RegistrationErrorCode, "failed to register %s '%s': %s", componentType, name, reason),
		ComponentType: componentType,
		Name:          name,
	}
}

// ParserConflictError is raised when two parser classes claim the same directive kind
type ParserConflictError struct {
	*BaseError
	Kind     string
	Existing string
	Incoming string
}

// NewParserConflictError creates a parser ownership conflict error
func NewParserConflictError(kind, existing, incoming string) *ParserConflictError {
	err := &ParserConflictError{
		BaseError: Newf(ParserConflictErrorCode, "directive '%s' is already handled by '%s', cannot register '%s'", kind, existing, incoming),
		Kind:      kind,
		Existing:  existing,
		Incoming:  incoming,
	}
	err.WithSuggestion("Use a distinct directive kind for the new parser")
	return err
}

// ContainerError is raised while resolving or constructing a bean
type ContainerError struct {
	*BaseError
	Bean string
}

// NewContainerError creates a dependency error for the named bean
func NewContainerError(bean, message string) *ContainerError {
	return &ContainerError{
		BaseError: New(DependencyErrorCode, message).WithContext("bean", bean),
		Bean:      bean,
	}
}

// NewContainerErrorf creates a dependency error with a formatted message
func NewContainerErrorf(bean, format string, args ...interface{}) *ContainerError {
	return NewContainerError(bean, fmt.Sprintf(format, args...))
}

// CycleError is raised when bean references form a cycle
type CycleError struct {
	*BaseError
	Path []string
}

// NewCycleError creates a cycle error; path lists the beans in order, closing on the first
func NewCycleError(path []string) *CycleError {
	return &CycleError{
		BaseError: Newf(CycleErrorCode, "dependency cycle detected: %s", strings.Join(path, " -> ")),
		Path:      path,
	}
}

// BootstrapError is raised when a pipeline stage fails
type BootstrapError struct {
	*BaseError
	Stage string
}

// NewBootstrapError wraps a stage failure
func NewBootstrapError(stage string, cause error) *BootstrapError {
	return &BootstrapError{
		BaseError: Wrap(BootstrapErrorCode, fmt.Sprintf("stage '%s' failed", stage), cause).WithContext("stage", stage),
		Stage:     stage,
	}
}
