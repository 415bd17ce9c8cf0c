package parsers

import (
	"fmt"

	"github.com/toyz/synapse/pkg/annotation"
	"github.com/toyz/synapse/pkg/bean"
)

// InjectParser handles //bean::inject [name]. Without a name the field's
// type identifier is used, which matches beans registered under their class.
type InjectParser struct{}

// Parse implements annotation.Parser
func (p *InjectParser) Parse(ctx *annotation.ParseContext, target annotation.Target, ann *annotation.Annotation) (annotation.Fragment, error) {
	if target != annotation.TargetProperty {
		return nil, unexpectedTarget(ann.Kind, target)
	}
	name := ann.Value("name", 0)
	if name == "" && ctx.Property != nil {
		name = ctx.Property.TypeID
	}
	if name == "" {
		return nil, fmt.Errorf("cannot infer the bean to inject into %s; name it explicitly", propertyName(ctx))
	}
	return annotation.PropertyFragment(name, true), nil
}

// Definitions implements annotation.Parser
func (p *InjectParser) Definitions() map[string]any { return nil }

// ValueParser handles //bean::value <literal> [-export=name]
type ValueParser struct {
	definitions map[string]any
}

// Parse implements annotation.Parser
func (p *ValueParser) Parse(ctx *annotation.ParseContext, target annotation.Target, ann *annotation.Annotation) (annotation.Fragment, error) {
	if target != annotation.TargetProperty {
		return nil, unexpectedTarget(ann.Kind, target)
	}
	if !ann.HasParam("value") && len(ann.Positional) == 0 {
		return nil, fmt.Errorf("value for %s is missing", propertyName(ctx))
	}
	value := ann.Value("value", 0)
	if export := ann.Param("export"); export != "" {
		p.definitions = map[string]any{export: value}
	}
	return annotation.PropertyFragment(value, false), nil
}

// Definitions implements annotation.Parser
func (p *ValueParser) Definitions() map[string]any { return p.definitions }

// ConfigParser handles //bean::config <key> [-default=..], resolving the key
// in the configuration repository when the bean is built
type ConfigParser struct{}

// Parse implements annotation.Parser
func (p *ConfigParser) Parse(ctx *annotation.ParseContext, target annotation.Target, ann *annotation.Annotation) (annotation.Fragment, error) {
	if target != annotation.TargetProperty {
		return nil, unexpectedTarget(ann.Kind, target)
	}
	key := ann.Value("key", 0)
	if key == "" {
		return nil, fmt.Errorf("config key for %s is missing", propertyName(ctx))
	}
	ref := bean.Reference{Name: ConfigBean, Path: key}
	if ann.HasParam("default") {
		ref.Default = ann.Param("default")
	}
	return annotation.PropertyFragment(ref, true), nil
}

// Definitions implements annotation.Parser
func (p *ConfigParser) Definitions() map[string]any { return nil }

func propertyName(ctx *annotation.ParseContext) string {
	if ctx.Property == nil {
		return ctx.Class
	}
	return ctx.Class + "." + ctx.Property.Name
}
