package parsers

import (
	"github.com/toyz/synapse/pkg/annotation"
	"github.com/toyz/synapse/pkg/bean"
)

// BeanParser handles //bean::bean [name] [-name=..] [-scope=..] [-alias=..]
type BeanParser struct{}

// Parse implements annotation.Parser
func (p *BeanParser) Parse(ctx *annotation.ParseContext, target annotation.Target, ann *annotation.Annotation) (annotation.Fragment, error) {
	if target != annotation.TargetClass {
		return nil, unexpectedTarget(ann.Kind, target)
	}
	scope, err := bean.ParseScope(ann.Param("scope"))
	if err != nil {
		return nil, err
	}
	return annotation.ClassFragment(ann.Value("name", 0), ctx.Class, scope, ann.Param("alias")), nil
}

// Definitions implements annotation.Parser
func (p *BeanParser) Definitions() map[string]any { return nil }
