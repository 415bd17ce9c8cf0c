package annotation

import (
	"strings"
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/toyz/synapse/internal/errors"
)

// directiveAST is the participle grammar root
type directiveAST struct {
	Kind string    `parser:"Prefix @Word"`
	Args []*argAST `parser:"@@*"`
}

// argAST is either -key, -key=value or a positional value
type argAST struct {
	Key   *string `parser:"(  Dash @Word"`
	Value *string `parser:"   ( Equals ( @String | @Dash? @Word ) )? )"`
	Pos   *string `parser:"| @String | @Word"`
}

var directiveLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Prefix", Pattern: `//bean::`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Dash", Pattern: `-`},
	{Name: "Equals", Pattern: `=`},
	{Name: "Word", Pattern: `[^\s"=-][^\s"=]*`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Grammar parses directive comments and validates them against registered schemas
type Grammar struct {
	parser  *participle.Parser[directiveAST]
	schemas *SchemaRegistry
}

// NewGrammar builds a directive parser. schemas may be nil to skip validation.
func NewGrammar(schemas *SchemaRegistry) *Grammar {
	return &Grammar{
		parser: participle.MustBuild[directiveAST](
			participle.Lexer(directiveLexer),
			participle.Elide("Whitespace"),
			participle.Unquote("String"),
			participle.UseLookahead(2),
		),
		schemas: schemas,
	}
}

var defaultGrammar = sync.OnceValue(func() *Grammar { return NewGrammar(nil) })

// Parse parses a directive with the default, schema-less grammar
func Parse(text string) (*Annotation, error) {
	return defaultGrammar().Parse(text, Location{})
}

// IsDirective reports whether a comment line is a //bean:: directive
func IsDirective(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), Prefix)
}

// Parse parses one directive comment line
func (g *Grammar) Parse(text string, loc Location) (*Annotation, error) {
	text = strings.TrimSpace(text)
	srcLoc := errors.SourceLocation{File: loc.File, Line: loc.Line}
	if !strings.HasPrefix(text, Prefix) {
		return nil, errors.NewSyntaxError(text, "directive must start with '"+Prefix+"'", srcLoc)
	}

	tree, err := g.parser.ParseString(loc.File, text)
	if err != nil {
		msg := err.Error()
		if perr, ok := err.(participle.Error); ok {
			msg = perr.Message()
		}
		serr := errors.NewSyntaxError(text, "invalid directive: "+msg, srcLoc)
		serr.WithSuggestion("Directives look like //bean::kind [value...] [-key=value] [-flag]")
		return nil, serr
	}

	ann := &Annotation{
		Kind:     tree.Kind,
		Params:   make(map[string]string),
		Location: loc,
		Raw:      text,
	}
	for _, arg := range tree.Args {
		switch {
		case arg.Key != nil && arg.Value != nil:
			ann.Params[*arg.Key] = *arg.Value
		case arg.Key != nil:
			ann.Flags = append(ann.Flags, *arg.Key)
		case arg.Pos != nil:
			ann.Positional = append(ann.Positional, *arg.Pos)
		}
	}

	if g.schemas != nil {
		if err := g.schemas.Validate(ann); err != nil {
			return nil, errors.NewSyntaxError(text, err.Error(), srcLoc)
		}
	}
	return ann, nil
}

// ParseFor parses a directive and checks that its schema permits target
func (g *Grammar) ParseFor(text string, loc Location, target Target) (*Annotation, error) {
	ann, err := g.Parse(text, loc)
	if err != nil {
		return nil, err
	}
	if g.schemas != nil {
		if schema, ok := g.schemas.Get(ann.Kind); ok && !schema.Allows(target) {
			return nil, errors.NewSyntaxError(text, ann.Kind+" cannot be used on a "+target.String(),
				errors.SourceLocation{File: loc.File, Line: loc.Line})
		}
	}
	return ann, nil
}
