// Package parsers provides the built-in directive parsers: bean, inject,
// value, config and listen.
package parsers

import (
	"fmt"

	"github.com/toyz/synapse/pkg/annotation"
	"github.com/toyz/synapse/pkg/bean"
)

// Directive kinds handled by this package
const (
	KindBean   = "bean"
	KindInject = "inject"
	KindValue  = "value"
	KindConfig = "config"
	KindListen = "listen"
	KindParser = "parser"
)

// ConfigBean is the name the configuration repository is registered under
const ConfigBean = "config"

// Builtin describes one built-in directive and the parser type handling it
type Builtin struct {
	Kind     string
	Register func(*bean.Catalog) string
	Schema   annotation.Schema
}

// Builtins lists every built-in directive in registration order
var Builtins = []Builtin{
	{
		Kind:     KindBean,
		Register: bean.Register[BeanParser],
		Schema: annotation.Schema{
			Kind:          KindBean,
			Description:   "Declares a type as a bean",
			Targets:       []annotation.Target{annotation.TargetClass},
			MaxPositional: 1,
			Parameters: map[string]annotation.ParameterSpec{
				"name":  {Type: annotation.StringType, Description: "Bean name, defaults to the class identifier"},
				"scope": {Type: annotation.StringType, Description: "singleton or prototype", Validator: validateScope},
				"alias": {Type: annotation.StringType, Description: "Alternative name"},
			},
			Examples: []string{"//bean::bean", "//bean::bean users -scope=prototype -alias=userSvc"},
		},
	},
	{
		Kind:     KindInject,
		Register: bean.Register[InjectParser],
		Schema: annotation.Schema{
			Kind:          KindInject,
			Description:   "Injects another bean into a field",
			Targets:       []annotation.Target{annotation.TargetProperty},
			MaxPositional: 1,
			Parameters: map[string]annotation.ParameterSpec{
				"name": {Type: annotation.StringType, Description: "Bean name, defaults to the field type"},
			},
			Examples: []string{"//bean::inject", "//bean::inject users"},
		},
	},
	{
		Kind:     KindValue,
		Register: bean.Register[ValueParser],
		Schema: annotation.Schema{
			Kind:          KindValue,
			Description:   "Sets a field to a literal value",
			Targets:       []annotation.Target{annotation.TargetProperty},
			MaxPositional: 1,
			Parameters: map[string]annotation.ParameterSpec{
				"value":  {Type: annotation.StringType, Description: "Literal value"},
				"export": {Type: annotation.StringType, Description: "Also publish the value under this name"},
			},
			Examples: []string{"//bean::value 30", `//bean::value -value="hello world" -export=greeting`},
		},
	},
	{
		Kind:     KindConfig,
		Register: bean.Register[ConfigParser],
		Schema: annotation.Schema{
			Kind:          KindConfig,
			Description:   "Sets a field from the configuration repository",
			Targets:       []annotation.Target{annotation.TargetProperty},
			MaxPositional: 1,
			Parameters: map[string]annotation.ParameterSpec{
				"key":     {Type: annotation.StringType, Description: "Dotted configuration key"},
				"default": {Type: annotation.StringType, Description: "Value used when the key is missing"},
			},
			Examples: []string{"//bean::config app.name", "//bean::config -key=http.port -default=8080"},
		},
	},
	{
		Kind:     KindListen,
		Register: bean.Register[ListenParser],
		Schema: annotation.Schema{
			Kind:          KindListen,
			Description:   "Subscribes a method to an application event",
			Targets:       []annotation.Target{annotation.TargetMethod},
			MaxPositional: 1,
			Parameters: map[string]annotation.ParameterSpec{
				"event": {Type: annotation.StringType, Description: "Event name"},
			},
			Examples: []string{"//bean::listen app.bootstrapped"},
		},
	},
}

// ParserSchema describes the //bean::parser directive, which is handled by
// the scanner rather than by a parser type
var ParserSchema = annotation.Schema{
	Kind:          KindParser,
	Description:   "Declares a type as the parser of a directive kind",
	Targets:       []annotation.Target{annotation.TargetClass},
	MaxPositional: 1,
	Parameters: map[string]annotation.ParameterSpec{
		"annotation": {Type: annotation.StringType, Description: "Directive kind handled by the parser"},
	},
	Examples: []string{"//bean::parser route", "//bean::parser -annotation=route"},
}

// Install registers the built-in parser types in catalog, claims their kinds
// in registry and adds their schemas. schemas may be nil.
func Install(catalog *bean.Catalog, registry *annotation.Registry, schemas *annotation.SchemaRegistry) error {
	for _, b := range Builtins {
		id := b.Register(catalog)
		if err := registry.RegisterParser(b.Kind, id); err != nil {
			return err
		}
		if schemas != nil {
			if err := schemas.Register(b.Schema); err != nil {
				return err
			}
		}
	}
	if schemas != nil {
		return schemas.Register(ParserSchema)
	}
	return nil
}

// Schemas returns a schema registry holding every built-in schema
func Schemas() *annotation.SchemaRegistry {
	schemas := annotation.NewSchemaRegistry()
	for _, b := range Builtins {
		_ = schemas.Register(b.Schema)
	}
	_ = schemas.Register(ParserSchema)
	return schemas
}

func validateScope(s string) error {
	_, err := bean.ParseScope(s)
	return err
}

func unexpectedTarget(kind string, target annotation.Target) error {
	return fmt.Errorf("%s cannot be used on a %s", kind, target)
}
