package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/synapse/internal/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		kind       string
		positional []string
		params     map[string]string
		flags      []string
	}{
		{
			name:   "bare kind",
			input:  "//bean::bean",
			kind:   "bean",
			params: map[string]string{},
		},
		{
			name:       "positional name and params",
			input:      "//bean::bean userService -scope=prototype -alias=users",
			kind:       "bean",
			positional: []string{"userService"},
			params:     map[string]string{"scope": "prototype", "alias": "users"},
		},
		{
			name:   "flag",
			input:  "//bean::bean -lazy",
			kind:   "bean",
			params: map[string]string{},
			flags:  []string{"lazy"},
		},
		{
			name:       "quoted value with spaces",
			input:      `//bean::value "hello world"`,
			kind:       "value",
			positional: []string{"hello world"},
			params:     map[string]string{},
		},
		{
			name:       "dotted key and default",
			input:      `//bean::config app.name -default="demo app"`,
			kind:       "config",
			positional: []string{"app.name"},
			params:     map[string]string{"default": "demo app"},
		},
		{
			name:   "negative value",
			input:  "//bean::value -value=-1",
			kind:   "value",
			params: map[string]string{"value": "-1"},
		},
		{
			name:       "path like values",
			input:      "//bean::listen app.bootstrapped /tmp/x",
			kind:       "listen",
			positional: []string{"app.bootstrapped", "/tmp/x"},
			params:     map[string]string{},
		},
		{
			name:   "hyphenated value",
			input:  "  //bean::bean -alias=user-repo  ",
			kind:   "bean",
			params: map[string]string{"alias": "user-repo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ann, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ann.Kind)
			assert.Equal(t, tt.positional, ann.Positional)
			assert.Equal(t, tt.params, ann.Params)
			assert.Equal(t, tt.flags, ann.Flags)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not a directive", "// just a comment"},
		{"other prefix", "//axon::core"},
		{"missing kind", "//bean::"},
		{"dangling equals", "//bean::bean -scope="},
		{"unterminated string", `//bean::value "oops`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.SyntaxErrorCode))
		})
	}
}

func TestGrammar_SchemaValidation(t *testing.T) {
	schemas := NewSchemaRegistry()
	require.NoError(t, schemas.Register(Schema{
		Kind:          "bean",
		Targets:       []Target{TargetClass},
		MaxPositional: 1,
		Parameters: map[string]ParameterSpec{
			"scope": {Type: StringType},
			"lazy":  {Type: BoolType},
			"size":  {Type: IntType},
		},
	}))
	g := NewGrammar(schemas)
	loc := Location{File: "svc.go", Line: 12}

	_, err := g.Parse("//bean::bean svc -scope=singleton -lazy -size=3", loc)
	assert.NoError(t, err)

	_, err = g.Parse("//bean::bean svc -color=red", loc)
	assert.ErrorContains(t, err, "unknown parameter 'color'")

	_, err = g.Parse("//bean::bean a b", loc)
	assert.ErrorContains(t, err, "at most 1 positional")

	_, err = g.Parse("//bean::bean -size=big", loc)
	assert.ErrorContains(t, err, "expected int")

	_, err = g.Parse("//bean::bean -scope", loc)
	assert.ErrorContains(t, err, "needs a value")

	_, err = g.ParseFor("//bean::bean", loc, TargetProperty)
	assert.ErrorContains(t, err, "bean cannot be used on a property")
	assert.ErrorContains(t, err, "svc.go:12")

	ann, err := g.Parse("//bean::custom anything -goes", loc)
	require.NoError(t, err, "kinds without a schema are not validated")
	assert.True(t, ann.Flag("goes"))
}

func TestIsDirective(t *testing.T) {
	assert.True(t, IsDirective("//bean::bean"))
	assert.True(t, IsDirective("  //bean::inject"))
	assert.False(t, IsDirective("// bean::bean"))
	assert.False(t, IsDirective("//go:generate foo"))
}

func TestAnnotationAccessors(t *testing.T) {
	ann, err := Parse("//bean::bean svc -alias=s -lazy=true")
	require.NoError(t, err)

	assert.Equal(t, "svc", ann.Arg(0))
	assert.Equal(t, "", ann.Arg(3))
	assert.Equal(t, "s", ann.Param("alias"))
	assert.Equal(t, "singleton", ann.Param("scope", "singleton"))
	assert.Equal(t, "svc", ann.Value("name", 0))
	assert.True(t, ann.Flag("lazy"))
	assert.False(t, ann.Flag("alias"))
}
