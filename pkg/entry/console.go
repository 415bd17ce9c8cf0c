package entry

import (
	"context"
	"io"

	"github.com/toyz/synapse/pkg/diag"
)

// Console prints the bean table and container statistics
type Console struct {
	Out    io.Writer
	Colors bool
}

// Name implements Entrypoint
func (c *Console) Name() string { return "console" }

// Run implements Entrypoint
func (c *Console) Run(ctx context.Context, rt *Runtime) error {
	out := diag.NewConsole(c.Out, diag.LevelInfo)
	out.SetColors(c.Colors)

	out.Section("Beans")
	out.Indent()
	for _, name := range rt.Container.Names() {
		def, _ := rt.Container.Definition(name)
		if def.Alias != "" {
			out.List("%s (%s, %s) alias %s", name, def.Class, def.Scope, def.Alias)
			continue
		}
		out.List("%s (%s, %s)", name, def.Class, def.Scope)
	}
	out.Unindent()

	stats := rt.Container.Stats()
	out.Summary("Application "+rt.ID.String(),
		[]string{"definitions", "singletons", "prototypes", "aliases", "values", "built"},
		map[string]any{
			"definitions": stats.Definitions,
			"singletons":  stats.Singletons,
			"prototypes":  stats.Prototypes,
			"aliases":     stats.Aliases,
			"values":      stats.Values,
			"built":       stats.Built,
		})
	return ctx.Err()
}
