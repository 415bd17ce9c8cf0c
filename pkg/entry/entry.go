// Package entry holds the entrypoints an application runs once bootstrap
// has finished: a console report and an HTTP server with pluggable
// framework adapters.
package entry

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/toyz/synapse/pkg/bean"
	"github.com/toyz/synapse/pkg/diag"
	"github.com/toyz/synapse/pkg/event"
)

// Runtime is what an entrypoint gets to work with
type Runtime struct {
	ID        uuid.UUID
	Container *bean.Container
	Events    *event.Manager
	Sink      diag.Sink
}

// Entrypoint runs the application after bootstrap
type Entrypoint interface {
	Name() string
	Run(ctx context.Context, rt *Runtime) error
}

// Func adapts a function to Entrypoint
type Func func(ctx context.Context, rt *Runtime) error

// Name implements Entrypoint
func (f Func) Name() string { return "func" }

// Run implements Entrypoint
func (f Func) Run(ctx context.Context, rt *Runtime) error { return f(ctx, rt) }

// Route is a single HTTP route contributed by a bean. Paths use ":name"
// parameters, readable in handlers through r.PathValue("name").
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// RouteProvider is implemented by singleton beans that expose HTTP routes
type RouteProvider interface {
	Routes() []Route
}

// providers returns every singleton bean implementing T, in bean name order
func providers[T any](c *bean.Container) ([]T, error) {
	var out []T
	for _, name := range c.Names() {
		def, ok := c.Definition(name)
		if !ok || def.Scope != bean.Singleton {
			continue
		}
		inst, err := c.Get(name)
		if err != nil {
			return nil, err
		}
		if p, ok := inst.(T); ok {
			out = append(out, p)
		}
	}
	return out, nil
}
