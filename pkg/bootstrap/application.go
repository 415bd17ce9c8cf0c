// Package bootstrap runs an application through its startup pipeline: env
// and config loading, directive scanning, container construction, event
// wiring and finally the configured entrypoint.
package bootstrap

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/toyz/synapse/internal/errors"
	"github.com/toyz/synapse/pkg/bean"
	"github.com/toyz/synapse/pkg/config"
	"github.com/toyz/synapse/pkg/diag"
	"github.com/toyz/synapse/pkg/event"
)

// ErrAlreadyRun is returned by a second call to Run
var ErrAlreadyRun = errors.New(errors.BootstrapErrorCode, "application has already run")

// Hook runs around a stage. A before-hook returning false stops the
// pipeline; the result of an after-hook is ignored.
type Hook func(ctx context.Context, c *Context) bool

// Application is a single-use bootstrap pipeline
type Application struct {
	mu       sync.Mutex
	ctx      *Context
	stages   []Stage
	disabled map[string]bool
	before   map[string][]Hook
	after    map[string][]Hook
	ran      atomic.Bool
}

// New creates an application with the default stages
func New(options ...Option) *Application {
	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}
	return &Application{
		ctx:      newContext(opts),
		stages:   DefaultStages(),
		disabled: make(map[string]bool),
		before:   make(map[string][]Hook),
		after:    make(map[string][]Hook),
	}
}

// ID returns the application id
func (a *Application) ID() uuid.UUID { return a.ctx.ID }

// Context returns the state shared by the stages
func (a *Application) Context() *Context { return a.ctx }

// Catalog returns the type catalog
func (a *Application) Catalog() *bean.Catalog { return a.ctx.Catalog }

// Container returns the dependency container; it is usable once the bean stage has run
func (a *Application) Container() *bean.Container { return a.ctx.Container }

// Config returns the configuration repository
func (a *Application) Config() *config.Repository { return a.ctx.Config }

// Events returns the event manager
func (a *Application) Events() *event.Manager { return a.ctx.Events }

// DisableStage skips the named stages and their hooks
func (a *Application) DisableStage(names ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, name := range names {
		a.disabled[name] = true
	}
}

// Before registers a hook run before the named stage
func (a *Application) Before(stage string, hook Hook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.before[stage] = append(a.before[stage], hook)
}

// After registers a hook run after the named stage
func (a *Application) After(stage string, hook Hook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.after[stage] = append(a.after[stage], hook)
}

// AddFirstStage puts stages at the start of the pipeline
func (a *Application) AddFirstStage(stages ...Stage) {
	a.AddStage(0, stages...)
}

// AddLastStage appends stages to the pipeline
func (a *Application) AddLastStage(stages ...Stage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stages = append(a.stages, stages...)
}

// AddStage inserts stages at index; out of range indexes are clamped
func (a *Application) AddStage(index int, stages ...Stage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 {
		index = 0
	}
	if index > len(a.stages) {
		index = len(a.stages)
	}
	out := make([]Stage, 0, len(a.stages)+len(stages))
	out = append(out, a.stages[:index]...)
	out = append(out, stages...)
	out = append(out, a.stages[index:]...)
	a.stages = out
}

// Stages returns the stage names in pipeline order
func (a *Application) Stages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.stages))
	for _, s := range a.stages {
		names = append(names, s.Name())
	}
	return names
}

// Run executes the pipeline once. A stage error aborts it and is returned
// wrapped in a BootstrapError; a before-hook stop returns nil.
func (a *Application) Run(ctx context.Context) error {
	if !a.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	a.mu.Lock()
	stages := append([]Stage(nil), a.stages...)
	a.mu.Unlock()

	c := a.ctx
	start := time.Now()
	for _, stage := range stages {
		name := stage.Name()
		if a.isDisabled(name) {
			c.Sink.Notify(diag.LevelInfo, "disabledStage", "stage", name)
			continue
		}
		if err := ctx.Err(); err != nil {
			return errors.NewBootstrapError(name, err)
		}

		if !a.runBefore(ctx, name) {
			c.Sink.Notify(diag.LevelInfo, "stopped", "stage", name)
			return nil
		}

		stageStart := time.Now()
		if err := stage.Handle(ctx, c); err != nil {
			return errors.NewBootstrapError(name, err)
		}
		c.Sink.Notify(diag.LevelDebug, "stage", "stage", name, "duration", time.Since(stageStart))

		a.runAfter(ctx, name)
	}
	c.Sink.Notify(diag.LevelInfo, "bootstrapped", "duration", time.Since(start))
	return nil
}

func (a *Application) isDisabled(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.disabled[name]
}

func (a *Application) hooks(table map[string][]Hook, name string) []Hook {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Hook(nil), table[name]...)
}

func (a *Application) runBefore(ctx context.Context, name string) bool {
	for _, h := range a.hooks(a.before, name) {
		if !h(ctx, a.ctx) {
			return false
		}
	}
	return true
}

func (a *Application) runAfter(ctx context.Context, name string) {
	for _, h := range a.hooks(a.after, name) {
		h(ctx, a.ctx)
	}
}
