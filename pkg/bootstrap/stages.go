package bootstrap

import (
	"context"
	"os"
	"time"

	"github.com/toyz/synapse/internal/utils"
	"github.com/toyz/synapse/pkg/annotation"
	"github.com/toyz/synapse/pkg/bean"
	"github.com/toyz/synapse/pkg/compiler"
	"github.com/toyz/synapse/pkg/config"
	"github.com/toyz/synapse/pkg/diag"
	"github.com/toyz/synapse/pkg/entry"
	"github.com/toyz/synapse/pkg/event"
	"github.com/toyz/synapse/pkg/parsers"
	"github.com/toyz/synapse/pkg/scanner"
)

// Default stage names, in pipeline order
const (
	StageEnv        = "env"
	StageConfig     = "config"
	StageAnnotation = "annotation"
	StageBean       = "bean"
	StageEvent      = "event"
	StageEntry      = "entry"
)

// Stage is one step of the bootstrap pipeline
type Stage interface {
	Name() string
	Handle(ctx context.Context, c *Context) error
}

type stageFunc struct {
	name string
	fn   func(ctx context.Context, c *Context) error
}

func (s *stageFunc) Name() string { return s.name }

func (s *stageFunc) Handle(ctx context.Context, c *Context) error { return s.fn(ctx, c) }

// NewStage creates a stage from a function
func NewStage(name string, fn func(ctx context.Context, c *Context) error) Stage {
	return &stageFunc{name: name, fn: fn}
}

// DefaultStages returns the built-in pipeline
func DefaultStages() []Stage {
	return []Stage{
		NewStage(StageEnv, envStage),
		NewStage(StageConfig, configStage),
		NewStage(StageAnnotation, annotationStage),
		NewStage(StageBean, beanStage),
		NewStage(StageEvent, eventStage),
		NewStage(StageEntry, entryStage),
	}
}

func envStage(ctx context.Context, c *Context) error {
	files := make([]string, 0, len(c.Options.EnvFiles))
	for _, f := range c.Options.EnvFiles {
		files = append(files, c.Options.path(f))
	}
	if len(files) == 0 {
		return nil
	}
	loaded, err := config.LoadEnv(files...)
	if err != nil {
		return err
	}
	if len(loaded) == 0 {
		c.Sink.Notify(diag.LevelDebug, "noEnvFile", "files", files)
		return nil
	}
	c.EnvFiles = loaded
	c.Sink.Notify(diag.LevelInfo, "envLoaded", "files", loaded)
	return nil
}

func configStage(ctx context.Context, c *Context) error {
	path := c.Options.path(c.Options.ConfigPath)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		c.Sink.Notify(diag.LevelDebug, "noConfigDir", "path", path)
		return nil
	}
	if err := c.Config.Load(path); err != nil {
		return err
	}
	c.Sink.Notify(diag.LevelInfo, "configLoaded", "files", len(c.Config.Files()), "keys", len(c.Config.Keys()))
	return nil
}

func annotationStage(ctx context.Context, c *Context) error {
	schemas := annotation.NewSchemaRegistry()
	if err := parsers.Install(c.Catalog, c.Registry, schemas); err != nil {
		return err
	}

	opts := c.Options.Scan
	moduleDir := c.Options.ModuleDir
	if moduleDir == "" && len(opts.Namespaces) == 0 {
		moduleDir = c.Options.BasePath
	}
	namespaces := make(map[string]string, len(opts.Namespaces)+1)
	for ns, dir := range opts.Namespaces {
		namespaces[ns] = c.Options.path(dir)
	}
	if moduleDir != "" {
		module, root, err := utils.NewGoModParser(nil).ModuleNamespace(c.Options.path(moduleDir))
		if err != nil {
			return err
		}
		namespaces[module] = root
	}
	opts.Namespaces = namespaces

	s := scanner.New(c.Registry, c.Catalog, opts,
		scanner.WithSink(c.Sink),
		scanner.WithGrammar(annotation.NewGrammar(schemas)))
	start := time.Now()
	if err := s.Scan(ctx); err != nil {
		return err
	}
	c.Sink.Notify(diag.LevelInfo, "scanned",
		"classes", len(c.Registry.Classes()),
		"parsers", len(c.Registry.Parsers()),
		"manifests", len(c.Registry.Manifests()),
		"duration", time.Since(start))
	return nil
}

func beanStage(ctx context.Context, c *Context) error {
	opts := c.Options
	c.Container.AddDefinitions(opts.Definitions)

	for _, m := range c.Registry.Manifests() {
		if m.Disabled {
			continue
		}
		provider, ok := m.Manifest.(annotation.DefinitionProvider)
		if !ok {
			continue
		}
		specs := provider.Definitions()
		c.Container.AddDefinitions(specs)
		c.Sink.Notify(diag.LevelDebug, "manifestDefinitions", "class", m.Class, "beans", len(specs))
	}

	if err := loadBeanFile(c); err != nil {
		return err
	}

	comp := compiler.New(c.Registry, c.Catalog, compiler.WithSink(c.Sink))
	c.Container.AddSource(bean.SourceFunc(func() (*bean.Compiled, error) {
		compiled, err := comp.Compile()
		c.Compiled = compiled
		return compiled, err
	}))
	c.Container.AddInstance(ConfigBean, c.Config)
	c.Container.AddInstance(EventsBean, c.Events)

	if err := c.Container.Init(ctx); err != nil {
		return err
	}

	stats := c.Container.Stats()
	c.Sink.Notify(diag.LevelInfo, "beanStats",
		"definitions", stats.Definitions,
		"singletons", stats.Singletons,
		"prototypes", stats.Prototypes,
		"built", stats.Built,
		"constructions", stats.Constructions)

	_, err := c.Events.Dispatch(event.ContainerReady, c.Container, nil)
	return err
}

func loadBeanFile(c *Context) error {
	path := c.Options.path(c.Options.BeanFile)
	if path == "" {
		c.Sink.Notify(diag.LevelDebug, "noBeanFile")
		return nil
	}
	file, err := bean.LoadFile(path)
	if err != nil {
		return err
	}
	c.Container.AddDefinitions(file.Beans)
	c.Container.AddValues(file.Values)
	c.Sink.Notify(diag.LevelInfo, "beanFile", "path", path, "beans", len(file.Beans), "values", len(file.Values))
	return nil
}

func eventStage(ctx context.Context, c *Context) error {
	for _, l := range parsers.Listeners(c.Container.Values()) {
		names := c.Container.NamesOf(l.Class)
		if len(names) == 0 {
			c.Sink.Notify(diag.LevelWarn, "unboundListener", "class", l.Class, "method", l.Method, "event", l.Event)
			continue
		}
		target, err := c.Container.Get(names[0])
		if err != nil {
			return err
		}
		if err := c.Events.BindMethod(target, l.Method, l.Event); err != nil {
			return err
		}
	}

	for _, name := range c.Container.Names() {
		def, _ := c.Container.Definition(name)
		if def.Scope != bean.Singleton {
			continue
		}
		inst, err := c.Container.Get(name)
		if err != nil {
			return err
		}
		if sub, ok := inst.(event.Subscriber); ok {
			if err := c.Events.Subscribe(sub); err != nil {
				return err
			}
		}
	}

	_, err := c.Events.Dispatch(event.AppBootstrapped, c, map[string]any{"app": c.ID.String()})
	return err
}

func entryStage(ctx context.Context, c *Context) error {
	ep := c.Options.Entrypoint
	if ep == nil {
		c.Sink.Notify(diag.LevelInfo, "noEntrypoint")
		return nil
	}
	c.Sink.Notify(diag.LevelInfo, "entrypoint", "name", ep.Name())
	return ep.Run(ctx, &entry.Runtime{
		ID:        c.ID,
		Container: c.Container,
		Events:    c.Events,
		Sink:      c.Sink,
	})
}
