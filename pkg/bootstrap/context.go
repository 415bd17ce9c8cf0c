package bootstrap

import (
	"github.com/google/uuid"

	"github.com/toyz/synapse/pkg/annotation"
	"github.com/toyz/synapse/pkg/bean"
	"github.com/toyz/synapse/pkg/config"
	"github.com/toyz/synapse/pkg/diag"
	"github.com/toyz/synapse/pkg/event"
)

// Names the framework registers its own services under
const (
	ConfigBean = "config"
	EventsBean = "events"
)

// Context is threaded through every stage of the pipeline
type Context struct {
	ID        uuid.UUID
	Options   *Options
	Catalog   *bean.Catalog
	Registry  *annotation.Registry
	Config    *config.Repository
	Container *bean.Container
	Events    *event.Manager
	Sink      diag.Sink

	// EnvFiles are the dotenv files the env stage loaded
	EnvFiles []string
	// Compiled is the compiler output, set once the container has ingested it
	Compiled *bean.Compiled
}

func newContext(opts *Options) *Context {
	id := uuid.New()
	sink := &stamped{sink: opts.Sink, id: id.String()}

	catalog := opts.Catalog
	if catalog == nil {
		catalog = bean.NewCatalog()
	}
	return &Context{
		ID:        id,
		Options:   opts,
		Catalog:   catalog,
		Registry:  annotation.NewRegistry(),
		Config:    config.NewRepository(),
		Container: bean.NewContainer(catalog, bean.WithSink(sink)),
		Events:    event.NewManager(event.WithSink(sink)),
		Sink:      sink,
	}
}

// stamped adds the application id to every notification
type stamped struct {
	sink diag.Sink
	id   string
}

func (s *stamped) Notify(level diag.Level, event string, keyvals ...any) {
	kv := make([]any, 0, len(keyvals)+2)
	kv = append(kv, keyvals...)
	s.sink.Notify(level, event, append(kv, "app", s.id)...)
}
