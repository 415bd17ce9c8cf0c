package bean

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sync/singleflight"

	"github.com/toyz/synapse/internal/errors"
	"github.com/toyz/synapse/pkg/diag"
)

const (
	stateNew int32 = iota
	stateInitializing
	stateReady
	stateFailed
)

// Stats summarises the container after initialisation
type Stats struct {
	Definitions   int
	Singletons    int
	Prototypes    int
	Aliases       int
	Values        int
	Built         int
	Constructions int64
}

// Container instantiates object definitions and caches singletons.
// Definitions are immutable once Init returns.
type Container struct {
	catalog *Catalog
	sink    diag.Sink

	state atomic.Int32

	// pending inputs, consumed by Init
	specs   []map[string]*Spec
	sources []DefinitionSource
	statics []map[string]any

	mu          sync.RWMutex
	definitions map[string]*ObjectDefinition
	aliases     map[string]string
	classNames  map[string][]string
	values      map[string]any
	singletons  map[string]any

	group         singleflight.Group
	constructions atomic.Int64
}

// Option configures a Container
type Option func(*Container)

// WithSink sets the diagnostics sink
func WithSink(sink diag.Sink) Option {
	return func(c *Container) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// NewContainer creates a container resolving classes through catalog
func NewContainer(catalog *Catalog, opts ...Option) *Container {
	c := &Container{
		catalog:     catalog,
		sink:        diag.Discard,
		definitions: make(map[string]*ObjectDefinition),
		aliases:     make(map[string]string),
		classNames:  make(map[string][]string),
		values:      make(map[string]any),
		singletons:  make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddDefinitions queues static definitions. Later calls win on name collision.
func (c *Container) AddDefinitions(specs map[string]*Spec) {
	c.specs = append(c.specs, specs)
}

// AddSource queues a compiled definition source
func (c *Container) AddSource(src DefinitionSource) {
	c.sources = append(c.sources, src)
}

// AddValues queues named values. They win over values from compiled sources.
func (c *Container) AddValues(values map[string]any) {
	c.statics = append(c.statics, values)
}

// AddInstance registers a pre-built singleton under name
func (c *Container) AddInstance(name string, instance any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.singletons[name] = instance
}

// Init merges the static definitions, ingests every source, checks the
// reference graph for cycles and builds all non-lazy singletons.
func (c *Container) Init(ctx context.Context) error {
	if !c.state.CompareAndSwap(stateNew, stateInitializing) {
		return errors.New(errors.DependencyErrorCode, "container is already initialized")
	}
	if err := c.init(ctx); err != nil {
		c.state.Store(stateFailed)
		return err
	}
	c.state.Store(stateReady)

	stats := c.Stats()
	c.sink.Notify(diag.LevelInfo, "containerReady",
		"definitions", stats.Definitions,
		"singletons", stats.Singletons,
		"prototypes", stats.Prototypes,
		"aliases", stats.Aliases,
		"values", stats.Values)
	return nil
}

func (c *Container) init(ctx context.Context) error {
	merged := MergeSpecs(c.specs...)

	for _, src := range c.sources {
		compiled, err := src.Compile()
		if err != nil {
			return err
		}
		c.ingest(compiled)
	}

	for _, values := range c.statics {
		for k, v := range values {
			c.values[k] = v
		}
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec := merged[name]
		def, ok := c.definitions[name]
		if ok {
			oldClass, oldAlias := def.Class, def.Alias
			spec.Apply(def)
			if def.Class != oldClass {
				c.unindexClass(oldClass, name)
			}
			if oldAlias != "" && def.Alias != oldAlias && c.aliases[oldAlias] == name {
				delete(c.aliases, oldAlias)
			}
		} else {
			def = spec.Definition(name)
			c.definitions[name] = def
		}
		if def.Class == "" {
			return errors.NewContainerErrorf(name, "bean '%s' has no class", name)
		}
		c.indexClass(def.Class, name)
		if def.Alias != "" {
			c.aliases[def.Alias] = name
		}
	}

	if err := c.checkCycles(); err != nil {
		return err
	}

	for _, name := range c.Names() {
		if err := ctx.Err(); err != nil {
			return err
		}
		def := c.definitions[name]
		if def.Scope != Singleton || def.Lazy {
			continue
		}
		if _, err := c.resolve(name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) ingest(compiled *Compiled) {
	if compiled == nil {
		return
	}
	for k, v := range compiled.Values {
		c.values[k] = v
	}
	for name, def := range compiled.Objects {
		if def.Scope == "" {
			def.Scope = Singleton
		}
		c.definitions[name] = def
	}
	for class, names := range compiled.ClassNames {
		for _, name := range names {
			c.indexClass(class, name)
		}
	}
	for alias, name := range compiled.Aliases {
		c.aliases[alias] = name
	}
}

func (c *Container) indexClass(class, name string) {
	for _, existing := range c.classNames[class] {
		if existing == name {
			return
		}
	}
	c.classNames[class] = append(c.classNames[class], name)
}

func (c *Container) unindexClass(class, name string) {
	names := c.classNames[class]
	for i, existing := range names {
		if existing == name {
			names = append(names[:i:i], names[i+1:]...)
			break
		}
	}
	if len(names) == 0 {
		delete(c.classNames, class)
		return
	}
	c.classNames[class] = names
}

func (c *Container) checkCycles() error {
	g := newGraph()
	for name, def := range c.definitions {
		g.addNode(name)
		for _, ref := range def.References() {
			target := c.canonical(ref)
			if _, ok := c.definitions[target]; ok {
				g.addEdge(name, target)
			}
		}
	}
	return g.detectCycles()
}

// canonical maps an alias to its bean name; other names pass through
func (c *Container) canonical(name string) string {
	if _, ok := c.definitions[name]; ok {
		return name
	}
	if target, ok := c.aliases[name]; ok {
		return target
	}
	return name
}

// Get returns the bean registered under name or alias.
// Singletons are built at most once; prototypes are built on every call.
func (c *Container) Get(name string) (any, error) {
	if c.state.Load() != stateReady {
		return nil, errors.NewContainerErrorf(name, "cannot get bean '%s': container is not initialized", name)
	}
	return c.resolve(name)
}

// Resolve returns the bean registered under name as a T
func Resolve[T any](c *Container, name string) (T, error) {
	var zero T
	v, err := c.Get(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.NewContainerErrorf(name, "bean '%s' is %T, not %s", name, v, reflect.TypeFor[T]())
	}
	return t, nil
}

// Has reports whether name or alias resolves to a bean or value
func (c *Container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	target := c.canonical(name)
	if _, ok := c.definitions[target]; ok {
		return true
	}
	if _, ok := c.singletons[target]; ok {
		return true
	}
	_, ok := c.values[target]
	return ok
}

func (c *Container) resolve(name string) (any, error) {
	c.mu.RLock()
	target := c.canonical(name)
	if inst, ok := c.singletons[target]; ok {
		c.mu.RUnlock()
		return inst, nil
	}
	def, ok := c.definitions[target]
	value, isValue := c.values[target]
	c.mu.RUnlock()

	if !ok {
		if isValue {
			return value, nil
		}
		if target != name {
			return nil, errors.NewContainerErrorf(name, "alias '%s' points at unknown bean '%s'", name, target)
		}
		return nil, errors.NewContainerErrorf(name, "bean '%s' is not defined", name)
	}

	if def.Scope == Prototype {
		return c.build(def)
	}

	inst, err, _ := c.group.Do(target, func() (any, error) {
		c.mu.RLock()
		cached, ok := c.singletons[target]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		inst, err := c.build(def)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.singletons[target] = inst
		c.mu.Unlock()
		return inst, nil
	})
	return inst, err
}

func (c *Container) build(def *ObjectDefinition) (any, error) {
	info, ok := c.catalog.Lookup(def.Class)
	if !ok || info.New == nil {
		return nil, errors.NewContainerErrorf(def.Name, "class '%s' of bean '%s' is not registered", def.Class, def.Name)
	}
	inst := info.New()
	c.constructions.Add(1)

	fields := make([]string, 0, len(def.Properties))
	for field := range def.Properties {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		value, err := c.argument(def.Name, def.Properties[field].Argument)
		if err != nil {
			return nil, err
		}
		if err := setField(inst, field, value); err != nil {
			return nil, errors.NewContainerErrorf(def.Name, "bean '%s': %v", def.Name, err)
		}
	}

	for _, m := range def.Methods {
		if err := c.call(def, inst, m); err != nil {
			return nil, err
		}
	}

	if initializer, ok := inst.(Initializer); ok {
		if err := initializer.Init(); err != nil {
			return nil, errors.WrapDependencyError(def.Name, "Init", err)
		}
	}
	return inst, nil
}

func (c *Container) argument(owner string, arg Argument) (any, error) {
	if arg.Ref == nil {
		return arg.Value, nil
	}
	target, err := c.resolve(arg.Ref.Name)
	if err != nil {
		return nil, errors.WrapDependencyError(owner, arg.Ref.Name, err)
	}
	if arg.Ref.Path == "" {
		return target, nil
	}

	lookuper, ok := target.(Lookuper)
	if !ok {
		return nil, errors.NewContainerErrorf(owner, "bean '%s' referenced by '%s' does not support key lookup", arg.Ref.Name, owner)
	}
	if v, ok := lookuper.Lookup(arg.Ref.Path); ok {
		return v, nil
	}
	if arg.Ref.Default != nil {
		return arg.Ref.Default, nil
	}
	return nil, errors.NewContainerErrorf(owner, "key '%s' not found in '%s' for bean '%s'", arg.Ref.Path, arg.Ref.Name, owner)
}

func (c *Container) call(def *ObjectDefinition, inst any, m *MethodInjection) error {
	method := reflect.ValueOf(inst).MethodByName(m.Name)
	if !method.IsValid() {
		return errors.NewContainerErrorf(def.Name, "bean '%s' has no method '%s'", def.Name, m.Name)
	}
	mt := method.Type()
	if mt.NumIn() != len(m.Args) {
		return errors.NewContainerErrorf(def.Name, "method '%s' of bean '%s' takes %d arguments, %d given", m.Name, def.Name, mt.NumIn(), len(m.Args))
	}

	in := make([]reflect.Value, len(m.Args))
	for i, arg := range m.Args {
		value, err := c.argument(def.Name, arg)
		if err != nil {
			return err
		}
		slot := reflect.New(mt.In(i)).Elem()
		if err := assign(slot, value); err != nil {
			return errors.NewContainerErrorf(def.Name, "argument %d of '%s.%s': %v", i, def.Name, m.Name, err)
		}
		in[i] = slot
	}

	out := method.Call(in)
	if n := len(out); n > 0 {
		if err, ok := out[n-1].Interface().(error); ok && err != nil {
			return errors.WrapDependencyError(def.Name, m.Name, err)
		}
	}
	return nil
}

// setField assigns value to the named field of the struct pointed to by inst.
// Unexported and promoted fields are supported.
func setField(inst any, name string, value any) error {
	rv := reflect.ValueOf(inst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("cannot inject field '%s' into non-struct %T", name, inst)
	}
	sf, ok := rv.Elem().Type().FieldByName(name)
	if !ok {
		return fmt.Errorf("%T has no field '%s'", inst, name)
	}
	field, err := rv.Elem().FieldByIndexErr(sf.Index)
	if err != nil {
		return fmt.Errorf("field '%s': %w", name, err)
	}
	if !field.CanSet() {
		field = reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem()
	}
	if err := assign(field, value); err != nil {
		return fmt.Errorf("field '%s': %w", name, err)
	}
	return nil
}

// Value returns a named side definition
func (c *Container) Value(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[name]
	return v, ok
}

// Values returns a copy of every named value
func (c *Container) Values() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Definition returns the definition registered under name or alias
func (c *Container) Definition(name string) (*ObjectDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.definitions[c.canonical(name)]
	return def, ok
}

// Names returns every bean name, sorted
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.definitions))
	for name := range c.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NamesOf returns the bean names built from class, in registration order
func (c *Container) NamesOf(class string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.classNames[class]...)
}

// Stats returns definition and construction counters
func (c *Container) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{
		Definitions:   len(c.definitions),
		Aliases:       len(c.aliases),
		Values:        len(c.values),
		Built:         len(c.singletons),
		Constructions: c.constructions.Load(),
	}
	for _, def := range c.definitions {
		if def.Scope == Prototype {
			s.Prototypes++
		} else {
			s.Singletons++
		}
	}
	return s
}
