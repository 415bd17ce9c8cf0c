// Package event dispatches application events to bean listeners on top of
// the engine.io event emitter.
package event

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/zishang520/engine.io/v2/events"

	"github.com/toyz/synapse/pkg/diag"
)

// Built-in events
const (
	// AppBootstrapped fires once every stage before the entrypoint has run
	AppBootstrapped = "app.bootstrapped"
	// ContainerReady fires after the bean container finished initialisation
	ContainerReady = "container.ready"
)

// Event is passed to every listener of a dispatch
type Event struct {
	Name   string
	Target any
	Params map[string]any

	mu      sync.Mutex
	stopped bool
	errs    []error
}

// Param returns a named parameter
func (e *Event) Param(key string) any {
	return e.Params[key]
}

// StopPropagation prevents the remaining listeners from running
func (e *Event) StopPropagation() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
}

// Stopped reports whether a listener stopped propagation
func (e *Event) Stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

func (e *Event) fail(err error) {
	e.mu.Lock()
	e.errs = append(e.errs, err)
	e.mu.Unlock()
}

// Handler handles one event
type Handler func(*Event) error

// Subscriber is implemented by beans that register several handlers at once
type Subscriber interface {
	Subscriptions() map[string]Handler
}

// Manager registers listeners and dispatches events
type Manager struct {
	emitter events.EventEmitter
	sink    diag.Sink
}

// Option configures a Manager
type Option func(*Manager)

// WithSink sets the diagnostics sink
func WithSink(sink diag.Sink) Option {
	return func(m *Manager) {
		if sink != nil {
			m.sink = sink
		}
	}
}

// NewManager creates a manager with its own emitter
func NewManager(opts ...Option) *Manager {
	m := &Manager{emitter: events.New(), sink: diag.Discard}
	for _, o := range opts {
		o(m)
	}
	return m
}

// On registers h for the named event. Listeners run in registration order.
func (m *Manager) On(name string, h Handler) error {
	if h == nil {
		return fmt.Errorf("nil listener for %s", name)
	}
	err := m.emitter.On(events.EventName(name), func(args ...any) {
		if len(args) == 0 {
			return
		}
		e, ok := args[0].(*Event)
		if !ok || e.Stopped() {
			return
		}
		if err := h(e); err != nil {
			e.fail(fmt.Errorf("listener of %s: %w", name, err))
		}
	})
	if err != nil {
		return fmt.Errorf("register listener of %s: %w", name, err)
	}
	return nil
}

// Subscribe registers every handler of s, in event name order
func (m *Manager) Subscribe(s Subscriber) error {
	subs := s.Subscriptions()
	names := make([]string, 0, len(subs))
	for name := range subs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := m.On(name, subs[name]); err != nil {
			return err
		}
	}
	m.sink.Notify(diag.LevelDebug, "subscribe", "subscriber", fmt.Sprintf("%T", s), "events", len(names))
	return nil
}

// BindMethod registers the named method of target as a listener. The method
// may take no arguments or a single *Event, and may return an error.
func (m *Manager) BindMethod(target any, method, name string) error {
	fn := reflect.ValueOf(target).MethodByName(method)
	if !fn.IsValid() {
		return fmt.Errorf("%T has no method %s", target, method)
	}

	ft := fn.Type()
	eventType := reflect.TypeFor[*Event]()
	errorType := reflect.TypeFor[error]()

	takesEvent := ft.NumIn() == 1 && ft.In(0) == eventType
	if ft.NumIn() > 1 || (ft.NumIn() == 1 && !takesEvent) {
		return fmt.Errorf("listener %T.%s must take no arguments or a single *event.Event", target, method)
	}
	returnsErr := ft.NumOut() == 1 && ft.Out(0) == errorType
	if ft.NumOut() > 1 || (ft.NumOut() == 1 && !returnsErr) {
		return fmt.Errorf("listener %T.%s may only return an error", target, method)
	}

	err := m.On(name, func(e *Event) error {
		var in []reflect.Value
		if takesEvent {
			in = []reflect.Value{reflect.ValueOf(e)}
		}
		out := fn.Call(in)
		if returnsErr && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.sink.Notify(diag.LevelDebug, "bindListener", "event", name, "method", fmt.Sprintf("%T.%s", target, method))
	return nil
}

// Dispatch fires the named event synchronously and returns the errors of
// every failing listener joined together
func (m *Manager) Dispatch(name string, target any, params map[string]any) (*Event, error) {
	e := &Event{Name: name, Target: target, Params: params}
	m.emitter.Emit(events.EventName(name), e)
	m.sink.Notify(diag.LevelDebug, "dispatch", "event", name, "listeners", m.ListenerCount(name))

	e.mu.Lock()
	defer e.mu.Unlock()
	return e, stderrors.Join(e.errs...)
}

// ListenerCount returns the number of listeners of the named event
func (m *Manager) ListenerCount(name string) int {
	return m.emitter.ListenerCount(events.EventName(name))
}

// Events returns the names of every event with listeners, sorted
func (m *Manager) Events() []string {
	names := m.emitter.EventNames()
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, string(n))
	}
	sort.Strings(out)
	return out
}
