package parsers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/toyz/synapse/pkg/annotation"
)

// ListenerPrefix prefixes the side definitions produced by //bean::listen
const ListenerPrefix = "event.listener."

// Listener binds a bean method to an event
type Listener struct {
	Class  string
	Method string
	Event  string
}

// ListenParser handles //bean::listen <event> on methods
type ListenParser struct {
	definitions map[string]any
}

// Parse implements annotation.Parser
func (p *ListenParser) Parse(ctx *annotation.ParseContext, target annotation.Target, ann *annotation.Annotation) (annotation.Fragment, error) {
	if target != annotation.TargetMethod {
		return nil, unexpectedTarget(ann.Kind, target)
	}
	event := ann.Value("event", 0)
	if event == "" {
		return nil, fmt.Errorf("listener %s.%s names no event", ctx.Class, ctx.Method)
	}
	l := Listener{Class: ctx.Class, Method: ctx.Method, Event: event}
	p.definitions = map[string]any{ListenerKey(ctx.Class, ctx.Method, event): l}
	return annotation.Fragment{event}, nil
}

// Definitions implements annotation.Parser
func (p *ListenParser) Definitions() map[string]any { return p.definitions }

// ListenerKey is the side definition name of a listener binding; one
// method may listen to several events
func ListenerKey(class, method, event string) string {
	return ListenerPrefix + class + "." + method + "@" + event
}

// Listeners extracts the listener bindings from a value table, sorted by key
func Listeners(values map[string]any) []Listener {
	keys := make([]string, 0)
	for k, v := range values {
		if _, ok := v.(Listener); ok && strings.HasPrefix(k, ListenerPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]Listener, 0, len(keys))
	for _, k := range keys {
		out = append(out, values[k].(Listener))
	}
	return out
}
