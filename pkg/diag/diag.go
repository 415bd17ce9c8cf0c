// Package diag carries the non-fatal notifications emitted while scanning,
// compiling and bootstrapping: excluded namespaces, missing manifests,
// unresolvable classes and similar soft failures.
package diag

import (
	"fmt"
	"strings"
	"sync"
)

// Level represents the severity of a notification
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the level label used in console output
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Sink receives notifications. keyvals are alternating key/value pairs.
type Sink interface {
	Notify(level Level, event string, keyvals ...any)
}

// Discard drops every notification.
var Discard Sink = discard{}

type discard struct{}

func (discard) Notify(Level, string, ...any) {}

// Entry is a notification captured by a Recorder
type Entry struct {
	Level  Level
	Event  string
	Fields map[string]any
}

// Recorder keeps every notification in memory. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify implements Sink
func (r *Recorder) Notify(level Level, event string, keyvals ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Event: event, Fields: fields(keyvals)})
}

// Entries returns a copy of everything recorded so far
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Events returns the recorded entries with the given event name
func (r *Recorder) Events(event string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// Has reports whether an event was recorded with field key equal to value
func (r *Recorder) Has(event, key string, value any) bool {
	for _, e := range r.Events(event) {
		if e.Fields[key] == value {
			return true
		}
	}
	return false
}

// Multi fans notifications out to several sinks
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

type multi []Sink

func (m multi) Notify(level Level, event string, keyvals ...any) {
	for _, s := range m {
		s.Notify(level, event, keyvals...)
	}
}

func fields(keyvals []any) map[string]any {
	out := make(map[string]any, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if i+1 < len(keyvals) {
			out[key] = keyvals[i+1]
		} else {
			out[key] = nil
		}
	}
	return out
}

func formatFields(keyvals []any) string {
	var b strings.Builder
	for i := 0; i < len(keyvals); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(fmt.Sprint(keyvals[i]))
		b.WriteByte('=')
		if i+1 < len(keyvals) {
			b.WriteString(fmt.Sprint(keyvals[i+1]))
		}
	}
	return b.String()
}
