package event

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zishang520/engine.io/v2/events"

	"github.com/toyz/synapse/pkg/diag"
)

type listener struct {
	calls  []string
	failOn string
}

func (l *listener) OnBoot() { l.calls = append(l.calls, "OnBoot") }

func (l *listener) WithEvent(e *Event) error {
	l.calls = append(l.calls, "WithEvent:"+e.Name)
	if e.Name == l.failOn {
		return stderrors.New("boom")
	}
	return nil
}

func (l *listener) BadArgs(a, b int) {}

func (l *listener) BadReturn() int { return 0 }

func (l *listener) Subscriptions() map[string]Handler {
	return map[string]Handler{
		"b.event": func(e *Event) error { l.calls = append(l.calls, "sub:b"); return nil },
		"a.event": func(e *Event) error { l.calls = append(l.calls, "sub:a"); return nil },
	}
}

func TestManager_DispatchOrder(t *testing.T) {
	m := NewManager()
	var order []int
	require.NoError(t, m.On("tick", func(*Event) error { order = append(order, 1); return nil }))
	require.NoError(t, m.On("tick", func(*Event) error { order = append(order, 2); return nil }))

	e, err := m.Dispatch("tick", "target", map[string]any{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, order)
	assert.Equal(t, "target", e.Target)
	assert.Equal(t, 1, e.Param("n"))
	assert.Equal(t, 2, m.ListenerCount("tick"))

	_, err = m.Dispatch("unknown", nil, nil)
	assert.NoError(t, err)
}

func TestManager_StopPropagationAndErrors(t *testing.T) {
	m := NewManager()
	ran := 0
	require.NoError(t, m.On("save", func(*Event) error { ran++; return stderrors.New("first") }))
	require.NoError(t, m.On("save", func(e *Event) error { ran++; e.StopPropagation(); return stderrors.New("second") }))
	require.NoError(t, m.On("save", func(*Event) error { ran++; return nil }))

	e, err := m.Dispatch("save", nil, nil)
	require.Error(t, err)
	assert.Equal(t, 2, ran)
	assert.True(t, e.Stopped())
	assert.ErrorContains(t, err, "listener of save: first")
	assert.ErrorContains(t, err, "listener of save: second")
}

func TestManager_BindMethod(t *testing.T) {
	recorder := diag.NewRecorder()
	m := NewManager(WithSink(recorder))
	l := &listener{failOn: "app.failed"}

	require.NoError(t, m.BindMethod(l, "OnBoot", AppBootstrapped))
	require.NoError(t, m.BindMethod(l, "WithEvent", AppBootstrapped))
	require.NoError(t, m.BindMethod(l, "WithEvent", "app.failed"))

	_, err := m.Dispatch(AppBootstrapped, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"OnBoot", "WithEvent:app.bootstrapped"}, l.calls)

	_, err = m.Dispatch("app.failed", nil, nil)
	assert.ErrorContains(t, err, "boom")

	assert.ErrorContains(t, m.BindMethod(l, "Missing", "x"), "has no method Missing")
	assert.ErrorContains(t, m.BindMethod(l, "BadArgs", "x"), "must take no arguments")
	assert.ErrorContains(t, m.BindMethod(l, "BadReturn", "x"), "may only return an error")
	assert.True(t, recorder.Has("bindListener", "event", AppBootstrapped))
}

func TestManager_Subscribe(t *testing.T) {
	m := NewManager()
	l := &listener{}
	require.NoError(t, m.Subscribe(l))

	assert.Equal(t, []string{"a.event", "b.event"}, m.Events())
	_, err := m.Dispatch("b.event", nil, nil)
	require.NoError(t, err)
	_, err = m.Dispatch("a.event", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"sub:b", "sub:a"}, l.calls)
}

// rejectingEmitter refuses every listener registration
type rejectingEmitter struct {
	events.EventEmitter
}

func (rejectingEmitter) On(events.EventName, ...events.Listener) error {
	return stderrors.New("emitter closed")
}

type partialSubscriber struct{}

func (partialSubscriber) Subscriptions() map[string]Handler {
	return map[string]Handler{"a.event": func(*Event) error { return nil }, "b.event": nil}
}

func TestManager_RegistrationErrors(t *testing.T) {
	m := NewManager()
	assert.ErrorContains(t, m.On("tick", nil), "nil listener for tick")
	assert.ErrorContains(t, m.Subscribe(partialSubscriber{}), "nil listener for b.event")

	rejecting := NewManager()
	rejecting.emitter = rejectingEmitter{EventEmitter: events.New()}

	err := rejecting.On("tick", func(*Event) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register listener of tick")
	assert.Contains(t, err.Error(), "emitter closed")

	assert.ErrorContains(t, rejecting.BindMethod(&listener{}, "OnBoot", AppBootstrapped), "emitter closed")
	assert.ErrorContains(t, rejecting.Subscribe(&listener{}), "emitter closed")
}
