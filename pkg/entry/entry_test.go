package entry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/synapse/pkg/bean"
	"github.com/toyz/synapse/pkg/diag"
	"github.com/toyz/synapse/pkg/event"
)

type greeter struct {
	Greeting string
}

func (g *greeter) Routes() []Route {
	return []Route{{
		Method: http.MethodGet,
		Path:   "/hello/:name",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "%s %s", g.Greeting, r.PathValue("name"))
		},
	}}
}

type counter struct{}

func newRuntime(t *testing.T) (*Runtime, *diag.Recorder) {
	t.Helper()
	catalog := bean.NewCatalog()
	greeterClass := bean.Register[greeter](catalog)
	counterClass := bean.Register[counter](catalog)

	recorder := diag.NewRecorder()
	c := bean.NewContainer(catalog)
	c.AddDefinitions(map[string]*bean.Spec{
		"greeter": {Class: greeterClass, Alias: "hi", Properties: map[string]any{"Greeting": "hello"}},
		"counter": {Class: counterClass, Scope: bean.Prototype},
	})
	require.NoError(t, c.Init(context.Background()))

	return &Runtime{
		ID:        uuid.MustParse("6f1c5b9e-3a5d-4a8e-9b1f-2d7c0e4a9b10"),
		Container: c,
		Events:    event.NewManager(),
		Sink:      recorder,
	}, recorder
}

func TestAdapters(t *testing.T) {
	gin.SetMode(gin.TestMode)

	adapters := map[string]func() Server{
		"gin":   Gin,
		"echo":  Echo,
		"fiber": Fiber,
		"chi":   Chi,
	}

	for name, adapter := range adapters {
		t.Run(name, func(t *testing.T) {
			rt, recorder := newRuntime(t)
			srv := adapter()
			assert.Equal(t, name, srv.Name())

			count, err := Mount(srv, rt)
			require.NoError(t, err)
			assert.Equal(t, 3, count)
			assert.True(t, recorder.Has("route", "path", "/hello/:name"))

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hello/ada", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "hello ada", rec.Body.String())

			rec = httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, HealthPath, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			var health map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
			assert.Equal(t, "ok", health["status"])
			assert.Equal(t, rt.ID.String(), health["app"])
		})
	}
}

func TestMount_BeanReport(t *testing.T) {
	rt, _ := newRuntime(t)
	srv := Chi()
	_, err := Mount(srv, rt)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, BeansPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report struct {
		App   string      `json:"app"`
		Beans []beanEntry `json:"beans"`
		Stats struct {
			Definitions int `json:"definitions"`
			Singletons  int `json:"singletons"`
			Prototypes  int `json:"prototypes"`
			Aliases     int `json:"aliases"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, rt.ID.String(), report.App)
	require.Len(t, report.Beans, 2)
	assert.Equal(t, "counter", report.Beans[0].Name)
	assert.Equal(t, "prototype", report.Beans[0].Scope)
	assert.Equal(t, "greeter", report.Beans[1].Name)
	assert.Equal(t, "hi", report.Beans[1].Alias)
	assert.Equal(t, 2, report.Stats.Definitions)
	assert.Equal(t, 1, report.Stats.Singletons)
	assert.Equal(t, 1, report.Stats.Prototypes)
	assert.Equal(t, 1, report.Stats.Aliases)
}

func TestChiPath(t *testing.T) {
	tests := map[string]string{
		"/users/:id":          "/users/{id}",
		"/users/:id/posts/:p": "/users/{id}/posts/{p}",
		"/static":             "/static",
		"/odd/:":              "/odd/:",
	}
	for in, want := range tests {
		assert.Equal(t, want, chiPath(in), in)
	}
}

// stubServer blocks in Start until Stop is called
type stubServer struct {
	mu       sync.Mutex
	routes   []string
	addr     string
	started  chan struct{}
	stopped  chan struct{}
	startErr error
}

func newStubServer() *stubServer {
	return &stubServer{started: make(chan struct{}), stopped: make(chan struct{})}
}

func (s *stubServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {}

func (s *stubServer) Handle(method, path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, method+" "+path)
}

func (s *stubServer) Start(addr string) error {
	s.mu.Lock()
	s.addr = addr
	s.mu.Unlock()
	close(s.started)
	if s.startErr != nil {
		return s.startErr
	}
	<-s.stopped
	return http.ErrServerClosed
}

func (s *stubServer) Stop(ctx context.Context) error {
	close(s.stopped)
	return nil
}

func (s *stubServer) Name() string { return "stub" }

func TestHTTP_RunStopsOnCancel(t *testing.T) {
	rt, recorder := newRuntime(t)
	stub := newStubServer()
	h := &HTTP{Addr: ":9999", Adapter: func() Server { return stub }, ShutdownTimeout: time.Second}
	assert.Equal(t, "http", h.Name())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, rt) }()

	<-stub.started
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("http entrypoint did not stop")
	}

	assert.Equal(t, ":9999", stub.addr)
	assert.Contains(t, stub.routes, "GET "+HealthPath)
	assert.Contains(t, stub.routes, "GET /hello/:name")
	assert.True(t, recorder.Has("httpStart", "routes", 3))
	assert.True(t, recorder.Has("httpStop", "adapter", "stub"))
}

func TestHTTP_RunReturnsStartError(t *testing.T) {
	rt, _ := newRuntime(t)
	stub := newStubServer()
	stub.startErr = fmt.Errorf("address in use")
	h := &HTTP{Adapter: func() Server { return stub }}

	err := h.Run(context.Background(), rt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
	assert.Equal(t, ":8080", stub.addr)
}

func TestConsole_Run(t *testing.T) {
	rt, _ := newRuntime(t)
	var buf bytes.Buffer
	c := &Console{Out: &buf}
	assert.Equal(t, "console", c.Name())

	require.NoError(t, c.Run(context.Background(), rt))
	out := buf.String()
	assert.Contains(t, out, "Beans")
	assert.Contains(t, out, "greeter ("+bean.TypeID(reflect.TypeFor[greeter]())+", singleton) alias hi")
	assert.Contains(t, out, "counter (")
	assert.Contains(t, out, "Application "+rt.ID.String())
	assert.Contains(t, out, "definitions: 2")
	assert.Contains(t, out, "prototypes: 1")
}

func TestFunc(t *testing.T) {
	rt, _ := newRuntime(t)
	called := false
	f := Func(func(ctx context.Context, got *Runtime) error {
		called = got == rt
		return nil
	})
	assert.Equal(t, "func", f.Name())
	require.NoError(t, f.Run(context.Background(), rt))
	assert.True(t, called)
}
