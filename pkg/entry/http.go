package entry

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/toyz/synapse/internal/errors"
	"github.com/toyz/synapse/pkg/config"
	"github.com/toyz/synapse/pkg/diag"
)

// Built-in routes mounted on every HTTP entrypoint
const (
	HealthPath = "/_synapse/health"
	BeansPath  = "/_synapse/beans"
)

// Server is implemented by each HTTP framework adapter
type Server interface {
	http.Handler
	// Handle registers h for method and path; ":name" segments are path parameters
	Handle(method, path string, h http.HandlerFunc)
	Start(addr string) error
	Stop(ctx context.Context) error
	Name() string
}

// HTTP serves routes from RouteProvider beans until the context is cancelled
type HTTP struct {
	Addr string
	// Adapter creates the server; defaults to Chi
	Adapter         func() Server
	ShutdownTimeout time.Duration
}

// Name implements Entrypoint
func (h *HTTP) Name() string { return "http" }

// Run implements Entrypoint
func (h *HTTP) Run(ctx context.Context, rt *Runtime) error {
	adapter := h.Adapter
	if adapter == nil {
		adapter = Chi
	}
	srv := adapter()
	count, err := Mount(srv, rt)
	if err != nil {
		return err
	}

	addr := h.Addr
	if addr == "" {
		addr = config.Env("SYNAPSE_HTTP_ADDR", ":8080")
	}
	rt.Sink.Notify(diag.LevelInfo, "httpStart", "adapter", srv.Name(), "addr", addr, "routes", count)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(addr) }()

	select {
	case err := <-errCh:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return errors.WrapWithOperation("serve", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := h.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return errors.WrapWithOperation("stop", srv.Name(), err)
	}
	rt.Sink.Notify(diag.LevelInfo, "httpStop", "adapter", srv.Name())
	return nil
}

// Mount registers the built-in routes and every route of the container's
// RouteProvider beans, returning the number of routes mounted
func Mount(srv Server, rt *Runtime) (int, error) {
	srv.Handle(http.MethodGet, HealthPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "app": rt.ID.String()})
	})
	srv.Handle(http.MethodGet, BeansPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, beanReport(rt))
	})
	count := 2

	routeProviders, err := providers[RouteProvider](rt.Container)
	if err != nil {
		return count, err
	}
	for _, p := range routeProviders {
		for _, route := range p.Routes() {
			srv.Handle(route.Method, route.Path, route.Handler)
			rt.Sink.Notify(diag.LevelDebug, "route", "method", route.Method, "path", route.Path)
			count++
		}
	}
	return count, nil
}

type beanEntry struct {
	Name  string `json:"name"`
	Class string `json:"class"`
	Scope string `json:"scope"`
	Alias string `json:"alias,omitempty"`
	Lazy  bool   `json:"lazy,omitempty"`
}

func beanReport(rt *Runtime) map[string]any {
	beans := make([]beanEntry, 0)
	for _, name := range rt.Container.Names() {
		def, _ := rt.Container.Definition(name)
		beans = append(beans, beanEntry{Name: name, Class: def.Class, Scope: string(def.Scope), Alias: def.Alias, Lazy: def.Lazy})
	}
	stats := rt.Container.Stats()
	return map[string]any{
		"app":   rt.ID.String(),
		"beans": beans,
		"stats": map[string]any{
			"definitions":   stats.Definitions,
			"singletons":    stats.Singletons,
			"prototypes":    stats.Prototypes,
			"aliases":       stats.Aliases,
			"values":        stats.Values,
			"built":         stats.Built,
			"constructions": stats.Constructions,
		},
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
