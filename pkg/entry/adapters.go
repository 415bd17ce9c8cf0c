package entry

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Gin creates a server backed by a gin engine
func Gin() Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	return &ginServer{engine: engine, httpServer: newHTTPServer(engine)}
}

type ginServer struct {
	engine *gin.Engine
	*httpServer
}

func (s *ginServer) Handle(method, path string, h http.HandlerFunc) {
	s.engine.Handle(method, path, func(c *gin.Context) {
		for _, p := range c.Params {
			c.Request.SetPathValue(p.Key, p.Value)
		}
		h(c.Writer, c.Request)
	})
}

func (s *ginServer) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.engine.ServeHTTP(w, r) }

func (s *ginServer) Name() string { return "gin" }

// Echo creates a server backed by an echo instance
func Echo() Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	return &echoServer{echo: e}
}

type echoServer struct {
	echo *echo.Echo
}

func (s *echoServer) Handle(method, path string, h http.HandlerFunc) {
	s.echo.Add(method, path, func(c echo.Context) error {
		r := c.Request()
		values := c.ParamValues()
		for i, name := range c.ParamNames() {
			if i < len(values) {
				r.SetPathValue(name, values[i])
			}
		}
		h(c.Response(), r)
		return nil
	})
}

func (s *echoServer) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.echo.ServeHTTP(w, r) }

func (s *echoServer) Start(addr string) error { return s.echo.Start(addr) }

func (s *echoServer) Stop(ctx context.Context) error { return s.echo.Shutdown(ctx) }

func (s *echoServer) Name() string { return "echo" }

// Fiber creates a server backed by a fiber app
func Fiber() Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Use(fiberrecover.New())
	return &fiberServer{app: app}
}

type fiberServer struct {
	app *fiber.App
}

func (s *fiberServer) Handle(method, path string, h http.HandlerFunc) {
	s.app.Add(method, path, func(c *fiber.Ctx) error {
		params := c.AllParams()
		return adaptor.HTTPHandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for k, v := range params {
				r.SetPathValue(k, v)
			}
			h(w, r)
		})(c)
	})
}

func (s *fiberServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	adaptor.FiberApp(s.app)(w, r)
}

func (s *fiberServer) Start(addr string) error { return s.app.Listen(addr) }

func (s *fiberServer) Stop(ctx context.Context) error { return s.app.ShutdownWithContext(ctx) }

func (s *fiberServer) Name() string { return "fiber" }

// Chi creates a server backed by a chi router
func Chi() Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	return &chiServer{router: r, httpServer: newHTTPServer(r)}
}

type chiServer struct {
	router chi.Router
	*httpServer
}

func (s *chiServer) Handle(method, path string, h http.HandlerFunc) {
	s.router.MethodFunc(method, chiPath(path), func(w http.ResponseWriter, r *http.Request) {
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			for i, key := range rctx.URLParams.Keys {
				r.SetPathValue(key, rctx.URLParams.Values[i])
			}
		}
		h(w, r)
	})
}

func (s *chiServer) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *chiServer) Name() string { return "chi" }

// chiPath rewrites ":name" segments to chi's "{name}" form
func chiPath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, ":") && len(part) > 1 {
			parts[i] = "{" + part[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}

// httpServer runs a handler on a net/http server, for frameworks that do
// not manage their own listener
type httpServer struct {
	srv *http.Server
}

func newHTTPServer(h http.Handler) *httpServer {
	return &httpServer{srv: &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}}
}

func (s *httpServer) Start(addr string) error {
	s.srv.Addr = addr
	return s.srv.ListenAndServe()
}

func (s *httpServer) Stop(ctx context.Context) error { return s.srv.Shutdown(ctx) }
