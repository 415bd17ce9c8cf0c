package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/toyz/synapse/pkg/diag"
)

var inspectSources = map[string]string{
	"go.mod": "module github.com/example/shop\n\ngo 1.25\n",
	"orders/orders.go": `package orders

//bean::bean orders -alias=orderSvc -scope=prototype
type Service struct {
	//bean::inject
	Store *Store

	//bean::config shop.currency -default=EUR
	Currency string

	//bean::value 25 -export=orders.page
	PageSize int
}

//bean::listen app.bootstrapped
func (s *Service) Warm() {}

//bean::bean
type Store struct{}

//bean::parser route
type RouteParser struct{}

//bean::bean
//bean::route /orders
type Handler struct{}
`,
}

func writeSources(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range inspectSources {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestInspector_Inspect(t *testing.T) {
	root := writeSources(t)
	recorder := diag.NewRecorder()

	report, err := NewInspector(recorder).Inspect(context.Background(), Config{Directories: []string{root + "/..."}})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"github.com/example/shop": root}, report.Roots)

	compiled := report.Compiled
	require.Contains(t, compiled.Objects, "orders")
	svc := compiled.Objects["orders"]
	assert.Equal(t, "github.com/example/shop/orders.Service", svc.Class)
	assert.Equal(t, "prototype", string(svc.Scope))
	assert.Equal(t, "orders", compiled.Aliases["orderSvc"])

	require.Contains(t, svc.Properties, "Store")
	assert.Equal(t, "github.com/example/shop/orders.Store", svc.Properties["Store"].Ref.Name)
	assert.Equal(t, "config:shop.currency", svc.Properties["Currency"].Ref.String())
	assert.Equal(t, "25", svc.Properties["PageSize"].Value)

	assert.Equal(t, "25", compiled.Values["orders.page"])
	assert.Contains(t, compiled.Values, "event.listener.github.com/example/shop/orders.Service.Warm")

	require.Contains(t, compiled.Objects, "github.com/example/shop/orders.Handler")
	owner, ok := report.Registry.Parser("route")
	assert.True(t, ok)
	assert.Equal(t, "github.com/example/shop/orders.RouteParser", owner)
	assert.True(t, recorder.Has("opaqueParser", "class", owner))
}

func TestInspector_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := NewInspector(nil).Inspect(context.Background(), Config{Directories: []string{"/definitely/not/here"}})
		assert.Error(t, err)
	})

	t.Run("malformed directive", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "bad.go"), []byte("package bad\n\n//bean::bean \"unterminated\ntype Bad struct{}\n"), 0644))
		_, err := NewInspector(nil).Inspect(context.Background(), Config{Directories: []string{root}, ModuleName: "example.com/bad"})
		assert.Error(t, err)
	})
}

func TestPrintReports(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	root := writeSources(t)
	report, err := NewInspector(nil).Inspect(context.Background(), Config{Directories: []string{root}})
	require.NoError(t, err)

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		PrintText(diag.NewConsole(&buf, diag.LevelInfo), report)
		out := buf.String()
		assert.Contains(t, out, "Definitions")
		assert.Contains(t, out, "- orders (github.com/example/shop/orders.Service, prototype) alias orderSvc")
		assert.Contains(t, out, "    - Currency <- config:shop.currency")
		assert.Contains(t, out, "    - PageSize = 25")
		assert.Contains(t, out, "Inspection Complete!")
		assert.Contains(t, out, "definitions: 3")
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PrintYAML(&buf, report))

		var doc reportDoc
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
		require.Contains(t, doc.Beans, "orders")
		assert.Equal(t, "prototype", doc.Beans["orders"].Scope)
		assert.Equal(t, "<- github.com/example/shop/orders.Store", doc.Beans["orders"].Properties["Store"])
		assert.Equal(t, "orders", doc.Aliases["orderSvc"])
		assert.Equal(t, "25", doc.Values["orders.page"])
	})
}
