package bean

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// TypeInfo describes a type known to the catalog
type TypeInfo struct {
	ID   string
	Type reflect.Type
	// New returns a fresh instance; nil for types that are only declared
	New func() any
}

// Catalog maps class identifiers to constructible types.
// Identifiers have the form "<import path>.<TypeName>".
type Catalog struct {
	mu    sync.RWMutex
	types map[string]*TypeInfo
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{types: make(map[string]*TypeInfo)}
}

// Register adds struct type T to the catalog and returns its identifier.
// Instances are created as *T.
func Register[T any](c *Catalog) string {
	t := reflect.TypeFor[T]()
	id := TypeID(t)
	c.Add(&TypeInfo{
		ID:   id,
		Type: t,
		New:  func() any { return reflect.New(t).Interface() },
	})
	return id
}

// RegisterFactory adds a factory under an explicit identifier.
// The factory is not called until an instance is needed.
func (c *Catalog) RegisterFactory(id string, fn func() any) {
	c.Add(&TypeInfo{ID: id, New: fn})
}

// Add stores info, replacing any previous entry with the same identifier
func (c *Catalog) Add(info *TypeInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[info.ID] = info
}

// Lookup returns the type registered under id
func (c *Catalog) Lookup(id string) (*TypeInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.types[id]
	return info, ok
}

// Resolve implements the scanner's resolver contract
func (c *Catalog) Resolve(id string) (*TypeInfo, bool) {
	return c.Lookup(id)
}

// New creates an instance of the type registered under id
func (c *Catalog) New(id string) (any, error) {
	info, ok := c.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("class '%s' is not registered in the catalog", id)
	}
	if info.New == nil {
		return nil, fmt.Errorf("class '%s' has no constructor", id)
	}
	return info.New(), nil
}

// IDs returns every registered identifier, sorted
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.types))
	for id := range c.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TypeID returns the class identifier of t; pointer types use their element
func TypeID(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
