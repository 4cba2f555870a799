package block

import (
	"fmt"
	"sync"
)

// Entry is one registered block type
type Entry struct {
	Schema    *Schema
	Generator Generator
}

// Registry manages registered block types by name. It is created
// explicitly and passed to whatever needs it; nothing is global.
type Registry struct {
	entries map[string]*Entry
	order   []string
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
	}
}

// Register installs an entry under its schema name. An existing entry with
// the same name is replaced and keeps its position in registration order.
func (r *Registry) Register(entry *Entry) error {
	if entry == nil || entry.Schema == nil {
		return fmt.Errorf("cannot register an entry without a schema")
	}
	if entry.Generator == nil {
		return fmt.Errorf("block %q has no generator", entry.Schema.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(entry)
	return nil
}

// Unregister removes a block type, reporting whether it existed
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remove(name)
}

// Replace removes the type named old and installs entry as a single step,
// so readers never observe a registry holding both or neither.
func (r *Registry) Replace(old string, entry *Entry) error {
	if entry == nil || entry.Schema == nil || entry.Generator == nil {
		return fmt.Errorf("cannot register an incomplete entry")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if old != "" && old != entry.Schema.Name {
		r.remove(old)
	}
	r.put(entry)
	return nil
}

// Lookup returns the entry registered under name
func (r *Registry) Lookup(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	return entry, ok
}

// Schema returns the schema registered under name
func (r *Registry) Schema(name string) (*Schema, bool) {
	entry, ok := r.Lookup(name)
	if !ok {
		return nil, false
	}
	return entry.Schema, true
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Schemas returns every registered schema in registration order
func (r *Registry) Schemas() []*Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemas := make([]*Schema, 0, len(r.order))
	for _, name := range r.order {
		schemas = append(schemas, r.entries[name].Schema)
	}
	return schemas
}

// Names returns registered type names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered types
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) put(entry *Entry) {
	name := entry.Schema.Name
	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = entry
}

func (r *Registry) remove(name string) bool {
	if _, exists := r.entries[name]; !exists {
		return false
	}
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}
