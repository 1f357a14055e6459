// ABOUTME: Backend registry for codec implementations
// ABOUTME: Looks up decoders and encoders by codec ID and optional backend name
package codec

import (
	"sort"
	"sync"
)

// Registry holds codec implementations keyed by ID
type Registry struct {
	mu     sync.RWMutex
	codecs map[ID][]*Codec
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[ID][]*Codec)}
}

// Default is the registry backends add themselves to at init time
var Default = NewRegistry()

// Register adds c, replacing any codec with the same ID and backend.
// A zero Registry is ready to use.
func (r *Registry) Register(c *Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.codecs == nil {
		r.codecs = make(map[ID][]*Codec)
	}
	list := r.codecs[c.ID]
	for i, existing := range list {
		if existing.Backend == c.Backend {
			list[i] = c
			r.sort(c.ID)
			return
		}
	}
	r.codecs[c.ID] = append(list, c)
	r.sort(c.ID)
}

// sort orders codecs by descending priority (must hold r.mu)
func (r *Registry) sort(id ID) {
	list := r.codecs[id]
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Priority > list[j].Priority
	})
}

// FindDecoder returns the best decoder for id, or the one from the named
// backend. Returns nil when none is registered.
func (r *Registry) FindDecoder(id ID, backend string) *Codec {
	return r.find(id, backend, func(c *Codec) bool { return c.NewDecoder != nil })
}

// FindEncoder returns the best encoder for id, or the one from the named
// backend. Returns nil when none is registered.
func (r *Registry) FindEncoder(id ID, backend string) *Codec {
	return r.find(id, backend, func(c *Codec) bool { return c.NewEncoder != nil })
}

func (r *Registry) find(id ID, backend string, usable func(*Codec) bool) *Codec {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.codecs[id] {
		if !usable(c) {
			continue
		}
		if backend == "" || c.Backend == backend {
			return c
		}
	}
	return nil
}

// Backends lists the backend names registered for id, best first
func (r *Registry) Backends(id ID) []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.codecs[id]))
	for _, c := range r.codecs[id] {
		names = append(names, c.Backend)
	}
	return names
}

// Register adds c to the default registry
func Register(c *Codec) {
	Default.Register(c)
}

// FindDecoder looks up a decoder in the default registry
func FindDecoder(id ID, backend string) *Codec {
	return Default.FindDecoder(id, backend)
}

// FindEncoder looks up an encoder in the default registry
func FindEncoder(id ID, backend string) *Codec {
	return Default.FindEncoder(id, backend)
}
