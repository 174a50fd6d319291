// Package hostapi is the optional HTTP/WebSocket introspection surface a
// host process exposes over the Computers it runs: a snapshot of a
// Computer's vitals and attached components, and a live stream of a bound
// screen's contents, grounded on phenix/web's gorilla/mux + gorilla/websocket
// server and its hand-rolled CORS middleware.
package hostapi

import (
	"sort"
	"sync"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

// Registry is the set of Computers a host has made visible to the API,
// keyed by the address a client names them by. Computer lifecycle is the
// host's responsibility; Registry only tracks what currently exists.
type Registry struct {
	mu        sync.RWMutex
	computers map[string]*nucleus.Computer
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{computers: make(map[string]*nucleus.Computer)}
}

// Add makes c visible under name, replacing any prior Computer with the
// same name.
func (r *Registry) Add(name string, c *nucleus.Computer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.computers[name] = c
}

// Remove drops name from the registry.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.computers, name)
}

// Get looks up a Computer by name.
func (r *Registry) Get(name string) (*nucleus.Computer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.computers[name]

	return c, ok
}

// Names returns every registered name, sorted for a stable listing.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.computers))
	for name := range r.computers {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}
