package server

import (
	"fmt"
	"sync"
)

// Registry tracks open live connections so shutdown can close them
type Registry struct {
	conns map[string]*liveConn
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*liveConn),
	}
}

// Register adds a connection
func (r *Registry) Register(id string, c *liveConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = c
}

// Remove drops a connection without closing it
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Count returns the number of open connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Close closes every registered websocket; their handlers then unwind
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var firstErr error
	for id, c := range r.conns {
		if err := c.conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close connection %s: %w", id, err)
		}
	}
	return firstErr
}
