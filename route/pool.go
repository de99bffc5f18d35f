package route

import (
	"sync"

	"github.com/odypool/pooler/backend"
	"github.com/odypool/pooler/routeid"
)

// Pool is the indexed collection of routes the maintenance engine walks
// every tick. Mirrors the provider registry pattern: a map guarded by a
// single RWMutex, read-heavy (every tick's mark phase and stats pass
// take the read lock), write-light (only Upsert and GC take the write
// lock).
type Pool struct {
	mu     sync.RWMutex
	routes map[routeid.ID]*Route
}

// NewPool returns an empty route pool.
func NewPool() *Pool {
	return &Pool{routes: make(map[routeid.ID]*Route)}
}

// Upsert inserts a route if absent and returns the stored instance
// (existing or newly inserted). Route creation itself is the resolver's
// job, out of scope for this module; Upsert exists so tests and the demo
// command can populate a pool without reimplementing the resolver.
func (p *Pool) Upsert(r *Route) *Route {
	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.routes[r.ID]; ok {
		return existing
	}
	p.routes[r.ID] = r
	return r
}

// Get returns the route for id, if present.
func (p *Pool) Get(id routeid.ID) (*Route, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.routes[id]
	return r, ok
}

// Count returns the number of routes currently tracked.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.routes)
}

// Each applies fn to a stable snapshot of every route. fn may suspend;
// the snapshot is taken under the read lock and then released before
// fn runs, matching the statistics engine's use, which performs network
// I/O (logging) per route.
func (p *Pool) Each(fn func(*Route)) {
	p.mu.RLock()
	routes := make([]*Route, 0, len(p.routes))
	for _, r := range p.routes {
		routes = append(routes, r)
	}
	p.mu.RUnlock()

	for _, r := range routes {
		fn(r)
	}
}

// ServerForeach fans Foreach(state) across every route's server pool.
// As with backend.ServerPool.Foreach, fn runs after each route's bucket
// mutex has already been released, so fn is free to call Set on the
// same route's Servers (the expiry engine's mark phase does exactly
// that) without deadlocking.
func (p *Pool) ServerForeach(state backend.State, fn func(*Route, *backend.Server)) {
	p.mu.RLock()
	routes := make([]*Route, 0, len(p.routes))
	for _, r := range p.routes {
		routes = append(routes, r)
	}
	p.mu.RUnlock()

	for _, r := range routes {
		route := r
		route.Servers.Foreach(state, func(s *backend.Server) {
			fn(route, s)
		})
	}
}

// Next returns any single server in the given state across all routes,
// removing it from its bucket atomically with respect to the caller. It
// scans routes in map order (unspecified, stable for one call) and
// returns on the first hit; returns nil when no route has a server in
// state.
func (p *Pool) Next(state backend.State) *backend.Server {
	p.mu.RLock()
	routes := make([]*Route, 0, len(p.routes))
	for _, r := range p.routes {
		routes = append(routes, r)
	}
	p.mu.RUnlock()

	for _, r := range routes {
		if s := r.Servers.Next(state); s != nil {
			return s
		}
	}
	return nil
}

// GC deletes routes that are obsolete, have zero clients, and zero
// servers across every state.
func (p *Pool) GC() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, r := range p.routes {
		if r.IsObsolete() && r.IsEmpty() {
			delete(p.routes, id)
		}
	}
}
