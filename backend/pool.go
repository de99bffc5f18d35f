package backend

import "sync"

// ServerPool is the per-route multiset of upstream connections, keyed by
// lifecycle state. It is the Go realization of the source's lock-free
// server pool: instead of relying on a single-threaded cooperative
// scheduler to make traversal-then-mutate atomic, each bucket mutation
// takes the pool's single mutex. Foreach takes a consistent snapshot of
// a bucket under that mutex and then releases it before invoking the
// callback — see Foreach's own doc — so a callback is free to call Set
// on the same pool without deadlocking on a non-reentrant mutex.
type ServerPool struct {
	mu      sync.Mutex
	buckets map[State]map[*Server]struct{}
}

// NewServerPool returns an empty pool.
func NewServerPool() *ServerPool {
	return &ServerPool{
		buckets: map[State]map[*Server]struct{}{
			StateIdle:   make(map[*Server]struct{}),
			StateActive: make(map[*Server]struct{}),
			StateExpire: make(map[*Server]struct{}),
		},
	}
}

// Set atomically moves a server from its current bucket to newState's
// bucket. StateUndef removes the server from every bucket. Safe to call
// while a Foreach traversal of a *different* bucket is in flight on a
// different goroutine; serialized with any traversal of the same bucket
// by the pool's mutex.
func (p *ServerPool) Set(s *Server, newState State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(s)
	s.state.Store(int32(newState))
	if newState == StateUndef {
		return
	}
	p.buckets[newState][s] = struct{}{}
}

func (p *ServerPool) removeLocked(s *Server) {
	for _, bucket := range p.buckets {
		delete(bucket, s)
	}
}

// Foreach invokes fn for every server in state at the moment of the
// call. It takes a snapshot of the bucket under the pool's mutex, then
// releases the mutex before calling fn for each server — spec.md §9's
// option (b) for realizing "traversal must not observe a concurrent
// mutation" without the source's cooperative scheduler. Releasing
// before fn runs means fn may itself call Set (as the mark phase does,
// to transition a server it just inspected) without deadlocking on
// ServerPool's non-reentrant mutex; it does mean a server Set by
// another goroutine between the snapshot and fn's call for it is
// inspected under its pre-snapshot state, which is acceptable here
// since the mark phase is the sole writer of IDLE/ACTIVE/EXPIRE
// transitions during normal operation.
func (p *ServerPool) Foreach(state State, fn func(*Server)) {
	p.mu.Lock()
	snapshot := make([]*Server, 0, len(p.buckets[state]))
	for s := range p.buckets[state] {
		snapshot = append(snapshot, s)
	}
	p.mu.Unlock()

	for _, s := range snapshot {
		fn(s)
	}
}

// Next pops and returns any one server currently in state, removing it
// from every bucket and setting its state to StateUndef. Returns nil if
// the bucket is empty.
func (p *ServerPool) Next(state State) *Server {
	p.mu.Lock()
	defer p.mu.Unlock()
	for s := range p.buckets[state] {
		delete(p.buckets[state], s)
		s.state.Store(int32(StateUndef))
		return s
	}
	return nil
}

// CountActive returns the number of servers currently ACTIVE.
func (p *ServerPool) CountActive() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buckets[StateActive])
}

// CountIdle returns the number of servers currently IDLE.
func (p *ServerPool) CountIdle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buckets[StateIdle])
}

// Count returns the total number of servers tracked across all buckets
// (ACTIVE + IDLE + EXPIRE). Used by route-pool GC to test for emptiness.
func (p *ServerPool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, bucket := range p.buckets {
		n += len(bucket)
	}
	return n
}
