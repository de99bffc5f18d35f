package backend

import (
	"io"
	"sync/atomic"

	"github.com/odypool/pooler/routeid"
)

// State is a server's lifecycle state within its route's server pool.
type State int32

const (
	// StateUndef is the transitional state: not present in any bucket.
	StateUndef State = iota
	StateIdle
	StateActive
	StateExpire
)

func (st State) String() string {
	switch st {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateExpire:
		return "expire"
	default:
		return "undef"
	}
}

// Server is a single upstream connection. Its owning route is carried by
// identifier (RouteID) rather than a pointer back to the route, so that
// the backend package never needs to import the route package — the
// route pool resolves the identifier back to a *route.Route when it
// needs to. This is the Go analogue of the "stable identifier instead of
// a raw ownership handle" design note: Go's garbage collector makes a
// literal ownership cycle harmless, but keeping the reference indirect
// still avoids a package import cycle and keeps Server testable in
// isolation.
type Server struct {
	// ID is a process-unique, stable identifier assigned at creation.
	ID uint64

	// RouteID is the (database, user, version) of the owning route.
	// Left zero-valued while the server sits outside any route pool.
	RouteID routeid.ID

	// Conn is the underlying I/O handle. nil is valid for tests that
	// never reach the sweep phase's close step.
	Conn io.Closer

	// state is mutated only by the ServerPool holding this server; use
	// State() to read it.
	state atomic.Int32

	// idleTime is seconds elapsed while continuously IDLE, reset to 0
	// whenever the server is checked out for use or swept. Incremented
	// only from the mark phase's ServerPool.Foreach callback, which runs
	// after Foreach has released the pool's mutex; the field itself is
	// not synchronized.
	idleTime int

	// stats holds the four atomic counters. Multi-writer (forwarding
	// path) single-reader (statistics engine); see Stats' own doc.
	stats Stats
}

// NewServer constructs a server in StateUndef, not yet attached to any
// route's pool.
func NewServer(id uint64, conn io.Closer) *Server {
	s := &Server{ID: id, Conn: conn}
	s.state.Store(int32(StateUndef))
	return s
}

// State returns the server's current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// IdleTime returns the current idle-second counter.
func (s *Server) IdleTime() int {
	return s.idleTime
}

// StatsRef exposes the server's counters for the forwarding path to
// write and the statistics engine to read. Embedding Stats directly
// would leak its mutating methods onto Server's exported surface.
func (s *Server) StatsRef() *Stats { return &s.stats }

// ResetIdleTime zeroes the idle-second counter; called on checkout and
// at the start of the sweep phase.
func (s *Server) ResetIdleTime() { s.idleTime = 0 }

// IncIdleTime adds one second to the idle-second counter. It takes no
// lock; the mark phase's ServerPool.Foreach(StateIdle, ...) callback is
// its only caller, and that callback runs after the pool's mutex has
// been released.
func (s *Server) IncIdleTime() { s.idleTime++ }

// ClearRoute nulls the server's back-reference to its former route.
// Called by the sweep phase after the server has already been removed
// from every state bucket, so no concurrent mutator can observe the
// transition.
func (s *Server) ClearRoute() { s.RouteID = routeid.ID{} }
