// Package ioctx models the shared-mode I/O rebinding step from the
// sweep phase (spec §4.3 step 4). Go goroutines are not bound to OS
// threads the way the source's coroutines are bound to a machine
// context, so in a single Go process rebinding is always a no-op; the
// interface exists so a multi-process or multi-context deployment has a
// first-class extension point, per spec §9's "first-class operation on
// its I/O abstraction" note.
package ioctx

import "github.com/odypool/pooler/backend"

// Rebinder rebinds a server's I/O handle to the caller's execution
// context.
type Rebinder interface {
	Attach(s *backend.Server)
}

// Noop is the Rebinder used whenever is_shared is false.
type Noop struct{}

// Attach does nothing.
func (Noop) Attach(*backend.Server) {}
