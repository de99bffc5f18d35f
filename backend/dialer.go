package backend

import (
	"context"
	"fmt"
	"io"
)

// terminateMessage is a minimal stand-in for the wire-protocol Terminate
// message ('X', zero-length body in the Postgres frontend/backend
// protocol). A real deployment's dialer speaks the actual upstream wire
// protocol; that parser is out of scope for this module (see spec §1).
var terminateMessage = []byte{'X', 0, 0, 0, 4}

// LoopbackDialer is a minimal Terminator used by the demo command: it
// writes the Terminate message to the server's Conn if it is
// an io.Writer, then closes it. Modeled on the idle-reaper close path in
// a tenant connection pool, where closing is unconditional regardless of
// whether the polite shutdown message could be sent.
type LoopbackDialer struct{}

// Terminate writes a Terminate message to s.Conn. A write failure is
// returned to the caller, which (per spec §4.3 step 5) logs it at debug
// and proceeds to close the connection regardless.
func (LoopbackDialer) Terminate(_ context.Context, s *Server) error {
	w, ok := s.Conn.(io.Writer)
	if !ok {
		return fmt.Errorf("server %d: conn does not support writes", s.ID)
	}
	_, err := w.Write(terminateMessage)
	return err
}

// Close closes the server's underlying connection, releasing it
// regardless of any prior Terminate failure.
func (LoopbackDialer) Close(s *Server) error {
	if s.Conn == nil {
		return nil
	}
	return s.Conn.Close()
}
