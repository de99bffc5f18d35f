// Package expire implements the two-phase mark/sweep expiry engine: the
// hardest-to-get-right piece of the pool maintenance core. Mark takes a
// per-bucket snapshot of the IDLE servers (backend.ServerPool.Foreach),
// then decides and applies each server's transition against that stable
// view, reproducing the source's "traversal must not yield" contract
// without relying on cooperative scheduling. Sweep then drains the
// EXPIRE bucket, performing the network I/O the mark phase does not.
package expire

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/odypool/pooler/backend"
	"github.com/odypool/pooler/ioctx"
	"github.com/odypool/pooler/route"
)

// Terminator sends the upstream Terminate message and closes the
// transport. Both methods are best-effort from the sweep phase's point
// of view: a Terminate failure never blocks Close.
type Terminator interface {
	Terminate(ctx context.Context, s *backend.Server) error
	Close(s *backend.Server) error
}

// BufferCache scopes a wire-protocol send buffer around the Terminate
// call, matching the source's stream-cache attach/detach discipline.
type BufferCache interface {
	Attach() []byte
	Detach(buf []byte)
}

// Engine runs one mark/sweep tick against a route pool.
type Engine struct {
	Terminator Terminator
	Buffers    BufferCache
	Rebinder   ioctx.Rebinder
	Logger     zerolog.Logger
	IsShared   bool
}

// New constructs an Engine. rebinder may be ioctx.Noop{} when is_shared
// is false.
func New(term Terminator, bufs BufferCache, rebinder ioctx.Rebinder, logger zerolog.Logger, isShared bool) *Engine {
	return &Engine{Terminator: term, Buffers: bufs, Rebinder: rebinder, Logger: logger, IsShared: isShared}
}

// Tick runs mark then sweep then route-pool GC against rp, exactly the
// sequence spec §4.3 requires.
func (e *Engine) Tick(ctx context.Context, rp *route.Pool) {
	e.mark(rp)
	e.sweep(ctx, rp)
	rp.GC()
}

// mark traverses a snapshot of every IDLE server across every route and
// decides whether it should keep aging, stay put (TTL disabled), or be
// handed to the sweep phase. backend.ServerPool.Foreach releases the
// bucket's mutex before calling this callback, so Set below — which
// transitions a server this same traversal is inspecting — takes that
// mutex fresh rather than re-entering it.
func (e *Engine) mark(rp *route.Pool) {
	rp.ServerForeach(backend.StateIdle, func(r *route.Route, s *backend.Server) {
		// 1. obsolete scheme draining an idle-client route: expire now.
		if r.IsObsolete() && r.ClientCount() == 0 {
			e.Logger.Debug().Str("category", "expire").Uint64("server", s.ID).
				Str("route", r.ID.String()).Msg("scheme marked obsolete, schedule closing")
			r.Servers.Set(s, backend.StateExpire)
			return
		}

		// 2. TTL disabled: leave unchanged.
		ttl := r.PoolTTL()
		if ttl <= 0 {
			return
		}

		// 3. still under TTL: age by one tick.
		if int64(s.IdleTime()) < int64(ttl.Seconds()) {
			s.IncIdleTime()
			return
		}

		// 4. TTL reached: expire.
		e.Logger.Debug().Str("category", "expire").Uint64("server", s.ID).
			Str("route", r.ID.String()).Int("idle_time", s.IdleTime()).
			Msg("idle time exceeded pool_ttl, schedule closing")
		r.Servers.Set(s, backend.StateExpire)
	})
}

// sweep repeatedly pops a server in StateExpire and terminates/closes
// it. Each popped server has already been removed from every bucket
// before sweep touches it, so no other mutator can observe it mid-close
// — the suspension points here (Terminate's I/O, buffer attach/detach)
// are safe.
func (e *Engine) sweep(ctx context.Context, rp *route.Pool) {
	for {
		s := rp.Next(backend.StateExpire)
		if s == nil {
			return
		}

		idleSecs := s.IdleTime()
		s.ResetIdleTime()
		s.ClearRoute()

		if e.IsShared {
			e.Rebinder.Attach(s)
		}

		buf := e.Buffers.Attach()
		err := e.Terminator.Terminate(ctx, s)
		e.Buffers.Detach(buf)
		if err != nil {
			e.Logger.Debug().Str("category", "expire").Uint64("server", s.ID).
				Err(err).Msg("failed to send terminate, closing anyway")
		}

		if err := e.Terminator.Close(s); err != nil {
			e.Logger.Warn().Str("category", "expire").Uint64("server", s.ID).
				Err(err).Msg("failed to close server connection")
		} else {
			e.Logger.Debug().Str("category", "expire").Uint64("server", s.ID).
				Int("idle_secs", idleSecs).Msg("closed idle server connection")
		}
	}
}
