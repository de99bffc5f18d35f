// Package statsengine derives interval-averaged per-route rates from the
// monotonic counters each server carries. It never suspends itself —
// only atomic loads and arithmetic — though the structured log line it
// emits per route may, which is why it is a separate suspension point
// from the expiry engine's sweep phase (spec §5).
package statsengine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/odypool/pooler/backend"
	"github.com/odypool/pooler/route"
)

// BufferCache reports cache pressure for the preamble line.
type BufferCache interface {
	Stat() (cached, allocated int)
}

// Exporter republishes a route's freshly computed averages somewhere
// external (see statsexport.RedisPublisher). Optional: a nil Exporter on
// Engine simply skips this step.
type Exporter interface {
	Publish(ctx context.Context, r *route.Route)
}

// Engine computes and logs rolling averages for every route.
type Engine struct {
	Logger        zerolog.Logger
	Buffers       BufferCache
	ActiveWorkers func() int // e.g. runtime.NumGoroutine
	LogStats      bool
	Exporter      Exporter // optional
}

// New constructs a statistics Engine.
func New(logger zerolog.Logger, buffers BufferCache, activeWorkers func() int, logStats bool) *Engine {
	return &Engine{Logger: logger, Buffers: buffers, ActiveWorkers: activeWorkers, LogStats: logStats}
}

// Tick computes and stores rolling averages for every route in rp,
// scaled by statsInterval ticks. Short-circuits entirely when rp has no
// routes (spec §7, "Empty pool").
func (e *Engine) Tick(ctx context.Context, rp *route.Pool, statsInterval int64) {
	if rp.Count() == 0 {
		return
	}

	if e.LogStats {
		cached, allocated := e.Buffers.Stat()
		workers := 0
		if e.ActiveWorkers != nil {
			workers = e.ActiveWorkers()
		}
		e.Logger.Info().Str("category", "stats").
			Int("buffers_cached", cached).
			Int("buffers_allocated", allocated).
			Int("workers_active", workers).
			Msg("stream cache and worker snapshot")
	}

	rp.Each(func(r *route.Route) {
		e.tickRoute(ctx, r, statsInterval)
	})
}

func (e *Engine) tickRoute(ctx context.Context, r *route.Route, interval int64) {
	var curr backend.Snapshot
	r.Servers.Foreach(backend.StateActive, func(s *backend.Server) {
		curr = curr.Add(s.StatsRef().Snapshot())
	})
	r.Servers.Foreach(backend.StateIdle, func(s *backend.Server) {
		curr = curr.Add(s.StatsRef().Snapshot())
	})

	prev := r.PeriodicStats()

	// Sanity gate: a server can disappear between samples, reducing the
	// summed total. When that happens, skip the rate computation this
	// tick but still refresh the snapshot (spec §4.4 step 4).
	reqDiff := curr.CountRequest - prev.CountRequest
	if reqDiff >= 0 {
		avg := computeAvg(prev, curr, reqDiff, interval)
		r.SetPeriodicStatsAvg(avg)
	}
	r.SetPeriodicStats(curr)

	if e.Exporter != nil {
		e.Exporter.Publish(ctx, r)
	}

	if e.LogStats {
		avg := r.PeriodicStatsAvg()
		e.Logger.Info().Str("category", "stats").
			Str("database", r.ID.Database).
			Str("user", r.ID.User).
			Str("version", r.ID.Version).
			Bool("is_obsolete", r.IsObsolete()).
			Int64("clients", r.ClientCount()).
			Int("pool_active", r.Servers.CountActive()).
			Int("pool_idle", r.Servers.CountIdle()).
			Int64("rps", avg.RequestsPerSec).
			Int64("query_time_us", avg.AvgQueryTimeUs).
			Int64("recv_client_bytes", avg.RecvClientBytes).
			Int64("recv_server_bytes", avg.RecvServerBytes).
			Msg("route stats")
	}
}

// computeAvg reproduces the source's arithmetic verbatim, including the
// double integer division on each counter difference (divide by
// interval, then divide that difference by interval again) rather than
// the algebraically equivalent single division by interval^2. Per spec
// §9's open question, this is preserved for bit-compatible metrics: it
// is a coarser, more aggressively-truncating quantization than a single
// division would be, and changing it would silently change the shape of
// every exported rate.
func computeAvg(prev, curr backend.Snapshot, reqDiff, interval int64) route.AvgStats {
	var avg route.AvgStats

	reqsPrev := prev.CountRequest / interval
	reqsCurr := curr.CountRequest / interval
	avg.RequestsPerSec = (reqsCurr - reqsPrev) / interval

	rcPrev := prev.RecvClient / interval
	rcCurr := curr.RecvClient / interval
	avg.RecvClientBytes = (rcCurr - rcPrev) / interval

	rsPrev := prev.RecvServer / interval
	rsCurr := curr.RecvServer / interval
	avg.RecvServerBytes = (rsCurr - rsPrev) / interval

	if reqDiff > 0 {
		avg.AvgQueryTimeUs = (curr.QueryTime - prev.QueryTime) / reqDiff
	}

	return avg
}
