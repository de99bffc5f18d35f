// Package route implements the indexed route collection the pool
// maintenance engine drives: a logical (database, user, version) pool of
// upstream connections, its obsoletion/TTL scheme, and its server pool.
package route

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/odypool/pooler/backend"
	"github.com/odypool/pooler/routeid"
)

// Scheme is a route's configuration reference. IsObsolete and PoolTTL
// are read every tick by the expiry engine; Version feeds RouteID.
type Scheme struct {
	Version    string
	IsObsolete bool
	PoolTTL    time.Duration
	MaxServers int
}

// AvgStats is the rolling, interval-averaged rate derived from two
// absolute Stats snapshots. All four fields keep the source's naming so
// the admin API and stats log lines read the same across ports.
type AvgStats struct {
	RequestsPerSec  int64
	AvgQueryTimeUs  int64
	RecvClientBytes int64
	RecvServerBytes int64
}

// Route is a logical pool identified by RouteID. Clients is a bare
// atomic counter because the core only ever reads the client count; the
// client pool itself belongs to the (out of scope) frontend.
type Route struct {
	ID     routeid.ID
	Scheme *Scheme

	clients atomic.Int64
	Servers *backend.ServerPool

	mu               sync.Mutex
	periodicStats    backend.Snapshot
	periodicStatsAvg AvgStats
}

// New constructs an empty route for the given identifier and scheme.
func New(id routeid.ID, scheme *Scheme) *Route {
	return &Route{
		ID:      id,
		Scheme:  scheme,
		Servers: backend.NewServerPool(),
	}
}

// ClientCount returns the number of clients currently attached to this
// route. The core never mutates this; AddClient/RemoveClient exist for
// the (out of scope) client-pool collaborator and for tests.
func (r *Route) ClientCount() int64 { return r.clients.Load() }

// AddClient increments the client count.
func (r *Route) AddClient() { r.clients.Add(1) }

// RemoveClient decrements the client count.
func (r *Route) RemoveClient() { r.clients.Add(-1) }

// IsObsolete reports the scheme's obsoletion flag.
func (r *Route) IsObsolete() bool { return r.Scheme.IsObsolete }

// PoolTTL reports the scheme's idle TTL; zero disables TTL expiry.
func (r *Route) PoolTTL() time.Duration { return r.Scheme.PoolTTL }

// IsEmpty reports whether the route has no clients and no servers in
// any state, the GC predicate's non-obsoletion half.
func (r *Route) IsEmpty() bool {
	return r.ClientCount() == 0 && r.Servers.Count() == 0
}

// PeriodicStats returns the previous absolute counter snapshot.
func (r *Route) PeriodicStats() backend.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.periodicStats
}

// PeriodicStatsAvg returns the last computed rolling averages.
func (r *Route) PeriodicStatsAvg() AvgStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.periodicStatsAvg
}

// SetPeriodicStats stores the new absolute snapshot; always called once
// per tick of the statistics engine, even when the sanity gate skips the
// rate computation (spec §4.4 step 4).
func (r *Route) SetPeriodicStats(snap backend.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.periodicStats = snap
}

// SetPeriodicStatsAvg stores newly computed rolling averages.
func (r *Route) SetPeriodicStatsAvg(avg AvgStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.periodicStatsAvg = avg
}
