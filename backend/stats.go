package backend

import "sync/atomic"

// Stats holds the monotonically non-decreasing counters maintained on a
// server connection. The forwarding path (outside the scope of this
// module) is the sole writer, via AddX; the statistics engine is the
// sole reader, via Snapshot. No other synchronization is required:
// 64-bit atomics give each counter per-counter monotonicity, which is
// all the statistics engine's sanity gate relies on.
type Stats struct {
	queryTime    atomic.Int64 // microseconds accumulated in query execution
	countRequest atomic.Int64 // requests forwarded
	recvClient   atomic.Int64 // bytes received from the client
	recvServer   atomic.Int64 // bytes received from the server
}

// Snapshot is a point-in-time copy of Stats, safe to store and diff.
type Snapshot struct {
	QueryTime    int64
	CountRequest int64
	RecvClient   int64
	RecvServer   int64
}

// AddQueryTime records microseconds spent executing a query.
func (s *Stats) AddQueryTime(us int64) { s.queryTime.Add(us) }

// AddRequest increments the forwarded-request counter by one.
func (s *Stats) AddRequest() { s.countRequest.Add(1) }

// AddRecvClient records bytes received from the client.
func (s *Stats) AddRecvClient(n int64) { s.recvClient.Add(n) }

// AddRecvServer records bytes received from the server.
func (s *Stats) AddRecvServer(n int64) { s.recvServer.Add(n) }

// Snapshot atomically loads all four counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		QueryTime:    s.queryTime.Load(),
		CountRequest: s.countRequest.Load(),
		RecvClient:   s.recvClient.Load(),
		RecvServer:   s.recvServer.Load(),
	}
}

// Add accumulates another snapshot's counters into this one, used by the
// statistics engine when summing across a route's ACTIVE and IDLE servers.
func (s Snapshot) Add(o Snapshot) Snapshot {
	return Snapshot{
		QueryTime:    s.QueryTime + o.QueryTime,
		CountRequest: s.CountRequest + o.CountRequest,
		RecvClient:   s.RecvClient + o.RecvClient,
		RecvServer:   s.RecvServer + o.RecvServer,
	}
}
