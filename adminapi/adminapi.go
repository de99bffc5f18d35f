// Package adminapi exposes read-only introspection of route and server
// pool state over HTTP. It never mutates pool state — the maintenance
// engine owns every transition — and runs on its own address, entirely
// independent of the periodic driver's loop.
package adminapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/odypool/pooler/route"
)

// routeView is the JSON shape returned for a single route.
type routeView struct {
	Database        string `json:"database"`
	User            string `json:"user"`
	Version         string `json:"version"`
	IsObsolete      bool   `json:"is_obsolete"`
	Clients         int64  `json:"clients"`
	PoolActive      int    `json:"pool_active"`
	PoolIdle        int    `json:"pool_idle"`
	RequestsPerSec  int64  `json:"rps"`
	AvgQueryTimeUs  int64  `json:"avg_query_time_us"`
	RecvClientBytes int64  `json:"recv_client_bytes"`
	RecvServerBytes int64  `json:"recv_server_bytes"`
}

func newRouteView(r *route.Route) routeView {
	avg := r.PeriodicStatsAvg()
	return routeView{
		Database:        r.ID.Database,
		User:            r.ID.User,
		Version:         r.ID.Version,
		IsObsolete:      r.IsObsolete(),
		Clients:         r.ClientCount(),
		PoolActive:      r.Servers.CountActive(),
		PoolIdle:        r.Servers.CountIdle(),
		RequestsPerSec:  avg.RequestsPerSec,
		AvgQueryTimeUs:  avg.AvgQueryTimeUs,
		RecvClientBytes: avg.RecvClientBytes,
		RecvServerBytes: avg.RecvServerBytes,
	}
}

// New returns a configured chi Router serving the admin introspection
// API over rp. authToken, when non-empty, requires a matching Bearer
// token on every request; rateLimitRPM, when positive, caps requests
// per remote address per minute.
func New(rp *route.Pool, log zerolog.Logger, authToken string, rateLimitRPM int) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors)
	r.Use(securityHeaders)
	r.Use(bearerAuth(authToken))
	r.Use(newRateLimiter(rateLimitRPM).middleware)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/routes", func(w http.ResponseWriter, _ *http.Request) {
		views := make([]routeView, 0, rp.Count())
		rp.Each(func(r *route.Route) {
			views = append(views, newRouteView(r))
		})
		writeJSON(w, http.StatusOK, views)
	})

	r.Get("/routes/{database}/{user}", func(w http.ResponseWriter, req *http.Request) {
		database := chi.URLParam(req, "database")
		user := chi.URLParam(req, "user")

		var found *route.Route
		rp.Each(func(r *route.Route) {
			if found == nil && r.ID.Database == database && r.ID.User == user {
				found = r
			}
		})
		if found == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "route not found"})
			return
		}
		writeJSON(w, http.StatusOK, newRouteView(found))
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("req_id", chimw.GetReqID(r.Context())).
				Int("status", rw.Status()).
				Dur("duration", time.Since(start)).
				Msg("admin request completed")
		})
	}
}
