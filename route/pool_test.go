package route_test

import (
	"testing"
	"time"

	"github.com/odypool/pooler/backend"
	"github.com/odypool/pooler/route"
	"github.com/odypool/pooler/routeid"
)

func newTestRoute(db, user string, obsolete bool, ttl time.Duration) *route.Route {
	id := routeid.ID{Database: db, User: user, Version: "v1"}
	return route.New(id, &route.Scheme{Version: "v1", IsObsolete: obsolete, PoolTTL: ttl, MaxServers: 10})
}

func TestPoolUpsertReturnsExisting(t *testing.T) {
	p := route.NewPool()
	r1 := newTestRoute("app", "app", false, time.Minute)
	r2 := newTestRoute("app", "app", false, time.Minute)

	got1 := p.Upsert(r1)
	got2 := p.Upsert(r2)

	if got1 != r1 {
		t.Fatal("expected first upsert to return the inserted route")
	}
	if got2 != r1 {
		t.Fatal("expected second upsert of the same id to return the original instance")
	}
	if p.Count() != 1 {
		t.Fatalf("expected 1 route tracked, got %d", p.Count())
	}
}

func TestPoolGet(t *testing.T) {
	p := route.NewPool()
	r := newTestRoute("app", "app", false, time.Minute)
	p.Upsert(r)

	got, ok := p.Get(r.ID)
	if !ok || got != r {
		t.Fatal("expected Get to find the upserted route")
	}

	_, ok = p.Get(routeid.ID{Database: "missing"})
	if ok {
		t.Fatal("expected Get to report absence for an unknown id")
	}
}

func TestPoolEachVisitsEveryRoute(t *testing.T) {
	p := route.NewPool()
	p.Upsert(newTestRoute("a", "u", false, time.Minute))
	p.Upsert(newTestRoute("b", "u", false, time.Minute))

	var names []string
	p.Each(func(r *route.Route) {
		names = append(names, r.ID.Database)
	})

	if len(names) != 2 {
		t.Fatalf("expected 2 routes visited, got %d", len(names))
	}
}

func TestPoolServerForeachFansAcrossRoutes(t *testing.T) {
	p := route.NewPool()
	r1 := newTestRoute("a", "u", false, time.Minute)
	r2 := newTestRoute("b", "u", false, time.Minute)
	p.Upsert(r1)
	p.Upsert(r2)

	r1.Servers.Set(backend.NewServer(1, nil), backend.StateIdle)
	r2.Servers.Set(backend.NewServer(2, nil), backend.StateIdle)
	r2.Servers.Set(backend.NewServer(3, nil), backend.StateActive)

	var visited int
	p.ServerForeach(backend.StateIdle, func(r *route.Route, s *backend.Server) {
		visited++
	})
	if visited != 2 {
		t.Fatalf("expected 2 idle servers visited across routes, got %d", visited)
	}
}

func TestPoolNextScansRoutes(t *testing.T) {
	p := route.NewPool()
	r := newTestRoute("a", "u", false, time.Minute)
	p.Upsert(r)
	s := backend.NewServer(1, nil)
	r.Servers.Set(s, backend.StateExpire)

	got := p.Next(backend.StateExpire)
	if got != s {
		t.Fatal("expected Next to find the expiring server")
	}
	if p.Next(backend.StateExpire) != nil {
		t.Fatal("expected nil once drained")
	}
}

func TestPoolGCDeletesObsoleteEmptyRoutes(t *testing.T) {
	p := route.NewPool()
	obsoleteEmpty := newTestRoute("gone", "u", true, time.Minute)
	obsoleteBusy := newTestRoute("busy", "u", true, time.Minute)
	obsoleteBusy.AddClient()
	active := newTestRoute("active", "u", false, time.Minute)

	p.Upsert(obsoleteEmpty)
	p.Upsert(obsoleteBusy)
	p.Upsert(active)

	p.GC()

	if _, ok := p.Get(obsoleteEmpty.ID); ok {
		t.Fatal("expected obsolete empty route to be collected")
	}
	if _, ok := p.Get(obsoleteBusy.ID); !ok {
		t.Fatal("expected obsolete route with a client to survive GC")
	}
	if _, ok := p.Get(active.ID); !ok {
		t.Fatal("expected non-obsolete route to survive GC")
	}
}

func TestPoolServerForeachCallbackCanSetWithoutDeadlock(t *testing.T) {
	p := route.NewPool()
	r := newTestRoute("a", "u", false, time.Minute)
	p.Upsert(r)

	r.Servers.Set(backend.NewServer(1, nil), backend.StateIdle)
	r.Servers.Set(backend.NewServer(2, nil), backend.StateIdle)

	p.ServerForeach(backend.StateIdle, func(r *route.Route, s *backend.Server) {
		r.Servers.Set(s, backend.StateExpire)
	})

	if r.Servers.CountIdle() != 0 {
		t.Fatalf("expected idle bucket drained, got %d idle", r.Servers.CountIdle())
	}
}

func TestRouteIsEmpty(t *testing.T) {
	r := newTestRoute("a", "u", false, time.Minute)
	if !r.IsEmpty() {
		t.Fatal("expected new route to be empty")
	}

	r.AddClient()
	if r.IsEmpty() {
		t.Fatal("expected route with a client to be non-empty")
	}
	r.RemoveClient()

	r.Servers.Set(backend.NewServer(1, nil), backend.StateIdle)
	if r.IsEmpty() {
		t.Fatal("expected route with a server to be non-empty")
	}
}
