package adminapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/odypool/pooler/adminapi"
	"github.com/odypool/pooler/backend"
	"github.com/odypool/pooler/route"
	"github.com/odypool/pooler/routeid"
)

func newTestPool() *route.Pool {
	rp := route.NewPool()
	r := route.New(routeid.ID{Database: "app", User: "app", Version: "v1"},
		&route.Scheme{Version: "v1", PoolTTL: time.Minute})
	r.Servers.Set(backend.NewServer(1, nil), backend.StateActive)
	rp.Upsert(r)
	return rp
}

func TestHealthz(t *testing.T) {
	h := adminapi.New(newTestPool(), zerolog.Nop(), "", 0)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestListRoutes(t *testing.T) {
	h := adminapi.New(newTestPool(), zerolog.Nop(), "", 0)
	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 route in listing, got %d", len(got))
	}
	if got[0]["pool_active"].(float64) != 1 {
		t.Fatalf("expected pool_active 1, got %v", got[0]["pool_active"])
	}
}

func TestGetRouteFound(t *testing.T) {
	h := adminapi.New(newTestPool(), zerolog.Nop(), "", 0)
	req := httptest.NewRequest(http.MethodGet, "/routes/app/app", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGetRouteNotFound(t *testing.T) {
	h := adminapi.New(newTestPool(), zerolog.Nop(), "", 0)
	req := httptest.NewRequest(http.MethodGet, "/routes/missing/missing", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
