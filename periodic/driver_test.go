package periodic_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/odypool/pooler/backend"
	"github.com/odypool/pooler/bufcache"
	"github.com/odypool/pooler/expire"
	"github.com/odypool/pooler/ioctx"
	"github.com/odypool/pooler/periodic"
	"github.com/odypool/pooler/route"
	"github.com/odypool/pooler/statsengine"
)

type nopTerminator struct{}

func (nopTerminator) Terminate(context.Context, *backend.Server) error { return nil }
func (nopTerminator) Close(*backend.Server) error                      { return nil }

func newDriver() *periodic.Driver {
	rp := route.NewPool()
	bufs := bufcache.New(64, 4)
	expiry := expire.New(nopTerminator{}, bufs, ioctx.Noop{}, zerolog.Nop(), false)
	stats := statsengine.New(zerolog.Nop(), bufs, nil, false)
	sys := &periodic.System{Routes: rp, Logger: zerolog.Nop(), StatsInterval: 5}
	return periodic.New(sys, expiry, stats)
}

func TestDriverStartStop(t *testing.T) {
	d := newDriver()

	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// allow the loop to run at least one iteration before stopping.
	time.Sleep(10 * time.Millisecond)

	d.Stop()
}

func TestDriverStartTwiceReturnsErrAlreadyRunning(t *testing.T) {
	d := newDriver()
	if err := d.Start(); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	defer d.Stop()

	if err := d.Start(); err != periodic.ErrAlreadyRunning {
		t.Fatalf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestDriverStopBeforeStartIsNoop(t *testing.T) {
	d := newDriver()
	d.Stop() // must not block or panic
}
