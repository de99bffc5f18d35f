// Package statsexport optionally republishes each route's rolling
// averages to Redis, for a pooler fleet where multiple instances want a
// shared, externally-queryable view of route throughput. It is an
// observability add-on, never a dependency of the core computation: a
// publish failure is logged and dropped, exactly like the source treats
// log_stats as an independently-toggleable output.
package statsexport

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/odypool/pooler/route"
)

// RedisPublisher HSETs each route's averaged rates under a per-route key
// after every statistics tick.
type RedisPublisher struct {
	client *redis.Client
	logger zerolog.Logger
	prefix string
}

// NewRedisPublisher parses redisURL and returns a publisher, or an error
// if the URL cannot be parsed. The caller decides whether a parse/ping
// failure should disable export rather than abort startup — see
// main.go, which mirrors the teacher's "continuing without Redis"
// fallback.
func NewRedisPublisher(redisURL string, logger zerolog.Logger) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return &RedisPublisher{
		client: redis.NewClient(opt),
		logger: logger.With().Str("component", "stats_exporter").Logger(),
		prefix: "pooler:route_stats:",
	}, nil
}

// Ping checks connectivity, matching the teacher's redisclient.Ping.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.client.Ping(ctx).Err()
}

// Publish writes r's current rolling averages. Best-effort: errors are
// logged at warn and swallowed, never propagated to the statistics tick.
func (p *RedisPublisher) Publish(ctx context.Context, r *route.Route) {
	avg := r.PeriodicStatsAvg()
	key := p.prefix + r.ID.String()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	err := p.client.HSet(ctx, key, map[string]interface{}{
		"rps":               avg.RequestsPerSec,
		"query_time_us":     avg.AvgQueryTimeUs,
		"recv_client_bytes": avg.RecvClientBytes,
		"recv_server_bytes": avg.RecvServerBytes,
		"clients":           r.ClientCount(),
		"pool_active":       r.Servers.CountActive(),
		"pool_idle":         r.Servers.CountIdle(),
	}).Err()
	if err != nil {
		p.logger.Warn().Err(err).Str("route", r.ID.String()).Msg("stats publish failed")
	}
}

// Close releases the underlying Redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
