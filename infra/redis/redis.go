// Package redis backs the sweep alert guard and sweep lease with Redis so
// several instances share them.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Config locates the Redis server. An empty Addr disables Redis.
type Config struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	// Prefix namespaces every key written.
	Prefix string `json:"prefix"`
}

// Enabled reports whether an address is configured.
func (c Config) Enabled() bool { return c.Addr != "" }

// NewClient builds a client and pings it.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

func prefix(p string) string {
	if p == "" {
		return "pace:"
	}
	return p
}

// AlertGuard records sent alerts with SET NX and a TTL.
type AlertGuard struct {
	rdb    redis.Cmdable
	prefix string
}

func NewAlertGuard(rdb redis.Cmdable, cfg Config) *AlertGuard {
	return &AlertGuard{rdb: rdb, prefix: prefix(cfg.Prefix)}
}

// Allow returns true the first time it is called for journeyID within ttl.
func (g *AlertGuard) Allow(ctx context.Context, journeyID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	ok, err := g.rdb.SetNX(ctx, g.prefix+"alert:unassigned:"+journeyID, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("alert guard %s: %w", journeyID, err)
	}
	return ok, nil
}

// releaseScript deletes the lease only when the caller still owns it.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Lease is a single-holder lock with an expiry.
type Lease struct {
	rdb    redis.Cmdable
	prefix string
}

func NewLease(rdb redis.Cmdable, cfg Config) *Lease {
	return &Lease{rdb: rdb, prefix: prefix(cfg.Prefix)}
}

// Acquire takes the lease for ttl. The returned release is safe to call after
// expiry; it never deletes a lease held by someone else.
func (l *Lease) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := l.prefix + "lease:" + name
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lease %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
	}
	return release, true, nil
}
