package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	addr := os.Getenv("PACE_REDIS_ADDR")
	if addr == "" {
		t.Skip("PACE_REDIS_ADDR not set; skipping integration test")
	}
	return Config{Addr: addr, Prefix: fmt.Sprintf("pace-test-%d:", time.Now().UnixNano())}
}

func TestAlertGuard_OncePerJourney(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	rdb, err := NewClient(ctx, cfg)
	require.NoError(t, err)
	defer rdb.Close()

	g := NewAlertGuard(rdb, cfg)
	ok, err := g.Allow(ctx, "j1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Allow(ctx, "j1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.Allow(ctx, "j2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLease_Exclusive(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	rdb, err := NewClient(ctx, cfg)
	require.NoError(t, err)
	defer rdb.Close()

	a := NewLease(rdb, cfg)
	b := NewLease(rdb, cfg)

	release, ok, err := a.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = b.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	release2, ok, err := b.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestNewClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewClient(ctx, Config{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{Addr: "localhost:6379"}.Enabled())
	assert.Equal(t, "pace:", prefix(""))
}
