package pager

import (
	"context"
	"os"
	"testing"
	"time"

	"ResteasyAPI/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := db.InitRedis(addr)
	defer rdb.Close()
	if err := db.PingRedis(ctx, rdb); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	c := NewRedisCache(rdb, time.Minute)
	require.NoError(t, c.Flush(ctx))
	calls := 0

	n, err := c.Count(ctx, []string{"client"}, "SELECT COUNT(*)", nil, counter(4, &calls))
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	_, _ = c.Count(ctx, []string{"client"}, "SELECT COUNT(*)", nil, counter(4, &calls))
	assert.Equal(t, 1, calls)

	c.Invalidate(ctx, "client")
	_, _ = c.Count(ctx, []string{"client"}, "SELECT COUNT(*)", nil, counter(4, &calls))
	assert.Equal(t, 2, calls)

	require.NoError(t, c.Flush(ctx))
}
