package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeduper(t *testing.T) (*RedisDeduper, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	d, err := NewRedisDeduper(context.Background(), "redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d, mr
}

func TestRedisDeduperFirstSeen(t *testing.T) {
	d, mr := newDeduper(t)
	ctx := context.Background()

	first, err := d.FirstSeen(ctx, "wamid.1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.FirstSeen(ctx, "wamid.1")
	require.NoError(t, err)
	assert.False(t, again)

	assert.True(t, mr.Exists(KeyPrefix+"wamid.1"))
	assert.Equal(t, time.Hour, mr.TTL(KeyPrefix+"wamid.1"))
}

func TestRedisDeduperExpiry(t *testing.T) {
	d, mr := newDeduper(t)
	ctx := context.Background()

	_, err := d.FirstSeen(ctx, "wamid.1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	first, err := d.FirstSeen(ctx, "wamid.1")
	require.NoError(t, err)
	assert.True(t, first)
}

func TestRedisDeduperRelease(t *testing.T) {
	d, _ := newDeduper(t)
	ctx := context.Background()

	_, err := d.FirstSeen(ctx, "wamid.1")
	require.NoError(t, err)
	require.NoError(t, d.Release(ctx, "wamid.1"))

	first, err := d.FirstSeen(ctx, "wamid.1")
	require.NoError(t, err)
	assert.True(t, first)
}

func TestRedisDeduperUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewRedisDeduperFromClient(client, 0)
	assert.Equal(t, 24*time.Hour, d.ttl)

	mr.Close()

	_, err := d.FirstSeen(context.Background(), "wamid.1")
	assert.Error(t, err)
	assert.Error(t, d.Ping(context.Background()))
}

func TestNewRedisDeduperBadURL(t *testing.T) {
	_, err := NewRedisDeduper(context.Background(), "not-a-url", time.Hour)
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var d Deduper = Nop{}
	first, err := d.FirstSeen(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, first)
	assert.NoError(t, d.Release(context.Background(), "x"))
}
