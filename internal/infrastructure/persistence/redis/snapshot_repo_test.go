package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenplay-ai-api/internal/domain/repository"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewClientFromRedis(rdb), mr
}

func TestSnapshotRepo_RoundTrip(t *testing.T) {
	client, mr := newTestClient(t)
	repo := NewSnapshotRepo(client, "sp:")
	ctx := context.Background()

	_, err := repo.Load(ctx, "projects")
	assert.ErrorIs(t, err, repository.ErrSnapshotNotFound)

	require.NoError(t, repo.Save(ctx, "projects", []byte(`[{"id":"p1"}]`)))
	assert.True(t, mr.Exists("sp:projects"))

	got, err := repo.Load(ctx, "projects")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"p1"}]`, string(got))

	require.NoError(t, repo.Delete(ctx, "projects"))
	assert.False(t, mr.Exists("sp:projects"))
	require.NoError(t, repo.Ping(ctx))
}

func TestRateLimiter_Window(t *testing.T) {
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client)
	now := time.UnixMilli(1_700_000_000_000)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()
	key := BuildRateLimitKey("127.0.0.1", "generate")

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	remaining, err := limiter.Remaining(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	now = now.Add(2 * time.Minute)
	ok, err = limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
