//go:build integration

package integration

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medimatch/medimatch/internal/domain/drug"
	"github.com/medimatch/medimatch/internal/infrastructure/database/redis"
	"github.com/medimatch/medimatch/internal/testutil"
)

func TestCache_SetGetRoundTrip(t *testing.T) {
	ctx := testCtx(t)
	cache := redis.NewCache(redisClient(t), nopLog, redis.WithPrefix("it:roundtrip:"))

	want := testutil.SampleDrugs()[0]
	require.NoError(t, cache.Set(ctx, "drug:aspirin", want, time.Minute))

	var got drug.Drug
	require.NoError(t, cache.Get(ctx, "drug:aspirin", &got))
	assert.Equal(t, "Aspirin", got.Name)
	assert.Equal(t, want.SMILES, got.SMILES)

	exists, err := cache.Exists(ctx, "drug:aspirin")
	require.NoError(t, err)
	assert.True(t, exists)

	err = cache.Get(ctx, "drug:never-set", &got)
	assert.ErrorIs(t, err, redis.ErrCacheMiss)
}

func TestCache_TTLAndExpire(t *testing.T) {
	ctx := testCtx(t)
	cache := redis.NewCache(redisClient(t), nopLog, redis.WithPrefix("it:ttl:"))

	require.NoError(t, cache.Set(ctx, "k", "v", time.Hour))

	ttl, err := cache.TTL(ctx, "k")
	require.NoError(t, err)
	// Set applies up to ±10% jitter around the requested TTL.
	assert.Greater(t, ttl, 45*time.Minute)

	ok, err := cache.Expire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ttl, err = cache.TTL(ctx, "k")
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, time.Minute)

	ok, err = cache.Expire(ctx, "missing", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_GetOrSetInvokesLoaderOnce(t *testing.T) {
	ctx := testCtx(t)
	cache := redis.NewCache(redisClient(t), nopLog, redis.WithPrefix("it:loader:"))

	var calls atomic.Int32
	loader := func(ctx context.Context) (interface{}, error) {
		calls.Add(1)
		return map[string]string{"name": "Ibuprofen"}, nil
	}

	var first map[string]string
	require.NoError(t, cache.GetOrSet(ctx, "drug:ibuprofen", &first, time.Minute, loader))
	assert.Equal(t, "Ibuprofen", first["name"])

	var second map[string]string
	require.NoError(t, cache.GetOrSet(ctx, "drug:ibuprofen", &second, time.Minute, loader))
	assert.Equal(t, "Ibuprofen", second["name"])

	assert.Equal(t, int32(1), calls.Load())
}

func TestCache_DeleteByPrefix(t *testing.T) {
	ctx := testCtx(t)
	cache := redis.NewCache(redisClient(t), nopLog, redis.WithPrefix("it:sweep:"))

	require.NoError(t, cache.Set(ctx, "drug:a", 1, time.Minute))
	require.NoError(t, cache.Set(ctx, "drug:b", 2, time.Minute))
	require.NoError(t, cache.Set(ctx, "other:c", 3, time.Minute))

	deleted, err := cache.DeleteByPrefix(ctx, "drug:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	exists, err := cache.Exists(ctx, "other:c")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMutex_ExcludesSecondHolder(t *testing.T) {
	ctx := testCtx(t)
	client := redisClient(t)

	m1 := redis.NewMutex(client, "it:lock:ocr", 30*time.Second)
	ok, err := m1.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	m2 := redis.NewMutex(client, "it:lock:ocr", 30*time.Second)
	ok, err = m2.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m1.Unlock(ctx))

	ok, err = m2.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, m2.Unlock(ctx))
}
