package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisSequence_SeedsOncePerDay(t *testing.T) {
	mr, client := setupTestRedis(t)
	seeds := 0
	seq := NewRedisSequenceRepository(client, func(_ context.Context, day string) (int64, error) {
		seeds++
		assert.Equal(t, "20250115", day)
		return 41, nil
	}, nil)
	ctx := context.Background()

	first, err := seq.Next(ctx, "20250115")
	require.NoError(t, err)
	second, err := seq.Next(ctx, "20250115")
	require.NoError(t, err)

	assert.Equal(t, int64(42), first)
	assert.Equal(t, int64(43), second)
	assert.Equal(t, 1, seeds)
	assert.Greater(t, mr.TTL(sequenceKeyPrefix+"20250115"), time.Duration(0))
}

func TestRedisSequence_KeepsExistingCounter(t *testing.T) {
	mr, client := setupTestRedis(t)
	require.NoError(t, mr.Set(sequenceKeyPrefix+"20250115", "7"))
	seq := NewRedisSequenceRepository(client, func(context.Context, string) (int64, error) {
		t.Fatal("seed must not run while the day key exists")
		return 0, nil
	}, nil)

	next, err := seq.Next(context.Background(), "20250115")
	require.NoError(t, err)
	assert.Equal(t, int64(8), next)
}

func TestRedisSequence_WithoutSeedSetsExpiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	seq := NewRedisSequenceRepository(client, nil, nil)

	next, err := seq.Next(context.Background(), "20250116")
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
	assert.Equal(t, 48*time.Hour, mr.TTL(sequenceKeyPrefix+"20250116"))
}

func TestRedisSequence_SeedFailure(t *testing.T) {
	_, client := setupTestRedis(t)
	boom := errors.New("database down")
	seq := NewRedisSequenceRepository(client, func(context.Context, string) (int64, error) {
		return 0, boom
	}, nil)

	_, err := seq.Next(context.Background(), "20250115")
	assert.ErrorIs(t, err, boom)
}
