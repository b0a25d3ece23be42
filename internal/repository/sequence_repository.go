package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sequenceKeyPrefix = "voc:ticket-seq:"

// SeedFunc returns the highest sequence already used for day (yyyyMMdd).
type SeedFunc func(ctx context.Context, day string) (int64, error)

// SequenceRepository hands out per-day identifier sequence numbers.
type SequenceRepository interface {
	Next(ctx context.Context, day string) (int64, error)
}

type redisSequenceRepository struct {
	client *redis.Client
	seed   SeedFunc
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSequenceRepository returns a sequence backed by INCR on a per-day key.
// A missing key is seeded from seed before the first increment.
func NewRedisSequenceRepository(client *redis.Client, seed SeedFunc, logger *zap.Logger) SequenceRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisSequenceRepository{client: client, seed: seed, ttl: 48 * time.Hour, logger: logger}
}

func (r *redisSequenceRepository) Next(ctx context.Context, day string) (int64, error) {
	key := sequenceKeyPrefix + day

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("check sequence key: %w", err)
	}
	if exists == 0 && r.seed != nil {
		start, err := r.seed(ctx, day)
		if err != nil {
			return 0, fmt.Errorf("seed sequence: %w", err)
		}
		if err := r.client.SetNX(ctx, key, start, r.ttl).Err(); err != nil {
			return 0, fmt.Errorf("seed sequence key: %w", err)
		}
	}

	seq, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment sequence: %w", err)
	}
	if seq == 1 {
		if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
			r.logger.Warn("sequence key left without expiry", zap.String("key", key), zap.Error(err))
		}
	}
	return seq, nil
}
