package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisWindowStore keeps one sorted set per subject, scored by event time in
// milliseconds. Members only need to be unique within the set.
type redisWindowStore struct {
	rdb *redis.Client
}

func (s *redisWindowStore) Slide(ctx context.Context, key string, cutoff time.Time) (int64, time.Time, error) {
	pipe := s.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff.UnixMilli(), 10))
	card := pipe.ZCard(ctx, key)
	head := pipe.ZRangeWithScores(ctx, key, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, err
	}

	var oldest time.Time
	if entries := head.Val(); len(entries) > 0 {
		oldest = time.UnixMilli(int64(entries[0].Score))
	}
	return card.Val(), oldest, nil
}

func (s *redisWindowStore) Record(ctx context.Context, key string, now time.Time, ttl time.Duration) error {
	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: uuid.New().String(),
	})
	pipe.PExpire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}
