package lockout

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "auth:lockout:"

// Connect accepts either a redis:// URL or a bare host:port address.
func Connect(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// RedisStore keeps lockout state in Redis hashes.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (State, error) {
	data, err := s.client.HGetAll(ctx, keyPrefix+key).Result()
	if err != nil {
		return State{}, err
	}
	if len(data) == 0 {
		return State{}, nil
	}

	state := State{}
	if raw, ok := data["failed_count"]; ok {
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			state.FailedCount = n
		}
	}
	if raw, ok := data["locked_until"]; ok && raw != "" {
		if unix, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil && unix > 0 {
			t := time.Unix(unix, 0).UTC()
			state.LockedUntil = &t
		}
	}
	return state, nil
}

// RecordFailure counts one failed attempt. Once the count reaches threshold
// the key is locked for window.
func (s *RedisStore) RecordFailure(ctx context.Context, key string, now time.Time, threshold int, window time.Duration) (State, error) {
	redisKey := keyPrefix + key

	count, err := s.client.HIncrBy(ctx, redisKey, "failed_count", 1).Result()
	if err != nil {
		return State{}, err
	}

	state := State{FailedCount: int(count)}
	if int(count) >= threshold {
		lockedUntil := now.Add(window).UTC()
		_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, redisKey, "locked_until", lockedUntil.Unix())
			p.Expire(ctx, redisKey, window)
			return nil
		})
		if err != nil {
			return State{}, err
		}
		state.LockedUntil = &lockedUntil
		return state, nil
	}

	// failures older than the window are forgotten
	if count == 1 {
		_ = s.client.Expire(ctx, redisKey, window).Err()
	}
	return state, nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}
