package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisPrefix     = "mangas:"
	redisUsageKey   = "mangas:__bytes"
	redisOpTimeout  = 2 * time.Second
	redisTxAttempts = 5
)

// RedisStore shares one KV namespace between machines. The quota is tracked in a
// counter key updated in the same optimistic transaction as the value.
type RedisStore struct {
	client *redis.Client
	quota  int64
}

func NewRedisStore(redisURL string, quota int64, log *slog.Logger) (*RedisStore, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	options.DialTimeout = 3 * time.Second
	options.ReadTimeout = redisOpTimeout
	options.WriteTimeout = redisOpTimeout

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}
	log.Info("redis store connected", slog.String("addr", options.Addr))

	if quota <= 0 {
		quota = DefaultQuota
	}
	return &RedisStore{client: client, quota: quota}, nil
}

func (s *RedisStore) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	v, err := s.client.Get(ctx, redisPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	full := redisPrefix + key
	txf := func(tx *redis.Tx) error {
		used, err := tx.Get(ctx, redisUsageKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		old, err := tx.Get(ctx, full).Result()
		delta := entrySize(key, value)
		if err == nil {
			delta -= entrySize(key, old)
		} else if !errors.Is(err, redis.Nil) {
			return err
		}
		if used+delta > s.quota {
			return ErrQuotaExceeded
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, full, value, 0)
			pipe.IncrBy(ctx, redisUsageKey, delta)
			return nil
		})
		return err
	}

	for i := 0; i < redisTxAttempts; i++ {
		err := s.client.Watch(ctx, txf, redisUsageKey, full)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("set %q: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("set %q: %w", key, redis.TxFailedErr)
}

func (s *RedisStore) Remove(keys ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	for _, key := range keys {
		full := redisPrefix + key
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			old, err := tx.Get(ctx, full).Result()
			if errors.Is(err, redis.Nil) {
				return nil
			}
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, full)
				pipe.DecrBy(ctx, redisUsageKey, entrySize(key, old))
				return nil
			})
			return err
		}, redisUsageKey, full)
		if err != nil {
			return fmt.Errorf("remove %q: %w", key, err)
		}
	}
	return nil
}

func (s *RedisStore) Keys(prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	var keys []string
	iter := s.client.Scan(ctx, 0, redisPrefix+escapeGlob(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		k := strings.TrimPrefix(iter.Val(), redisPrefix)
		if k == strings.TrimPrefix(redisUsageKey, redisPrefix) {
			continue
		}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}
