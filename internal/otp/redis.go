package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix      = "otp:"
	redisAttemptsSuffix = ":attempts"
)

// RedisStore хранит коды в Redis с истечением по TTL.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore создаёт хранилище кодов поверх клиента Redis.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Save сохраняет запись кода.
func (s *RedisStore) Save(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKeyPrefix+key, raw, ttl)
		pipe.Del(ctx, redisKeyPrefix+key+redisAttemptsSuffix)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Load возвращает запись кода или ErrNotFound.
func (s *RedisStore) Load(ctx context.Context, key string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode otp record: %w", err)
	}
	return &rec, nil
}

// Delete удаляет запись кода. Счётчик попыток истекает вместе с кодом.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	n, err := s.rdb.Del(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Attempt увеличивает счётчик попыток командой INCR. Счётчик живёт не дольше кода.
func (s *RedisStore) Attempt(ctx context.Context, key string, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	var incr *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKeyPrefix+key+redisAttemptsSuffix)
		pipe.Expire(ctx, redisKeyPrefix+key+redisAttemptsSuffix, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	return int(incr.Val()), nil
}
