package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BlobCache — то, что нужно redis-хранилищу от кэша (cache.RedisClient подходит).
type BlobCache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) error
}

type RedisStore struct {
	cache BlobCache
	ttl   time.Duration
	log   *zap.Logger
}

func NewRedisStore(cache BlobCache, ttl time.Duration, log *zap.Logger) *RedisStore {
	return &RedisStore{cache: cache, ttl: ttl, log: log}
}

func cartKey(key string) string { return "cart:" + key }

func (s *RedisStore) Load(ctx context.Context, key string) Cart {
	data, err := s.cache.GetBytes(ctx, cartKey(key))
	if err != nil {
		s.log.Warn("failed to load cart blob", zap.String("key", key), zap.Error(err))
		return Cart{}
	}
	if data == nil {
		return Cart{}
	}
	c, err := Decode(data)
	if err != nil {
		s.log.Warn("malformed cart blob, resetting", zap.String("key", key), zap.Error(err))
		return Cart{}
	}
	return c
}

func (s *RedisStore) Save(ctx context.Context, key string, c Cart) {
	data, err := Encode(c)
	if err != nil {
		s.log.Error("failed to encode cart", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, cartKey(key), data, s.ttl); err != nil {
		// аналог переполнения localStorage: пользователю не сообщаем
		s.log.Error("failed to persist cart blob", zap.String("key", key), zap.Error(err))
	}
}

func (s *RedisStore) Delete(ctx context.Context, key string) {
	if err := s.cache.Del(ctx, cartKey(key)); err != nil {
		s.log.Warn("failed to delete cart blob", zap.String("key", key), zap.Error(err))
	}
}
