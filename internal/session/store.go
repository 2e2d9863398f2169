package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store хранит корзину как сериализованный блоб под ключом сессии.
// Load никогда не возвращает ошибку: отсутствующий или нечитаемый блоб
// означает пустую корзину. Save — best effort, ошибка только логируется.
type Store interface {
	Load(ctx context.Context, key string) Cart
	Save(ctx context.Context, key string, c Cart)
	Delete(ctx context.Context, key string)
}

type MemoryStore struct {
	mu  sync.RWMutex
	m   map[string][]byte
	at  map[string]time.Time // время последней записи, для чистки
	log *zap.Logger
}

func NewMemoryStore(log *zap.Logger) *MemoryStore {
	return &MemoryStore{
		m:   make(map[string][]byte),
		at:  make(map[string]time.Time),
		log: log,
	}
}

func (s *MemoryStore) Load(ctx context.Context, key string) Cart {
	s.mu.RLock()
	data, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return Cart{}
	}
	c, err := Decode(data)
	if err != nil {
		s.log.Warn("malformed cart blob, resetting", zap.String("key", key), zap.Error(err))
		return Cart{}
	}
	return c
}

func (s *MemoryStore) Save(ctx context.Context, key string, c Cart) {
	data, err := Encode(c)
	if err != nil {
		s.log.Error("failed to encode cart", zap.String("key", key), zap.Error(err))
		return
	}
	s.mu.Lock()
	s.m[key] = data
	s.at[key] = time.Now()
	s.mu.Unlock()
}

func (s *MemoryStore) Delete(ctx context.Context, key string) {
	s.mu.Lock()
	delete(s.m, key)
	delete(s.at, key)
	s.mu.Unlock()
}

// Sweep удаляет корзины, не менявшиеся дольше maxAge. Возвращает число удалённых.
func (s *MemoryStore) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, at := range s.at {
		if at.Before(cutoff) {
			delete(s.m, key)
			delete(s.at, key)
			n++
		}
	}
	return n
}

// raw возвращает сохранённый блоб как есть (для тестов идемпотентности).
func (s *MemoryStore) raw(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.m[key]
	return data, ok
}
