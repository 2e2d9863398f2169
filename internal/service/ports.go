package service

import (
	"context"
	"io"
	"time"

	"storefront-service/internal/producer"

	"github.com/google/uuid"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type Claims struct {
	UserID uuid.UUID
	Role   string
	Email  string
	Exp    time.Time
}

type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshOpaque    string // выдаём клиенту
	RefreshExpiresAt time.Time
	RefreshHash      string // сохраняем в БД
}

type TokenProvider interface {
	SignAccess(ctx context.Context, sub uuid.UUID, role, email string, ttl time.Duration) (token string, exp time.Time, err error)
	NewRefresh(ctx context.Context, sub uuid.UUID, ttl time.Duration) (opaque string, hash string, exp time.Time, err error)
	ParseAndValidateAccess(ctx context.Context, token string) (*Claims, error)
}

type CacheClient interface {
	SetRateLimit(ctx context.Context, key string, ttl time.Duration) error
	CheckRateLimit(ctx context.Context, key string) (bool, error)

	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type EmailProducer interface {
	SendEmail(ctx context.Context, key string, msg producer.EmailMessage) error
}

type OrderEventBus interface {
	PublishOrderCreated(ctx context.Context, msg producer.OrderCreatedMessage) error
}

type ObjectStorage interface {
	Upload(ctx context.Context, object, contentType string, r io.Reader) (string, error)
	PublicURL(object string) string
}
