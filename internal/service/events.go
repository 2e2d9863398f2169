package service

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront-service/internal/models"
)

// Principal — аутентифицированная личность текущей сессии.
// Живёт только в памяти координатора.
type Principal struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	Role        models.Role
}

type AuthEventType string

const (
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEventType = "USER_UPDATED"
)

type AuthEvent struct {
	Type      AuthEventType
	Principal *Principal // nil для SIGNED_OUT
}

// AuthBus — шина уведомлений об изменении состояния аутентификации
// одной сессии. Publish не блокируется: события для переполненного
// подписчика отбрасываются с записью в лог.
type AuthBus struct {
	mu     sync.Mutex
	subs   map[int]chan AuthEvent
	nextID int
	log    *zap.Logger
}

func NewAuthBus(log *zap.Logger) *AuthBus {
	return &AuthBus{
		subs: make(map[int]chan AuthEvent),
		log:  log,
	}
}

func (b *AuthBus) Subscribe() (int, <-chan AuthEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan AuthEvent, 8)
	b.subs[id] = ch
	return id, ch
}

func (b *AuthBus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *AuthBus) Publish(e AuthEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.log.Warn("auth event dropped for slow subscriber",
				zap.Int("subscriber", id), zap.String("event", string(e.Type)))
		}
	}
}

func (b *AuthBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
