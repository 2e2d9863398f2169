package http

import (
	"sync"

	"storefront-service/internal/service"
	"storefront-service/internal/session"

	"go.uber.org/zap"
)

// sessionEntry — координаторы одной клиентской сессии.
type sessionEntry struct {
	auth  *service.AuthSession
	admin *service.AdminAuthSession
}

// SessionRegistry раздаёт координаторы аутентификации по ключу сессии.
// Координатор создаётся лениво при первом обращении и живёт, пока жив
// процесс; stored refresh клиент присылает при создании сессии.
type SessionRegistry struct {
	provider    service.IdentityProvider
	carts       session.Store
	adminEmails []string

	mu      sync.Mutex
	entries map[string]*sessionEntry

	log *zap.Logger
}

func NewSessionRegistry(provider service.IdentityProvider, carts session.Store, adminEmails []string, log *zap.Logger) *SessionRegistry {
	return &SessionRegistry{
		provider:    provider,
		carts:       carts,
		adminEmails: adminEmails,
		entries:     make(map[string]*sessionEntry),
		log:         log,
	}
}

// Session возвращает координатор сессии, создавая его при необходимости.
// storedRefresh учитывается только при создании: уже живой координатор
// сам следит за своим refresh-токеном.
func (r *SessionRegistry) Session(key, storedRefresh string) *service.AuthSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lockedEntry(key, storedRefresh).auth
}

// AdminSession — админский координатор поверх той же сессии. Создаётся
// только при первом обращении к админке: чисто витринные сессии
// админского координатора не получают.
func (r *SessionRegistry) AdminSession(key, storedRefresh string) *service.AdminAuthSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.lockedEntry(key, storedRefresh)
	if e.admin == nil {
		e.admin = service.NewAdminAuthSession(e.auth, r.adminEmails, r.log)
	}
	return e.admin
}

// lockedEntry требует удержания r.mu.
func (r *SessionRegistry) lockedEntry(key, storedRefresh string) *sessionEntry {
	if e, ok := r.entries[key]; ok {
		return e
	}

	e := &sessionEntry{
		auth: service.NewAuthSession(r.provider, r.carts, key, storedRefresh, r.log),
	}
	r.entries[key] = e
	return e
}

// Drop выбрасывает координаторы сессии из реестра.
func (r *SessionRegistry) Drop(key string) {
	r.mu.Lock()
	e, ok := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if ok {
		if e.admin != nil {
			e.admin.Close()
		}
		e.auth.Close()
	}
}

func (r *SessionRegistry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*sessionEntry)
	r.mu.Unlock()

	for _, e := range entries {
		if e.admin != nil {
			e.admin.Close()
		}
		e.auth.Close()
	}
}
