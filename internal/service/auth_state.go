package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/session"

	"go.uber.org/zap"
)

// IdentityProvider — операции провайдера идентификации, нужные
// сессионному координатору. Реализуется AuthService.
type IdentityProvider interface {
	Register(ctx context.Context, email, password, displayName string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*Principal, TokenPair, error)
	RestoreSession(ctx context.Context, refreshOpaque string) (*Principal, error)
	Refresh(ctx context.Context, refreshOpaque string) (*Principal, TokenPair, error)
	Logout(ctx context.Context, refreshOpaque string) error
	RequestPasswordReset(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, p *Principal, newPassword string) error
	UpdateProfile(ctx context.Context, p *Principal, displayName string) error
}

const probeTimeout = 10 * time.Second

// AuthSession — координатор аутентификации одной клиентской сессии.
// Держит текущего принципала в памяти, следит за событиями своей шины
// и асинхронно восстанавливает сессию при создании. IsAuthenticated
// дожидается завершения стартовой проверки, чтобы исключить гонку
// "страница спросила раньше, чем сессия восстановилась".
type AuthSession struct {
	provider IdentityProvider
	carts    session.Store
	key      string
	bus      *AuthBus

	mu        sync.RWMutex
	principal *Principal
	refresh   string // текущий refresh opaque

	ready chan struct{}
	subID int

	log *zap.Logger
}

func NewAuthSession(provider IdentityProvider, carts session.Store, key, storedRefresh string, log *zap.Logger) *AuthSession {
	a := &AuthSession{
		provider: provider,
		carts:    carts,
		key:      key,
		bus:      NewAuthBus(log),
		ready:    make(chan struct{}),
		log:      log,
	}

	id, ch := a.bus.Subscribe()
	a.subID = id
	go a.loop(ch)
	go a.probe(storedRefresh)

	return a
}

// probe — стартовая проверка существующей сессии.
func (a *AuthSession) probe(storedRefresh string) {
	defer close(a.ready)

	if storedRefresh == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	p, err := a.provider.RestoreSession(ctx, storedRefresh)
	if err != nil {
		a.log.Debug("session probe: no restorable session", zap.Error(err))
		return
	}

	a.mu.Lock()
	a.principal = p
	a.refresh = storedRefresh
	a.mu.Unlock()
}

func (a *AuthSession) loop(ch <-chan AuthEvent) {
	for ev := range ch {
		switch ev.Type {
		case EventSignedIn, EventTokenRefreshed, EventUserUpdated:
			if ev.Principal != nil {
				a.mu.Lock()
				a.principal = ev.Principal
				a.mu.Unlock()
			}
		case EventSignedOut:
			a.mu.Lock()
			a.principal = nil
			a.mu.Unlock()
		}
	}
}

func (a *AuthSession) Bus() *AuthBus { return a.bus }

func (a *AuthSession) SignUp(ctx context.Context, email, password, displayName string) (*models.User, error) {
	return a.provider.Register(ctx, email, password, displayName)
}

func (a *AuthSession) SignIn(ctx context.Context, email, password string) (*Principal, TokenPair, error) {
	p, pair, err := a.provider.Login(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}

	a.mu.Lock()
	a.principal = p
	a.refresh = pair.RefreshOpaque
	a.mu.Unlock()

	a.bus.Publish(AuthEvent{Type: EventSignedIn, Principal: p})
	return p, pair, nil
}

// SignOut завершает сессию и чистит корзину: корзина привязана к
// сессии, а не к аккаунту.
func (a *AuthSession) SignOut(ctx context.Context) error {
	a.mu.Lock()
	refresh := a.refresh
	a.refresh = ""
	a.principal = nil
	a.mu.Unlock()

	var err error
	if refresh != "" {
		if err = a.provider.Logout(ctx, refresh); err != nil {
			a.log.Warn("failed to revoke refresh on sign-out", zap.Error(err))
		}
	}

	a.carts.Delete(ctx, a.key)
	a.bus.Publish(AuthEvent{Type: EventSignedOut})
	return err
}

func (a *AuthSession) RefreshSession(ctx context.Context) (TokenPair, error) {
	a.mu.RLock()
	refresh := a.refresh
	a.mu.RUnlock()
	if refresh == "" {
		return TokenPair{}, ErrTokenNotFoundOrRevoked
	}

	p, pair, err := a.provider.Refresh(ctx, refresh)
	if err != nil {
		return TokenPair{}, err
	}

	a.mu.Lock()
	a.principal = p
	a.refresh = pair.RefreshOpaque
	a.mu.Unlock()

	a.bus.Publish(AuthEvent{Type: EventTokenRefreshed, Principal: p})
	return pair, nil
}

func (a *AuthSession) RequestPasswordReset(ctx context.Context, email string) error {
	return a.provider.RequestPasswordReset(ctx, email)
}

func (a *AuthSession) UpdatePassword(ctx context.Context, newPassword string) error {
	p := a.Principal()
	if p == nil {
		return ErrUnauthorized
	}
	if err := a.provider.UpdatePassword(ctx, p, newPassword); err != nil {
		return err
	}
	a.bus.Publish(AuthEvent{Type: EventUserUpdated, Principal: p})
	return nil
}

// UpdateProfile меняет отображаемое имя и рассылает обновлённого
// принципала по шине.
func (a *AuthSession) UpdateProfile(ctx context.Context, displayName string) (*Principal, error) {
	p := a.Principal()
	if p == nil {
		return nil, ErrUnauthorized
	}
	if err := a.provider.UpdateProfile(ctx, p, displayName); err != nil {
		return nil, err
	}

	p.DisplayName = strings.TrimSpace(displayName)
	a.bus.Publish(AuthEvent{Type: EventUserUpdated, Principal: p})
	return p, nil
}

// IsAuthenticated ждёт окончания стартовой проверки сессии.
func (a *AuthSession) IsAuthenticated(ctx context.Context) (bool, error) {
	select {
	case <-a.ready:
		return a.IsAuthenticatedSync(), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// IsAuthenticatedSync — best-effort вариант: до завершения стартовой
// проверки может вернуть ложный false.
func (a *AuthSession) IsAuthenticatedSync() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.principal != nil
}

// Principal возвращает копию текущего принципала либо nil.
func (a *AuthSession) Principal() *Principal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.principal == nil {
		return nil
	}
	p := *a.principal
	return &p
}

func (a *AuthSession) SessionKey() string { return a.key }

func (a *AuthSession) Close() {
	a.bus.Unsubscribe(a.subID)
}
