package service

import (
	"context"
	"strings"
	"sync"

	"storefront-service/internal/models"

	"go.uber.org/zap"
)

// AdminAuthSession — координатор аутентификации админ-консоли.
// Поверх обычной сессии требует авторизацию: роль админа либо email
// из настроенного allow-list. Вход через админку принципалом без
// прав завершается принудительным разлогином; обычный вход через
// витрину координатор только наблюдает.
type AdminAuthSession struct {
	auth    *AuthSession
	allowed map[string]struct{}

	mu           sync.RWMutex
	currentAdmin *Principal

	subID int
	log   *zap.Logger
}

func NewAdminAuthSession(auth *AuthSession, adminEmails []string, log *zap.Logger) *AdminAuthSession {
	allowed := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			allowed[e] = struct{}{}
		}
	}

	s := &AdminAuthSession{
		auth:    auth,
		allowed: allowed,
		log:     log,
	}

	id, ch := auth.Bus().Subscribe()
	s.subID = id
	go s.loop(ch)

	return s
}

func (s *AdminAuthSession) loop(ch <-chan AuthEvent) {
	for ev := range ch {
		switch ev.Type {
		case EventSignedIn:
			s.verify(ev.Principal)
		case EventSignedOut:
			s.mu.Lock()
			s.currentAdmin = nil
			s.mu.Unlock()
		}
	}
}

// verify принимает принципала, если тот авторизован как админ. Уже
// принятый админ повторно не проверяется: дубликаты уведомлений не
// должны запускать лишние раунды верификации. Покупатель, вошедший
// через витрину, здесь не трогается — его сессия живёт дальше без
// админских прав.
func (s *AdminAuthSession) verify(p *Principal) {
	if p == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentAdmin != nil && s.currentAdmin.ID == p.ID {
		return
	}
	if !s.isAdmin(p) {
		return
	}

	s.log.Info("admin verified", zap.String("email", p.Email))
	s.currentAdmin = p
}

func (s *AdminAuthSession) isAdmin(p *Principal) bool {
	if p.Role == models.RoleAdmin {
		return true
	}
	return s.isAllowedEmail(p.Email)
}

func (s *AdminAuthSession) isAllowedEmail(email string) bool {
	if len(s.allowed) == 0 {
		s.log.Warn("no admin emails configured, admin checks will fail")
		return false
	}
	_, ok := s.allowed[strings.ToLower(email)]
	return ok
}

// SignIn — вход в админку. Email проверяется по allow-list ещё до
// обращения к провайдеру; после успешного входа авторизация
// перепроверяется по фактическому принципалу.
func (s *AdminAuthSession) SignIn(ctx context.Context, email, password string) (*Principal, TokenPair, error) {
	if !s.isAllowedEmail(email) {
		return nil, TokenPair{}, ErrNotAuthorized
	}

	p, pair, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}

	if !s.isAdmin(p) {
		s.log.Warn("principal is not an authorized admin, forcing sign-out", zap.String("email", p.Email))
		_ = s.auth.SignOut(ctx)
		return nil, TokenPair{}, ErrNotAuthorized
	}

	s.mu.Lock()
	s.currentAdmin = p
	s.mu.Unlock()
	return p, pair, nil
}

func (s *AdminAuthSession) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.currentAdmin = nil
	s.mu.Unlock()
	return s.auth.SignOut(ctx)
}

func (s *AdminAuthSession) CurrentAdmin() *Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentAdmin == nil {
		return nil
	}
	p := *s.currentAdmin
	return &p
}

func (s *AdminAuthSession) IsAdmin() bool {
	return s.CurrentAdmin() != nil
}

func (s *AdminAuthSession) Close() {
	s.auth.Bus().Unsubscribe(s.subID)
}
