package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/producer"
	"storefront-service/internal/repository"
	"storefront-service/internal/util"

	"github.com/nanorand/nanorand"
	"go.uber.org/zap"
)

// AuthService играет роль провайдера идентификации: регистрация,
// вход по паролю, ротация refresh-токенов, сброс пароля.
type AuthService struct {
	users   repository.UserRepo
	refresh repository.RefreshRepo
	resets  repository.PasswordResetRepo
	hasher  PasswordHasher
	tokens  TokenProvider
	cache   CacheClient   // может быть nil, тогда без rate limit
	emails  EmailProducer // может быть nil, тогда код только в логе

	admins map[string]struct{} // allow-list адресов с админской ролью

	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	log *zap.Logger
}

func NewAuthService(
	users repository.UserRepo,
	refresh repository.RefreshRepo,
	resets repository.PasswordResetRepo,
	hasher PasswordHasher,
	tokens TokenProvider,
	cache CacheClient,
	emails EmailProducer,
	adminEmails []string,
	accessTTL, refreshTTL time.Duration,
	log *zap.Logger,
) *AuthService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			admins[e] = struct{}{}
		}
	}

	return &AuthService{
		users:      users,
		refresh:    refresh,
		resets:     resets,
		hasher:     hasher,
		tokens:     tokens,
		cache:      cache,
		emails:     emails,
		admins:     admins,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		log:        log,
	}
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// effectiveRole поднимает роль до админской для адресов из allow-list:
// первого админа можно завести без правки БД.
func (s *AuthService) effectiveRole(u *models.User) models.Role {
	if u.Role != models.RoleAdmin {
		if _, ok := s.admins[strings.ToLower(u.Email)]; ok {
			return models.RoleAdmin
		}
	}
	return u.Role
}

func (s *AuthService) principalOf(u *models.User) *Principal {
	return &Principal{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        s.effectiveRole(u),
	}
}

// Register проверяет вход до любого обращения к БД: невалидный email и
// слабый пароль отсекаются сразу.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*models.User, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Email:       email,
		Password:    hash,
		DisplayName: displayName,
		Role:        models.RoleCustomer,
	}

	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	if s.emails != nil {
		_ = s.emails.SendEmail(ctx, u.ID.String(), producer.EmailMessage{
			To:       u.Email,
			Subject:  "Welcome",
			Template: "welcome",
			Data:     map[string]any{"display_name": u.DisplayName},
		})
	}

	return u, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Principal, TokenPair, error) {
	if s.cache != nil {
		limited, err := s.cache.CheckRateLimit(ctx, "login:"+email)
		if err != nil {
			s.log.Warn("rate limit check failed", zap.Error(err))
		} else if limited {
			return nil, TokenPair{}, ErrTooManyRequests
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, TokenPair{}, err
	}

	if user == nil || !s.hasher.Compare(user.Password, password) {
		if s.cache != nil {
			_ = s.cache.SetRateLimit(ctx, "login:"+email, 5*time.Second)
		}
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return s.principalOf(user), pair, nil
}

func (s *AuthService) issuePair(ctx context.Context, user *models.User) (TokenPair, error) {
	access, aexp, err := s.tokens.SignAccess(ctx, user.ID, string(s.effectiveRole(user)), user.Email, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	opaque, hash, rexp, err := s.tokens.NewRefresh(ctx, user.ID, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	rt := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: rexp,
	}
	if err := s.refresh.Create(ctx, rt); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  aexp,
		RefreshOpaque:    opaque,
		RefreshExpiresAt: rexp,
		RefreshHash:      hash,
	}, nil
}

// RestoreSession восстанавливает принципала по сохранённому refresh
// без ротации — стартовая проверка сессии.
func (s *AuthService) RestoreSession(ctx context.Context, refreshOpaque string) (*Principal, error) {
	if refreshOpaque == "" {
		return nil, ErrTokenNotFoundOrRevoked
	}
	hash := util.Sha256Base64URL(refreshOpaque)

	active, err := s.refresh.IsActiveByHash(ctx, hash, s.now())
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrTokenExpired
	}

	rt, err := s.refresh.GetByHash(ctx, hash)
	if err != nil || rt == nil {
		if err == nil {
			err = ErrNotFound
		}
		return nil, err
	}

	user, err := s.users.GetByID(ctx, rt.UserID)
	if err != nil || user == nil {
		if err == nil {
			err = ErrNotFound
		}
		return nil, err
	}

	return s.principalOf(user), nil
}

// Refresh ротирует refresh-токен: старый ревокуется, выдаётся новая пара.
func (s *AuthService) Refresh(ctx context.Context, refreshOpaque string) (*Principal, TokenPair, error) {
	hash := util.Sha256Base64URL(refreshOpaque)
	now := s.now()

	active, err := s.refresh.IsActiveByHash(ctx, hash, now)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if !active {
		return nil, TokenPair{}, ErrTokenExpired
	}

	rt, err := s.refresh.GetByHash(ctx, hash)
	if err != nil || rt == nil {
		if err == nil {
			err = ErrNotFound
		}
		return nil, TokenPair{}, err
	}

	user, err := s.users.GetByID(ctx, rt.UserID)
	if err != nil || user == nil {
		if err == nil {
			err = ErrNotFound
		}
		return nil, TokenPair{}, err
	}

	if _, err := s.refresh.RevokeByHash(ctx, hash); err != nil {
		return nil, TokenPair{}, err
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return s.principalOf(user), pair, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshOpaque string) error {
	if refreshOpaque == "" {
		return ErrTokenNotFoundOrRevoked
	}
	hash := util.Sha256Base64URL(refreshOpaque)

	ok, err := s.refresh.RevokeByHash(ctx, hash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTokenNotFoundOrRevoked
	}
	return nil
}

func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrNotFound
	}

	latest, err := s.resets.FindLatestByUser(ctx, u.ID)
	if err == nil && latest != nil {
		cooldownDuration := time.Minute
		if s.now().Sub(latest.CreatedAt) < cooldownDuration {
			return ErrTooManyRequests
		}
	}

	code, err := nanorand.Gen(6)
	if err != nil {
		return err
	}

	reset := &models.PasswordResetToken{
		UserID:    u.ID,
		Email:     email,
		CodeHash:  util.Sha256Base64URL(code),
		ExpiresAt: s.now().Add(1 * time.Hour),
		Consumed:  false,
	}
	if err := s.resets.Create(ctx, reset); err != nil {
		return err
	}

	if s.emails != nil {
		if err := s.emails.SendEmail(ctx, u.ID.String(), producer.EmailMessage{
			To:       email,
			Subject:  "Password reset",
			Template: "password_reset",
			Data:     map[string]any{"code": code},
		}); err != nil {
			s.log.Error("failed to enqueue password reset email", zap.Error(err))
		}
	} else {
		s.log.Info("Код сброса пароля", zap.String("code", code))
	}

	return nil
}

func (s *AuthService) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	reset, err := s.resets.GetValidByHash(ctx, util.Sha256Base64URL(code), s.now())
	if err != nil || reset == nil {
		return ErrInvalidOrExpiredCode
	}

	user, err := s.users.GetByID(ctx, reset.UserID)
	if err != nil || user == nil {
		return ErrNotFound
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.Password = hash
	if err := s.users.UpdatePassword(ctx, user); err != nil {
		return err
	}

	if _, err := s.resets.Consume(ctx, reset.ID); err != nil {
		s.log.Info("failed to consume password reset token", zap.Error(err))
	}
	if _, err := s.refresh.RevokeAll(ctx, user.ID); err != nil {
		s.log.Info("failed to revoke refresh tokens", zap.Error(err))
	}
	if _, err := s.resets.DeleteAllForUser(ctx, user.ID); err != nil {
		s.log.Info("failed to delete password reset tokens", zap.Error(err))
	}

	return nil
}

// UpdatePassword меняет пароль аутентифицированного пользователя.
func (s *AuthService) UpdatePassword(ctx context.Context, p *Principal, newPassword string) error {
	if p == nil {
		return ErrUnauthorized
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, p.ID)
	if err != nil || user == nil {
		return ErrNotFound
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.Password = hash
	return s.users.UpdatePassword(ctx, user)
}

// UpdateProfile меняет отображаемое имя пользователя.
func (s *AuthService) UpdateProfile(ctx context.Context, p *Principal, displayName string) error {
	if p == nil {
		return ErrUnauthorized
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return ErrInvalidInput
	}

	user, err := s.users.GetByID(ctx, p.ID)
	if err != nil || user == nil {
		return ErrNotFound
	}
	return s.users.UpdateDisplayName(ctx, user.ID, displayName)
}

func (s *AuthService) Introspect(ctx context.Context, access string) (*Claims, error) {
	return s.tokens.ParseAndValidateAccess(ctx, access)
}
