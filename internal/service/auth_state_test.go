package service_test

import (
	"context"
	"testing"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestAuthSession_ProbeRestoresSession(t *testing.T) {
	userID := uuid.New()
	provider := &MockIdentityProvider{}
	provider.RestoreSessionFunc = func(ctx context.Context, refreshOpaque string) (*service.Principal, error) {
		if refreshOpaque != "stored" {
			t.Errorf("Expected stored refresh, got %s", refreshOpaque)
		}
		return &service.Principal{ID: userID, Email: "test@example.com"}, nil
	}

	sess := service.NewAuthSession(provider, NewMockCartStore(), "sess-1", "stored", zap.NewNop())
	defer sess.Close()

	// IsAuthenticated ждёт окончания стартовой проверки
	ok, err := sess.IsAuthenticated(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !ok {
		t.Error("Expected authenticated after successful probe")
	}
	if p := sess.Principal(); p == nil || p.ID != userID {
		t.Errorf("Expected principal %s, got %+v", userID, p)
	}
}

func TestAuthSession_ProbeWithoutStoredRefresh(t *testing.T) {
	called := false
	provider := &MockIdentityProvider{}
	provider.RestoreSessionFunc = func(ctx context.Context, refreshOpaque string) (*service.Principal, error) {
		called = true
		return nil, service.ErrTokenNotFoundOrRevoked
	}

	sess := service.NewAuthSession(provider, NewMockCartStore(), "sess-1", "", zap.NewNop())
	defer sess.Close()

	ok, err := sess.IsAuthenticated(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ok {
		t.Error("Expected not authenticated without stored refresh")
	}
	if called {
		t.Error("Expected no provider call without stored refresh")
	}
}

func TestAuthSession_IsAuthenticated_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	provider := &MockIdentityProvider{}
	provider.RestoreSessionFunc = func(ctx context.Context, refreshOpaque string) (*service.Principal, error) {
		<-block
		return nil, service.ErrTokenNotFoundOrRevoked
	}

	sess := service.NewAuthSession(provider, NewMockCartStore(), "sess-1", "stored", zap.NewNop())
	defer sess.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sess.IsAuthenticated(ctx)
	if err == nil {
		t.Error("Expected context error while probe is blocked")
	}
}

func TestAuthSession_SignInPublishesEvent(t *testing.T) {
	provider := &MockIdentityProvider{}

	sess := service.NewAuthSession(provider, NewMockCartStore(), "sess-1", "", zap.NewNop())
	defer sess.Close()

	_, ch := sess.Bus().Subscribe()

	p, pair, err := sess.SignIn(context.Background(), "test@example.com", "password123")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if pair.RefreshOpaque != "refresh" {
		t.Errorf("Expected refresh token, got %s", pair.RefreshOpaque)
	}

	select {
	case ev := <-ch:
		if ev.Type != service.EventSignedIn {
			t.Errorf("Expected SIGNED_IN event, got %s", ev.Type)
		}
		if ev.Principal == nil || ev.Principal.ID != p.ID {
			t.Errorf("Expected principal %s in event, got %+v", p.ID, ev.Principal)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected event, got none")
	}

	if !sess.IsAuthenticatedSync() {
		t.Error("Expected authenticated after sign-in")
	}
}

// Выход чистит корзину сессии и ревокует refresh.
func TestAuthSession_SignOutClearsCart(t *testing.T) {
	provider := &MockIdentityProvider{}
	revoked := ""
	provider.LogoutFunc = func(ctx context.Context, refreshOpaque string) error {
		revoked = refreshOpaque
		return nil
	}

	store := NewMockCartStore()
	sess := service.NewAuthSession(provider, store, "sess-1", "", zap.NewNop())
	defer sess.Close()

	ctx := context.Background()
	_, _, _ = sess.SignIn(ctx, "test@example.com", "password123")

	store.Save(ctx, "sess-1", session.Cart{Items: []session.Item{
		{ProductID: uuid.New(), Name: "Shirt", UnitPriceCents: 1000, Quantity: 2},
	}})

	if err := sess.SignOut(ctx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if revoked != "refresh" {
		t.Errorf("Expected refresh revoked on sign-out, got %q", revoked)
	}
	if _, ok := store.carts["sess-1"]; ok {
		t.Error("Expected session cart deleted on sign-out")
	}
	if sess.IsAuthenticatedSync() {
		t.Error("Expected not authenticated after sign-out")
	}
}

func TestAuthSession_RefreshWithoutToken(t *testing.T) {
	sess := service.NewAuthSession(&MockIdentityProvider{}, NewMockCartStore(), "sess-1", "", zap.NewNop())
	defer sess.Close()

	_, err := sess.RefreshSession(context.Background())
	if err != service.ErrTokenNotFoundOrRevoked {
		t.Errorf("Expected ErrTokenNotFoundOrRevoked, got %v", err)
	}
}

func TestAuthSession_RefreshRotates(t *testing.T) {
	userID := uuid.New()
	provider := &MockIdentityProvider{}
	provider.LoginFunc = func(ctx context.Context, email, password string) (*service.Principal, service.TokenPair, error) {
		return &service.Principal{ID: userID, Email: email, Role: models.RoleCustomer},
			service.TokenPair{RefreshOpaque: "first"}, nil
	}
	provider.RefreshFunc = func(ctx context.Context, refreshOpaque string) (*service.Principal, service.TokenPair, error) {
		if refreshOpaque != "first" {
			t.Errorf("Expected rotation of first token, got %s", refreshOpaque)
		}
		return &service.Principal{ID: userID, Role: models.RoleCustomer},
			service.TokenPair{RefreshOpaque: "second"}, nil
	}

	sess := service.NewAuthSession(provider, NewMockCartStore(), "sess-1", "", zap.NewNop())
	defer sess.Close()

	ctx := context.Background()
	_, _, _ = sess.SignIn(ctx, "test@example.com", "password123")

	pair, err := sess.RefreshSession(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if pair.RefreshOpaque != "second" {
		t.Errorf("Expected rotated token, got %s", pair.RefreshOpaque)
	}
}

func TestAuthSession_UpdatePasswordRequiresAuth(t *testing.T) {
	sess := service.NewAuthSession(&MockIdentityProvider{}, NewMockCartStore(), "sess-1", "", zap.NewNop())
	defer sess.Close()

	err := sess.UpdatePassword(context.Background(), "newpassword1")
	if err != service.ErrUnauthorized {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthSession_UpdateProfilePublishesEvent(t *testing.T) {
	userID := uuid.New()
	provider := &MockIdentityProvider{}
	provider.LoginFunc = func(ctx context.Context, email, password string) (*service.Principal, service.TokenPair, error) {
		return &service.Principal{ID: userID, Email: email, DisplayName: "Old Name", Role: models.RoleCustomer},
			service.TokenPair{RefreshOpaque: "refresh"}, nil
	}

	var updatedFor uuid.UUID
	provider.UpdateProfileFunc = func(ctx context.Context, p *service.Principal, displayName string) error {
		updatedFor = p.ID
		return nil
	}

	sess := service.NewAuthSession(provider, NewMockCartStore(), "sess-1", "", zap.NewNop())
	defer sess.Close()

	ctx := context.Background()
	_, _, _ = sess.SignIn(ctx, "test@example.com", "password123")

	_, ch := sess.Bus().Subscribe()

	p, err := sess.UpdateProfile(ctx, "New Name")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updatedFor != userID {
		t.Errorf("Expected provider update for %s, got %s", userID, updatedFor)
	}
	if p.DisplayName != "New Name" {
		t.Errorf("Expected updated display name, got %q", p.DisplayName)
	}

	select {
	case ev := <-ch:
		if ev.Type != service.EventUserUpdated {
			t.Errorf("Expected USER_UPDATED event, got %s", ev.Type)
		}
		if ev.Principal == nil || ev.Principal.DisplayName != "New Name" {
			t.Errorf("Expected updated principal in event, got %+v", ev.Principal)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected event, got none")
	}
}

func TestAuthSession_UpdateProfileRequiresAuth(t *testing.T) {
	sess := service.NewAuthSession(&MockIdentityProvider{}, NewMockCartStore(), "sess-1", "", zap.NewNop())
	defer sess.Close()

	_, err := sess.UpdateProfile(context.Background(), "New Name")
	if err != service.ErrUnauthorized {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}
