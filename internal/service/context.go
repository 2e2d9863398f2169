package service

import (
	"context"

	"github.com/google/uuid"

	"storefront-service/internal/models"
)

type ctxKey string

const (
	ctxUserIDKey ctxKey = "userID"
	ctxRoleKey   ctxKey = "role"
)

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, id)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxUserIDKey).(uuid.UUID)
	return v, ok
}

func WithRole(ctx context.Context, r models.Role) context.Context {
	return context.WithValue(ctx, ctxRoleKey, r)
}

func RoleFromContext(ctx context.Context) (models.Role, bool) {
	v, ok := ctx.Value(ctxRoleKey).(models.Role)
	return v, ok
}

func requireAuth(ctx context.Context) (uuid.UUID, models.Role, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, "", ErrUnauthorized
	}
	role, _ := RoleFromContext(ctx) // если нет — считаем customer по умолчанию
	if role == "" {
		role = models.RoleCustomer
	}
	return uid, role, nil
}

func requireAdmin(ctx context.Context) (uuid.UUID, error) {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if role != models.RoleAdmin {
		return uuid.Nil, ErrForbidden
	}
	return uid, nil
}
