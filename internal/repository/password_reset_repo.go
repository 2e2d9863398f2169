package repository

import (
	"context"
	"errors"
	"time"

	"storefront-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PasswordResetRepo interface {
	Create(ctx context.Context, t *models.PasswordResetToken) error
	GetValidByHash(ctx context.Context, codeHash string, now time.Time) (*models.PasswordResetToken, error)
	Consume(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.PasswordResetToken, error)
}

type passwordResetRepo struct{ db *gorm.DB }

func NewPasswordResetRepo(db *gorm.DB) PasswordResetRepo { return &passwordResetRepo{db: db} }

func (r *passwordResetRepo) Create(ctx context.Context, t *models.PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *passwordResetRepo) GetValidByHash(ctx context.Context, codeHash string, now time.Time) (*models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	err := r.db.WithContext(ctx).
		Where("code_hash = ? AND consumed = false AND expires_at > ?", codeHash, now).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *passwordResetRepo) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.PasswordResetToken{}).
		Where("id = ? AND consumed = false", id).
		Update("consumed", true)
	return tx.RowsAffected > 0, tx.Error
}

func (r *passwordResetRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tx := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PasswordResetToken{})
	return tx.RowsAffected, tx.Error
}

func (r *passwordResetRepo) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
