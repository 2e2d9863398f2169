package cleanup

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CartSweeper умеет выбрасывать залежавшиеся корзины. Реализуется
// session.MemoryStore; для redis-хранилища не нужен, там TTL.
type CartSweeper interface {
	Sweep(maxAge time.Duration) int
}

type CleanupService struct {
	db      *gorm.DB
	carts   CartSweeper // может быть nil
	cartMax time.Duration
	log     *zap.Logger
}

func NewCleanupService(db *gorm.DB, carts CartSweeper, cartMax time.Duration, log *zap.Logger) *CleanupService {
	if cartMax <= 0 {
		cartMax = 7 * 24 * time.Hour
	}
	return &CleanupService{
		db:      db,
		carts:   carts,
		cartMax: cartMax,
		log:     log,
	}
}

// CleanupExpiredTokens удаляет истёкшие refresh и password reset токены
func (c *CleanupService) CleanupExpiredTokens(ctx context.Context) error {
	now := time.Now()

	result := c.db.WithContext(ctx).
		Exec("DELETE FROM refresh_tokens WHERE expires_at < ?", now)
	if result.Error != nil {
		c.log.Error("failed to cleanup expired refresh tokens", zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected > 0 {
		c.log.Info("cleaned up expired refresh tokens", zap.Int64("count", result.RowsAffected))
	}

	result = c.db.WithContext(ctx).
		Exec("DELETE FROM password_reset_tokens WHERE expires_at < ?", now)
	if result.Error != nil {
		c.log.Error("failed to cleanup expired password reset tokens", zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected > 0 {
		c.log.Info("cleaned up expired password reset tokens", zap.Int64("count", result.RowsAffected))
	}

	return nil
}

// CleanupConsumedTokens удаляет использованные reset-коды старше 24 часов
func (c *CleanupService) CleanupConsumedTokens(ctx context.Context) error {
	cutoff := time.Now().Add(-24 * time.Hour)

	result := c.db.WithContext(ctx).
		Exec("DELETE FROM password_reset_tokens WHERE consumed = true AND created_at < ?", cutoff)
	if result.Error != nil {
		c.log.Error("failed to cleanup consumed password reset tokens", zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected > 0 {
		c.log.Info("cleaned up consumed password reset tokens", zap.Int64("count", result.RowsAffected))
	}

	return nil
}

// CleanupStaleCarts выбрасывает корзины, которых давно никто не трогал
func (c *CleanupService) CleanupStaleCarts(ctx context.Context) error {
	if c.carts == nil {
		return nil
	}

	if n := c.carts.Sweep(c.cartMax); n > 0 {
		c.log.Info("swept stale carts", zap.Int("count", n))
	}
	return nil
}

// RunFullCleanup выполняет все задачи очистки
func (c *CleanupService) RunFullCleanup(ctx context.Context) error {
	c.log.Info("starting full cleanup")

	if err := c.CleanupExpiredTokens(ctx); err != nil {
		return err
	}

	if err := c.CleanupConsumedTokens(ctx); err != nil {
		return err
	}

	if err := c.CleanupStaleCarts(ctx); err != nil {
		return err
	}

	c.log.Info("full cleanup completed")
	return nil
}
