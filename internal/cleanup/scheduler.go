package cleanup

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Scheduler struct {
	cleanup *CleanupService
	log     *zap.Logger
	stopCh  chan struct{}
}

func NewScheduler(cleanup *CleanupService, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cleanup: cleanup,
		log:     log,
		stopCh:  make(chan struct{}),
	}
}

// Start запускает планировщик задач
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting cleanup scheduler")

	go s.runExpiredTokensCleanup(ctx)
	go s.runConsumedTokensCleanup(ctx)
	go s.runCartSweep(ctx)
}

// Stop останавливает планировщик
func (s *Scheduler) Stop() {
	s.log.Info("stopping cleanup scheduler")
	close(s.stopCh)
}

// runExpiredTokensCleanup очищает истёкшие токены каждые 30 минут
func (s *Scheduler) runExpiredTokensCleanup(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	// Выполняем сразу при старте
	if err := s.cleanup.CleanupExpiredTokens(ctx); err != nil {
		s.log.Error("initial expired tokens cleanup failed", zap.Error(err))
	}

	for {
		select {
		case <-ticker.C:
			if err := s.cleanup.CleanupExpiredTokens(ctx); err != nil {
				s.log.Error("expired tokens cleanup failed", zap.Error(err))
			}
		case <-s.stopCh:
			s.log.Info("expired tokens cleanup stopped")
			return
		case <-ctx.Done():
			s.log.Info("expired tokens cleanup cancelled")
			return
		}
	}
}

// runConsumedTokensCleanup очищает использованные reset-коды каждые 6 часов
func (s *Scheduler) runConsumedTokensCleanup(ctx context.Context) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.cleanup.CleanupConsumedTokens(ctx); err != nil {
				s.log.Error("consumed tokens cleanup failed", zap.Error(err))
			}
		case <-s.stopCh:
			s.log.Info("consumed tokens cleanup stopped")
			return
		case <-ctx.Done():
			s.log.Info("consumed tokens cleanup cancelled")
			return
		}
	}
}

// runCartSweep выметает брошенные корзины каждый час
func (s *Scheduler) runCartSweep(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.cleanup.CleanupStaleCarts(ctx); err != nil {
				s.log.Error("stale cart sweep failed", zap.Error(err))
			}
		case <-s.stopCh:
			s.log.Info("cart sweep stopped")
			return
		case <-ctx.Done():
			s.log.Info("cart sweep cancelled")
			return
		}
	}
}

// RunOnceNow выполняет полную очистку немедленно
func (s *Scheduler) RunOnceNow(ctx context.Context) error {
	return s.cleanup.RunFullCleanup(ctx)
}
