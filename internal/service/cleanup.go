package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const imageDeleteTimeout = 10 * time.Second

// StartLoginCodeCleanup периодически удаляет просроченные коды входа. Блокируется до отмены ctx.
func (s *Service) StartLoginCodeCleanup(ctx context.Context) {
	ticker := time.NewTicker(codeCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purgeExpiredCodes(ctx)
		}
	}
}

func (s *Service) purgeExpiredCodes(ctx context.Context) {
	n, err := s.repo.DeleteExpiredLoginCodes(ctx, s.now())
	if err != nil {
		s.logger.Warn("purge expired login codes", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Debug("expired login codes purged", zap.Int64("count", n))
	}
}
