// File: internal/services/otp_services/cleanup.go
package otp_services

import (
	"context"
	"time"
)

// CleanupExpiredOtps deletes every record older than the retention window,
// whatever its status.
func (s *Service) CleanupExpiredOtps(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.config.Retention)
	deleted, err := s.store.CleanupOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("otp cleanup failed", "error", err)
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("otp cleanup completed", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}

// StartCleanup runs CleanupExpiredOtps every interval until ctx is done. The
// returned channel is closed once the loop has exited.
func (s *Service) StartCleanup(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.logger.Info("otp cleanup loop started", "interval", interval.String())
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("otp cleanup loop stopped")
				return
			case <-ticker.C:
				_, _ = s.CleanupExpiredOtps(ctx)
			}
		}
	}()
	return done
}
