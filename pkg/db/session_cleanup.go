package db

import (
	"context"
	"time"

	"github.com/trunghieu0211/flashdeck-journey/pkg/logger"
)

const SessionCleanupInterval = time.Hour

// CleanupExpiredSessions drops study session checkpoints whose expiry has
// passed. Already-persisted review records are untouched: abandoning a
// session never rolls back graded cards.
func CleanupExpiredSessions(now time.Time) (int64, error) {
	if DB == nil {
		return 0, nil
	}
	res := DB.Where("expires_at <= ?", now).Delete(&StudySessionState{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func StartSessionCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = SessionCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := CleanupExpiredSessions(time.Now().UTC()); err != nil {
				logger.Error("failed to cleanup expired study sessions", "error", err)
			}
		}
	}
}
