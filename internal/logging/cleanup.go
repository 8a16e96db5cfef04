package logging

import (
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"gorm.io/gorm"
)

// StartCleanup runs a daily goroutine that deletes system_logs older than retentionDays.
func StartCleanup(db *gorm.DB, retentionDays int, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deleted, err := Cleanup(db, time.Now().AddDate(0, 0, -retentionDays))
				if err != nil {
					slog.Error("log cleanup failed", "error", err)
				} else if deleted > 0 {
					slog.Info("log cleanup completed", "deleted", deleted)
				}
			case <-done:
				return
			}
		}
	}()
}

// Cleanup deletes log rows recorded before cutoff.
func Cleanup(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}
