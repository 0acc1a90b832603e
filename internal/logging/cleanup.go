package logging

import (
	"log/slog"
	"time"

	"github.com/SergeSyntax/mock-server/internal/models"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// StartCleanup schedules a daily job deleting system_logs older than
// retention. The caller stops the returned scheduler on shutdown.
func StartCleanup(db *gorm.DB, retention time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc("@daily", func() {
		if _, err := PurgeLogs(db, time.Now().Add(-retention)); err != nil {
			slog.Error("log cleanup failed", "error", err)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// PurgeLogs deletes system_logs written before cutoff.
func PurgeLogs(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		slog.Info("log cleanup completed", "deleted", result.RowsAffected)
	}
	return result.RowsAffected, nil
}
