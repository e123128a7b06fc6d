package sos

import (
	"context"
	"fmt"
	"time"

	"github.com/Dasakami/alertme-backend/internal/accounts"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Watchdog finds check-in timers whose deadline passed and raises an SOS
// alert for each. It is invoked on a fixed interval by the scheduler.
type Watchdog struct {
	db         *gorm.DB
	dispatcher AlertDispatcher
	log        *zap.Logger
}

func NewWatchdog(db *gorm.DB, log *zap.Logger, dispatcher AlertDispatcher) *Watchdog {
	return &Watchdog{db: db, dispatcher: dispatcher, log: log}
}

// Sweep processes every expired timer once. A failure on one timer is logged
// and the sweep moves on; the notification_sent flag guarantees a timer never
// fires twice even across overlapping sweeps.
func (wd *Watchdog) Sweep(ctx context.Context) (int, error) {
	var timers []ActivityTimer
	err := wd.db.WithContext(ctx).
		Where("status = ? AND end_time < ? AND notification_sent = ?",
			TimerActive, time.Now(), false).
		Find(&timers).Error
	if err != nil {
		return 0, fmt.Errorf("fetch expired timers: %w", err)
	}

	processed := 0
	for i := range timers {
		if err := wd.processExpired(ctx, &timers[i]); err != nil {
			wd.log.Error("failed to process expired timer",
				zap.String("timer_id", timers[i].ID.String()),
				zap.Error(err))
			continue
		}
		processed++
	}
	return processed, nil
}

func (wd *Watchdog) processExpired(ctx context.Context, timer *ActivityTimer) error {
	var user accounts.User
	if err := wd.db.WithContext(ctx).
		First(&user, "user_id = ?", timer.UserID).Error; err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}

	alert := SOSAlert{
		UserID:           timer.UserID,
		Status:           StatusActive,
		ActivationMethod: MethodTimer,
		Notes: fmt.Sprintf("Activity timer expired without check-in (duration: %d min)",
			timer.DurationMinutes),
	}
	if err := wd.db.WithContext(ctx).Create(&alert).Error; err != nil {
		return fmt.Errorf("create alert: %w", err)
	}

	if reached, err := DispatchAlert(ctx, wd.db.WithContext(ctx), wd.dispatcher, user, &alert); err != nil {
		wd.log.Error("dispatch for expired timer failed",
			zap.String("timer_id", timer.ID.String()), zap.Error(err))
	} else if !reached {
		wd.log.Warn("expired timer alert reached no contacts",
			zap.String("timer_id", timer.ID.String()))
	}

	// Marked regardless of dispatch outcome: the timer must not re-fire.
	return wd.db.WithContext(ctx).Model(timer).Updates(map[string]interface{}{
		"status":            TimerExpired,
		"notification_sent": true,
		"sos_alert_id":      alert.ID,
	}).Error
}
