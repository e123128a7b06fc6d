package sos

import (
	"context"
	"testing"
	"time"

	"github.com/Dasakami/alertme-backend/internal/accounts"
	"github.com/Dasakami/alertme-backend/internal/contacts"
	"github.com/Dasakami/alertme-backend/internal/notifications"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(
		&accounts.User{},
		&contacts.EmergencyContact{},
		&notifications.SOSNotification{},
		&SOSAlert{},
		&ActivityTimer{},
	))
	return gdb
}

type recordingDispatcher struct {
	alerts []notifications.Alert
	result bool
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, alert notifications.Alert, rcpts []notifications.Recipient) bool {
	r.alerts = append(r.alerts, alert)
	return r.result
}

func seedUserWithContact(t *testing.T, gdb *gorm.DB) accounts.User {
	t.Helper()
	user := accounts.User{
		UserID:      uuid.NewString(),
		PhoneNumber: "+996" + uuid.NewString()[:9],
		FirstName:   "Aigerim",
		Language:    "ru",
		IsActive:    true,
	}
	require.NoError(t, gdb.Create(&user).Error)
	require.NoError(t, gdb.Create(&contacts.EmergencyContact{
		UserID:      user.UserID,
		Name:        "Nurlan",
		PhoneNumber: "+996700123456",
		IsActive:    true,
	}).Error)
	return user
}

func TestStartTimerCancelsPrevious(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUserWithContact(t, gdb)

	first, err := StartTimer(gdb, user.UserID, 30, "hiking")
	require.NoError(t, err)

	second, err := StartTimer(gdb, user.UserID, 60, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	var reloaded ActivityTimer
	require.NoError(t, gdb.First(&reloaded, "id = ?", first.ID).Error)
	assert.Equal(t, TimerCancelled, reloaded.Status)

	var active int64
	require.NoError(t, gdb.Model(&ActivityTimer{}).
		Where("user_id = ? AND status = ?", user.UserID, TimerActive).
		Count(&active).Error)
	assert.EqualValues(t, 1, active)
}

func TestStartTimerRejectsZeroDuration(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUserWithContact(t, gdb)

	_, err := StartTimer(gdb, user.UserID, 0, "")
	assert.Error(t, err)
}

func TestSweepRaisesAlertForExpiredTimer(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUserWithContact(t, gdb)

	timer, err := StartTimer(gdb, user.UserID, 30, "")
	require.NoError(t, err)
	require.NoError(t, gdb.Model(timer).
		Update("end_time", time.Now().Add(-time.Minute)).Error)

	disp := &recordingDispatcher{result: true}
	wd := NewWatchdog(gdb, zap.NewNop(), disp)

	processed, err := wd.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	require.Len(t, disp.alerts, 1)
	assert.Equal(t, notifications.AlertSOS, disp.alerts[0].Kind)

	var alert SOSAlert
	require.NoError(t, gdb.First(&alert, "user_id = ?", user.UserID).Error)
	assert.Equal(t, MethodTimer, alert.ActivationMethod)
	assert.Equal(t, StatusActive, alert.Status)
	assert.Contains(t, alert.Notes, "duration: 30 min")

	var reloaded ActivityTimer
	require.NoError(t, gdb.First(&reloaded, "id = ?", timer.ID).Error)
	assert.Equal(t, TimerExpired, reloaded.Status)
	assert.True(t, reloaded.NotificationSent)
	require.NotNil(t, reloaded.SOSAlertID)
	assert.Equal(t, alert.ID, *reloaded.SOSAlertID)
}

func TestSweepIsIdempotent(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUserWithContact(t, gdb)

	timer, err := StartTimer(gdb, user.UserID, 15, "")
	require.NoError(t, err)
	require.NoError(t, gdb.Model(timer).
		Update("end_time", time.Now().Add(-time.Minute)).Error)

	disp := &recordingDispatcher{result: true}
	wd := NewWatchdog(gdb, zap.NewNop(), disp)

	processed, err := wd.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	processed, err = wd.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)

	var alerts int64
	require.NoError(t, gdb.Model(&SOSAlert{}).Count(&alerts).Error)
	assert.EqualValues(t, 1, alerts)
}

func TestSweepMarksTimerEvenWhenNobodyReached(t *testing.T) {
	gdb := newTestDB(t)
	user := accounts.User{
		UserID:      uuid.NewString(),
		PhoneNumber: "+996" + uuid.NewString()[:9],
		IsActive:    true,
	}
	require.NoError(t, gdb.Create(&user).Error)

	timer, err := StartTimer(gdb, user.UserID, 10, "")
	require.NoError(t, err)
	require.NoError(t, gdb.Model(timer).
		Update("end_time", time.Now().Add(-time.Minute)).Error)

	disp := &recordingDispatcher{result: false}
	wd := NewWatchdog(gdb, zap.NewNop(), disp)

	processed, err := wd.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	// No contacts to reach, but the timer must not re-fire.
	var reloaded ActivityTimer
	require.NoError(t, gdb.First(&reloaded, "id = ?", timer.ID).Error)
	assert.Equal(t, TimerExpired, reloaded.Status)
	assert.True(t, reloaded.NotificationSent)
}

func TestSweepSkipsRunningTimer(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUserWithContact(t, gdb)

	_, err := StartTimer(gdb, user.UserID, 30, "")
	require.NoError(t, err)

	disp := &recordingDispatcher{result: true}
	wd := NewWatchdog(gdb, zap.NewNop(), disp)

	processed, err := wd.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Empty(t, disp.alerts)
}
