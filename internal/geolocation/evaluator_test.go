package geolocation

import (
	"context"
	"sync"
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
	// One connection, or each pooled conn would see its own empty :memory: DB.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(
		&accounts.User{},
		&contacts.EmergencyContact{},
		&notifications.SOSNotification{},
		&notifications.TelegramUser{},
		&LocationHistory{},
		&Geozone{},
		&GeozoneEvent{},
		&SharedLocation{},
	))
	return gdb
}

type fakeDispatcher struct {
	mu         sync.Mutex
	alerts     []notifications.Alert
	recipients [][]notifications.Recipient
	result     bool
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, alert notifications.Alert, rcpts []notifications.Recipient) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	f.recipients = append(f.recipients, rcpts)
	return f.result
}

func seedUser(t *testing.T, gdb *gorm.DB) accounts.User {
	t.Helper()
	user := accounts.User{
		UserID:      uuid.NewString(),
		PhoneNumber: "+996" + uuid.NewString()[:9],
		FirstName:   "Aigerim",
		Language:    "ru",
		IsActive:    true,
	}
	require.NoError(t, gdb.Create(&user).Error)
	return user
}

func seedZone(t *testing.T, gdb *gorm.DB, userID string, lat, lon, radius float64) *Geozone {
	t.Helper()
	zone := Geozone{
		UserID:        userID,
		Name:          "Home",
		ZoneType:      ZoneTypeSafe,
		Latitude:      lat,
		Longitude:     lon,
		Radius:        radius,
		NotifyOnEnter: true,
		NotifyOnExit:  true,
		IsActive:      true,
	}
	require.NoError(t, gdb.Create(&zone).Error)
	return &zone
}

func sample(userID string, lat, lon float64) *LocationHistory {
	return &LocationHistory{
		UserID:    userID,
		Latitude:  lat,
		Longitude: lon,
		Timestamp: time.Now(),
	}
}

func TestHaversineZeroDistance(t *testing.T) {
	assert.InDelta(t, 0, Haversine(42.8746, 74.5698, 42.8746, 74.5698), 0.001)
}

func TestHaversineOneDegreeLatitude(t *testing.T) {
	// One degree of latitude is about 111.2 km anywhere on the globe.
	d := Haversine(0, 0, 1, 0)
	assert.InEpsilon(t, 111195, d, 0.01)
}

func TestFirstObservationInsideEmitsEnter(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUser(t, gdb)
	zone := seedZone(t, gdb, user.UserID, 42.8746, 74.5698, 50)

	disp := &fakeDispatcher{result: true}
	eval := NewEvaluator(gdb, zap.NewNop(), disp)

	events, err := eval.Evaluate(context.Background(), user, sample(user.UserID, 42.8746, 74.5698))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventEnter, events[0].EventType)
	assert.Equal(t, zone.ID, events[0].GeozoneID)

	// Dispatch succeeded, so the event is flagged sent.
	var stored GeozoneEvent
	require.NoError(t, gdb.First(&stored, "id = ?", events[0].ID).Error)
	assert.True(t, stored.NotificationSent)

	require.Len(t, disp.alerts, 1)
	assert.Equal(t, notifications.AlertZoneEnter, disp.alerts[0].Kind)
	assert.Equal(t, "Home", disp.alerts[0].ZoneName)
}

func TestFirstObservationOutsideEmitsNothing(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUser(t, gdb)
	seedZone(t, gdb, user.UserID, 42.8746, 74.5698, 50)

	disp := &fakeDispatcher{result: true}
	eval := NewEvaluator(gdb, zap.NewNop(), disp)

	// ~600 m north of the zone center. No prior state, so no exit either.
	events, err := eval.Evaluate(context.Background(), user, sample(user.UserID, 42.8800, 74.5698))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Empty(t, disp.alerts)
}

func TestRepeatedInsideSamplesEmitOneEnter(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUser(t, gdb)
	seedZone(t, gdb, user.UserID, 42.8746, 74.5698, 50)

	disp := &fakeDispatcher{result: true}
	eval := NewEvaluator(gdb, zap.NewNop(), disp)

	for i := 0; i < 3; i++ {
		_, err := eval.Evaluate(context.Background(), user, sample(user.UserID, 42.8746, 74.5698))
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, gdb.Model(&GeozoneEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestExitAfterEnter(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUser(t, gdb)
	seedZone(t, gdb, user.UserID, 42.8746, 74.5698, 50)

	disp := &fakeDispatcher{result: true}
	eval := NewEvaluator(gdb, zap.NewNop(), disp)

	_, err := eval.Evaluate(context.Background(), user, sample(user.UserID, 42.8746, 74.5698))
	require.NoError(t, err)

	events, err := eval.Evaluate(context.Background(), user, sample(user.UserID, 42.8800, 74.5698))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventExit, events[0].EventType)

	require.Len(t, disp.alerts, 2)
	assert.Equal(t, notifications.AlertZoneExit, disp.alerts[1].Kind)
}

func TestEnterSuppressedWhenNotifyDisabled(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUser(t, gdb)

	zone := Geozone{
		UserID:       user.UserID,
		Name:         "Quiet",
		Latitude:     42.8746,
		Longitude:    74.5698,
		Radius:       50,
		NotifyOnExit: true,
		IsActive:     true,
	}
	require.NoError(t, gdb.Create(&zone).Error)
	require.NoError(t, gdb.Model(&zone).Update("notify_on_enter", false).Error)

	disp := &fakeDispatcher{result: true}
	eval := NewEvaluator(gdb, zap.NewNop(), disp)

	events, err := eval.Evaluate(context.Background(), user, sample(user.UserID, 42.8746, 74.5698))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestExitSuppressedWhenNotifyDisabled(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUser(t, gdb)

	zone := seedZone(t, gdb, user.UserID, 42.8746, 74.5698, 50)
	require.NoError(t, gdb.Model(zone).Update("notify_on_exit", false).Error)

	disp := &fakeDispatcher{result: true}
	eval := NewEvaluator(gdb, zap.NewNop(), disp)

	_, err := eval.Evaluate(context.Background(), user, sample(user.UserID, 42.8746, 74.5698))
	require.NoError(t, err)

	events, err := eval.Evaluate(context.Background(), user, sample(user.UserID, 42.8800, 74.5698))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Len(t, disp.alerts, 1)
}

func TestRecipientsFallBackToActiveContacts(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUser(t, gdb)
	seedZone(t, gdb, user.UserID, 42.8746, 74.5698, 50)

	active := contacts.EmergencyContact{
		UserID:      user.UserID,
		Name:        "Nurlan",
		PhoneNumber: "+996700000001",
		IsActive:    true,
	}
	require.NoError(t, gdb.Create(&active).Error)

	inactive := contacts.EmergencyContact{
		UserID:      user.UserID,
		Name:        "Old",
		PhoneNumber: "+996700000002",
	}
	require.NoError(t, gdb.Create(&inactive).Error)
	require.NoError(t, gdb.Model(&inactive).Update("is_active", false).Error)

	disp := &fakeDispatcher{result: true}
	eval := NewEvaluator(gdb, zap.NewNop(), disp)

	_, err := eval.Evaluate(context.Background(), user, sample(user.UserID, 42.8746, 74.5698))
	require.NoError(t, err)

	require.Len(t, disp.recipients, 1)
	require.Len(t, disp.recipients[0], 1)
	assert.Equal(t, "Nurlan", disp.recipients[0][0].Name)
}

func TestFailedDispatchLeavesEventUnsent(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUser(t, gdb)
	seedZone(t, gdb, user.UserID, 42.8746, 74.5698, 50)

	disp := &fakeDispatcher{result: false}
	eval := NewEvaluator(gdb, zap.NewNop(), disp)

	events, err := eval.Evaluate(context.Background(), user, sample(user.UserID, 42.8746, 74.5698))
	require.NoError(t, err)
	require.Len(t, events, 1)

	var stored GeozoneEvent
	require.NoError(t, gdb.First(&stored, "id = ?", events[0].ID).Error)
	assert.False(t, stored.NotificationSent)
}

func TestPurgeOldHistory(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUser(t, gdb)

	old := sample(user.UserID, 42.87, 74.56)
	old.Timestamp = time.Now().Add(-91 * 24 * time.Hour)
	require.NoError(t, gdb.Create(old).Error)

	fresh := sample(user.UserID, 42.87, 74.56)
	require.NoError(t, gdb.Create(fresh).Error)

	purged, err := PurgeOldHistory(gdb, HistoryRetention)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	var remaining int64
	require.NoError(t, gdb.Model(&LocationHistory{}).Count(&remaining).Error)
	assert.EqualValues(t, 1, remaining)
}

func TestExpireSharedLocations(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUser(t, gdb)

	lapsed := SharedLocation{
		UserID:       user.UserID,
		SharedWithID: uuid.New(),
		ShareToken:   uuid.NewString() + uuid.NewString(),
		StartTime:    time.Now().Add(-2 * time.Hour),
		EndTime:      time.Now().Add(-time.Hour),
		Status:       ShareStatusActive,
	}
	require.NoError(t, gdb.Create(&lapsed).Error)

	current := SharedLocation{
		UserID:       user.UserID,
		SharedWithID: uuid.New(),
		ShareToken:   uuid.NewString() + uuid.NewString(),
		StartTime:    time.Now(),
		EndTime:      time.Now().Add(time.Hour),
		Status:       ShareStatusActive,
	}
	require.NoError(t, gdb.Create(&current).Error)

	expired, err := ExpireSharedLocations(gdb)
	require.NoError(t, err)
	assert.EqualValues(t, 1, expired)

	var reloaded SharedLocation
	require.NoError(t, gdb.First(&reloaded, "id = ?", current.ID).Error)
	assert.Equal(t, ShareStatusActive, reloaded.Status)
}
