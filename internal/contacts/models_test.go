package contacts

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

	require.NoError(t, gdb.AutoMigrate(&EmergencyContact{}, &ContactGroup{}))
	return gdb
}

func TestOnlyOnePrimaryContactPerUser(t *testing.T) {
	gdb := newTestDB(t)
	userID := uuid.NewString()

	first := EmergencyContact{
		UserID:      userID,
		Name:        "Nurlan",
		PhoneNumber: "+996700000001",
		IsPrimary:   true,
		IsActive:    true,
	}
	require.NoError(t, gdb.Create(&first).Error)

	second := EmergencyContact{
		UserID:      userID,
		Name:        "Gulnara",
		PhoneNumber: "+996700000002",
		IsPrimary:   true,
		IsActive:    true,
	}
	require.NoError(t, gdb.Create(&second).Error)

	var demoted EmergencyContact
	require.NoError(t, gdb.First(&demoted, "id = ?", first.ID).Error)
	assert.False(t, demoted.IsPrimary)

	var promoted EmergencyContact
	require.NoError(t, gdb.First(&promoted, "id = ?", second.ID).Error)
	assert.True(t, promoted.IsPrimary)
}

func TestPromotingContactClearsFormerPrimary(t *testing.T) {
	gdb := newTestDB(t)
	userID := uuid.NewString()

	first := EmergencyContact{
		UserID:      userID,
		Name:        "Nurlan",
		PhoneNumber: "+996700000001",
		IsPrimary:   true,
		IsActive:    true,
	}
	require.NoError(t, gdb.Create(&first).Error)

	second := EmergencyContact{
		UserID:      userID,
		Name:        "Gulnara",
		PhoneNumber: "+996700000002",
		IsActive:    true,
	}
	require.NoError(t, gdb.Create(&second).Error)

	second.IsPrimary = true
	require.NoError(t, gdb.Save(&second).Error)

	var reloaded EmergencyContact
	require.NoError(t, gdb.First(&reloaded, "id = ?", first.ID).Error)
	assert.False(t, reloaded.IsPrimary)
}

func TestPrimaryIsScopedToOwner(t *testing.T) {
	gdb := newTestDB(t)

	mine := EmergencyContact{
		UserID:      uuid.NewString(),
		Name:        "Nurlan",
		PhoneNumber: "+996700000001",
		IsPrimary:   true,
		IsActive:    true,
	}
	require.NoError(t, gdb.Create(&mine).Error)

	theirs := EmergencyContact{
		UserID:      uuid.NewString(),
		Name:        "Aibek",
		PhoneNumber: "+996700000002",
		IsPrimary:   true,
		IsActive:    true,
	}
	require.NoError(t, gdb.Create(&theirs).Error)

	var reloaded EmergencyContact
	require.NoError(t, gdb.First(&reloaded, "id = ?", mine.ID).Error)
	assert.True(t, reloaded.IsPrimary)
}

func TestActiveForUserOrdersPrimaryFirst(t *testing.T) {
	gdb := newTestDB(t)
	userID := uuid.NewString()

	require.NoError(t, gdb.Create(&EmergencyContact{
		UserID:      userID,
		Name:        "Aibek",
		PhoneNumber: "+996700000001",
		IsActive:    true,
	}).Error)
	require.NoError(t, gdb.Create(&EmergencyContact{
		UserID:      userID,
		Name:        "Zarina",
		PhoneNumber: "+996700000002",
		IsPrimary:   true,
		IsActive:    true,
	}).Error)

	dormant := EmergencyContact{
		UserID:      userID,
		Name:        "Old",
		PhoneNumber: "+996700000003",
	}
	require.NoError(t, gdb.Create(&dormant).Error)
	require.NoError(t, gdb.Model(&dormant).Update("is_active", false).Error)

	list, err := ActiveForUser(gdb, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Zarina", list[0].Name)
	assert.Equal(t, "Aibek", list[1].Name)
}

func TestAsRecipients(t *testing.T) {
	contact := EmergencyContact{
		ID:               uuid.New(),
		Name:             "Nurlan",
		PhoneNumber:      "+996700123456",
		Email:            "nurlan@example.com",
		TelegramUsername: "@nurlan",
	}

	recipients := AsRecipients([]EmergencyContact{contact})
	require.Len(t, recipients, 1)
	assert.Equal(t, contact.ID, recipients[0].ContactID)
	assert.Equal(t, "+996700123456", recipients[0].Phone)
	assert.Equal(t, "nurlan@example.com", recipients[0].Email)
	assert.Equal(t, "@nurlan", recipients[0].TelegramUsername)
}
